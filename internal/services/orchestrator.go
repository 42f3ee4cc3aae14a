package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"visit-route-service/internal/jobrun"
	"visit-route-service/internal/ports"
)

type State int

const (
	StateInit State = iota
	StateStagingCreated
	StateNotifiedStart
	StateGeocoded
	StateCompaniesSynced
	StateRouteGenerated
	StateNotifiedFinish
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateStagingCreated:
		return "STAGING_CREATED"
	case StateNotifiedStart:
		return "NOTIFIED_START"
	case StateGeocoded:
		return "GEOCODED"
	case StateCompaniesSynced:
		return "COMPANIES_SYNCED"
	case StateRouteGenerated:
		return "ROUTE_GENERATED"
	case StateNotifiedFinish:
		return "NOTIFIED_FINISH"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Synchronizer stages the companies to route.
type Synchronizer interface {
	Synchronize(ctx context.Context) error
}

type OrchestratorDeps struct {
	Run      *jobrun.Run
	Staging  ports.StagingStore
	Notifier ports.Notifier
	Geo      ports.GeoEngine
	Sync     Synchronizer
	Tools    ToolSelector
	Logger   ports.Logger
}

// Orchestrator runs one route-generation job end to end.
type Orchestrator struct {
	deps  OrchestratorDeps
	state State
	// phase is the last state reached before a failure.
	phase State
}

func NewOrchestrator(deps OrchestratorDeps) (*Orchestrator, error) {
	var missing []string
	if deps.Run == nil {
		missing = append(missing, "run")
	}
	if deps.Staging == nil {
		missing = append(missing, "staging")
	}
	if deps.Notifier == nil {
		missing = append(missing, "notifier")
	}
	if deps.Geo == nil {
		missing = append(missing, "geo")
	}
	if deps.Sync == nil {
		missing = append(missing, "sync")
	}
	if deps.Tools == nil {
		missing = append(missing, "tools")
	}
	if deps.Logger == nil {
		missing = append(missing, "logger")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("new orchestrator: missing %s", strings.Join(missing, ", "))
	}
	return &Orchestrator{deps: deps, state: StateInit}, nil
}

func (o *Orchestrator) State() State { return o.state }

// Run executes the pipeline. A staging failure aborts without notifying.
// Failures of geocoding, synchronization and route generation (panics
// included) are reported once through NotifyError. The log is finalized in
// every case and the original error is returned.
func (o *Orchestrator) Run(ctx context.Context) (err error) {
	log := o.deps.Logger
	run := o.deps.Run

	defer func() {
		msg := fmt.Sprintf("run %s finished state=%s", run.FullName(), o.state)
		if ferr := log.Finish(msg); ferr != nil {
			err = errors.Join(err, fmt.Errorf("finalize: %w", ferr))
		}
	}()

	log.Info(fmt.Sprintf("run %s started id=%s plan_date=%s", run.FullName(), run.ID(), run.DateToken()))

	if err := o.deps.Staging.CreateWorkingArea(ctx); err != nil {
		o.fail(StateInit)
		log.Error(fmt.Sprintf("create working area %s: %v", o.deps.Staging.Path(), err))
		return fmt.Errorf("run %s: %w", run.FullName(), err)
	}
	o.state = StateStagingCreated

	if err := o.deps.Notifier.NotifyStart(ctx); err != nil {
		log.Warn(fmt.Sprintf("notify start: %v", err))
	}
	o.state = StateNotifiedStart

	if stack, err := o.generate(ctx); err != nil {
		o.fail(o.state)
		report := o.failureReport(err, stack)
		log.Error(report)
		if nerr := o.deps.Notifier.NotifyError(ctx, report); nerr != nil {
			log.Error(fmt.Sprintf("notify error: %v", nerr))
		}
		return fmt.Errorf("run %s: %w", run.FullName(), err)
	}

	if err := o.deps.Notifier.NotifyFinish(ctx); err != nil {
		log.Warn(fmt.Sprintf("notify finish: %v", err))
	}
	o.state = StateNotifiedFinish
	o.state = StateDone
	return nil
}

// generate runs geocoding, synchronization and route generation. A panic is
// converted to an error; the returned stack is where it was raised.
func (o *Orchestrator) generate(ctx context.Context) (stack []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			stack = debug.Stack()
		}
	}()
	defer func() {
		if err != nil && stack == nil {
			stack = debug.Stack()
		}
	}()

	if err := o.deps.Geo.Geocode(ctx); err != nil {
		return nil, fmt.Errorf("geocode: %w", err)
	}
	o.state = StateGeocoded

	if err := o.deps.Geo.NormalizeCompanies(ctx); err != nil {
		return nil, fmt.Errorf("normalize companies: %w", err)
	}
	if err := o.deps.Sync.Synchronize(ctx); err != nil {
		return nil, err
	}
	o.state = StateCompaniesSynced

	kind := o.deps.Run.Params().TypeTool
	tool, err := o.deps.Tools(kind)
	if err != nil {
		return nil, err
	}
	if err := tool.Generate(ctx); err != nil {
		return nil, err
	}
	o.state = StateRouteGenerated
	return nil, nil
}

func (o *Orchestrator) fail(at State) {
	o.phase = at
	o.state = StateFailed
}

func (o *Orchestrator) failureReport(err error, stack []byte) string {
	run := o.deps.Run

	var b strings.Builder
	fmt.Fprintf(&b, "run: %s\n", run.FullName())
	fmt.Fprintf(&b, "run id: %s\n", run.ID())
	fmt.Fprintf(&b, "failed after: %s\n", o.phase)
	fmt.Fprintf(&b, "error: %v\n", err)
	b.WriteString("chain:\n")
	for _, line := range errorChain(err, 1) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString("stack:\n")
	b.Write(stack)
	return b.String()
}

// errorChain lists every wrapped error, indenting joined branches.
func errorChain(err error, depth int) []string {
	var out []string
	for err != nil {
		out = append(out, fmt.Sprintf("%s- %T: %v", strings.Repeat("  ", depth), err, err))
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, e := range u.Unwrap() {
				out = append(out, errorChain(e, depth+1)...)
			}
			return out
		case interface{ Unwrap() error }:
			err = u.Unwrap()
		default:
			return out
		}
	}
	return out
}
