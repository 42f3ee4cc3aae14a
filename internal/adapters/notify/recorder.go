package notify

import "context"

// Recorder is a Notifier double that counts calls and returns injected errors.
type Recorder struct {
	Starts   int
	Finishes int
	Reports  []string

	StartErr  error
	FinishErr error
	ErrorErr  error
}

func (r *Recorder) NotifyStart(context.Context) error {
	r.Starts++
	return r.StartErr
}

func (r *Recorder) NotifyFinish(context.Context) error {
	r.Finishes++
	return r.FinishErr
}

func (r *Recorder) NotifyError(_ context.Context, report string) error {
	r.Reports = append(r.Reports, report)
	return r.ErrorErr
}
