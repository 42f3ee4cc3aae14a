package ports

import "context"

// Port: stakeholder notifications about a run.
type Notifier interface {
	NotifyStart(ctx context.Context) error
	NotifyFinish(ctx context.Context) error
	NotifyError(ctx context.Context, report string) error
}
