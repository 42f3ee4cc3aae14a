package obs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type ctxKey string

const RunIDKey ctxKey = "run_id"

var logger logrus.FieldLogger = logrus.StandardLogger()

// SetLogger routes timing lines to l.
func SetLogger(l logrus.FieldLogger) {
	if l != nil {
		logger = l
	}
}

// WithRunID tags ctx so timing lines can be correlated with a run.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RunIDKey, id)
}

// Log returns the shared logger tagged with the run id carried by ctx.
func Log(ctx context.Context) logrus.FieldLogger {
	if runID, ok := ctx.Value(RunIDKey).(string); ok && runID != "" {
		return logger.WithField("run_id", runID)
	}
	return logger
}

// Time logs the duration of an operation; call the returned func with the
// operation's error pointer when it ends.
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	runID, _ := ctx.Value(RunIDKey).(string)

	return func(errp *error) {
		entry := logger.WithFields(logrus.Fields{
			"run_id": runID,
			"op":     name,
			"dur_ms": time.Since(start).Milliseconds(),
		})

		if errp != nil && *errp != nil {
			entry.WithError(*errp).Warn("operation failed")
			return
		}
		entry.Debug("operation finished")
	}
}
