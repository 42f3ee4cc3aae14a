package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"visit-route-service/internal/jobrun"
)

// LogNotifier writes notifications to the job log; used when SMTP is not
// configured.
type LogNotifier struct {
	entry *logrus.Entry
}

func NewLogNotifier(log logrus.FieldLogger, run *jobrun.Run) *LogNotifier {
	return &LogNotifier{entry: log.WithFields(logrus.Fields{
		"run":    run.FullName(),
		"run_id": run.ID(),
		"phase":  "notify",
	})}
}

func (n *LogNotifier) NotifyStart(context.Context) error {
	n.entry.Info("route generation started")
	return nil
}

func (n *LogNotifier) NotifyFinish(context.Context) error {
	n.entry.Info("route generation finished")
	return nil
}

func (n *LogNotifier) NotifyError(_ context.Context, report string) error {
	n.entry.WithField("report", report).Error("route generation failed")
	return nil
}
