package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"visit-route-service/internal/config"
	"visit-route-service/internal/jobrun"
)

type fakeSender struct {
	msgs []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.msgs = append(f.msgs, m...)
	return f.err
}

func testRun(t *testing.T) *jobrun.Run {
	t.Helper()
	run, err := jobrun.New("visit-routes", time.Date(2026, 10, 16, 22, 5, 0, 0, time.UTC), time.UTC, config.Params{})
	require.NoError(t, err)
	return run
}

func body(t *testing.T, m *gomail.Message) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestEmailNotifier_SubjectsCarryRunName(t *testing.T) {
	s := &fakeSender{}
	run := testRun(t)
	n, err := NewEmailNotifierWithSender(s, "jobs@example.com", []string{"a@example.com", "b@example.com"}, run)
	require.NoError(t, err)
	n.now = func() time.Time { return run.GeneratedAt().Add(90 * time.Second) }

	ctx := context.Background()
	require.NoError(t, n.NotifyStart(ctx))
	require.NoError(t, n.NotifyFinish(ctx))
	require.NoError(t, n.NotifyError(ctx, "boom\nstack"))

	require.Len(t, s.msgs, 3)
	assert.Equal(t, []string{"[visit-routes-2026-10-16-22-5-0] started"}, s.msgs[0].GetHeader("Subject"))
	assert.Equal(t, []string{"[visit-routes-2026-10-16-22-5-0] finished"}, s.msgs[1].GetHeader("Subject"))
	assert.Equal(t, []string{"[visit-routes-2026-10-16-22-5-0] FAILED"}, s.msgs[2].GetHeader("Subject"))
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, s.msgs[0].GetHeader("To"))

	assert.Contains(t, body(t, s.msgs[0]), "Plan date: 20261017")
	assert.Contains(t, body(t, s.msgs[1]), "Elapsed: 1m30s")
	assert.Contains(t, body(t, s.msgs[2]), run.ID())
}

func TestEmailNotifier_SendFailure(t *testing.T) {
	s := &fakeSender{err: errors.New("smtp down")}
	n, err := NewEmailNotifierWithSender(s, "jobs@example.com", []string{"a@example.com"}, testRun(t))
	require.NoError(t, err)

	err = n.NotifyStart(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
}

func TestNewEmailNotifier_Validation(t *testing.T) {
	run := testRun(t)
	_, err := NewEmailNotifierWithSender(&fakeSender{}, "", []string{"a@example.com"}, run)
	assert.Error(t, err)
	_, err = NewEmailNotifierWithSender(&fakeSender{}, "x@example.com", nil, run)
	assert.Error(t, err)
	_, err = NewEmailNotifier(SMTPConfig{}, run)
	assert.Error(t, err)
}

func TestLogNotifier(t *testing.T) {
	logger, hook := test.NewNullLogger()
	n := NewLogNotifier(logger, testRun(t))

	ctx := context.Background()
	require.NoError(t, n.NotifyStart(ctx))
	require.NoError(t, n.NotifyError(ctx, "report"))

	require.Len(t, hook.AllEntries(), 2)
	last := hook.LastEntry()
	assert.Equal(t, logrus.ErrorLevel, last.Level)
	assert.Equal(t, "report", last.Data["report"])
	assert.Equal(t, "visit-routes-2026-10-16-22-5-0", last.Data["run"])
}
