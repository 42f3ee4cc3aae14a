package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"visit-route-service/internal/jobrun"
	"visit-route-service/internal/platform/obs"
)

// Sender delivers composed messages; *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// EmailNotifier mails run lifecycle events to a fixed recipient list.
type EmailNotifier struct {
	sender Sender
	from   string
	to     []string
	run    *jobrun.Run
	now    func() time.Time
}

func NewEmailNotifier(cfg SMTPConfig, run *jobrun.Run) (*EmailNotifier, error) {
	if cfg.Host == "" {
		return nil, errors.New("email notifier: smtp host is empty")
	}
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return NewEmailNotifierWithSender(dialer, cfg.From, cfg.To, run)
}

func NewEmailNotifierWithSender(sender Sender, from string, to []string, run *jobrun.Run) (*EmailNotifier, error) {
	if sender == nil {
		return nil, errors.New("email notifier: sender is nil")
	}
	if from == "" {
		return nil, errors.New("email notifier: from address is empty")
	}
	if len(to) == 0 {
		return nil, errors.New("email notifier: no recipients")
	}
	if run == nil {
		return nil, errors.New("email notifier: run is nil")
	}
	return &EmailNotifier{sender: sender, from: from, to: to, run: run, now: time.Now}, nil
}

func (n *EmailNotifier) NotifyStart(ctx context.Context) (err error) {
	defer obs.Time(ctx, "notify.start")(&err)

	body := fmt.Sprintf(
		"Route generation started.\n\nRun: %s\nRun id: %s\nPlan date: %s\nStarted at: %s\n",
		n.run.FullName(), n.run.ID(), n.run.DateToken(), n.run.GeneratedAt().Format(time.RFC3339),
	)
	return n.send("[%s] started", body)
}

func (n *EmailNotifier) NotifyFinish(ctx context.Context) (err error) {
	defer obs.Time(ctx, "notify.finish")(&err)

	body := fmt.Sprintf(
		"Route generation finished.\n\nRun: %s\nRun id: %s\nPlan date: %s\nElapsed: %s\n",
		n.run.FullName(), n.run.ID(), n.run.DateToken(),
		n.now().Sub(n.run.GeneratedAt()).Round(time.Second),
	)
	return n.send("[%s] finished", body)
}

func (n *EmailNotifier) NotifyError(ctx context.Context, report string) (err error) {
	defer obs.Time(ctx, "notify.error")(&err)

	var b strings.Builder
	fmt.Fprintf(&b, "Route generation failed.\n\nRun: %s\nRun id: %s\n\n", n.run.FullName(), n.run.ID())
	b.WriteString(report)
	return n.send("[%s] FAILED", b.String())
}

func (n *EmailNotifier) send(subjectFormat, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", n.from)
	msg.SetHeader("To", n.to...)
	msg.SetHeader("Subject", fmt.Sprintf(subjectFormat, n.run.FullName()))
	msg.SetBody("text/plain", body)

	if err := n.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
