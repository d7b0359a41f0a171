package alert

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Reporter notifies the operator that something went wrong in a background run.
type Reporter interface {
	Report(ctx context.Context, subject, body string) error
}

// AlertSender is the part of mail.Sender used for operator email.
type AlertSender interface {
	SendAlert(ctx context.Context, to, subject, body string) error
}

// EmailReporter mails alerts to a single operator address.
type EmailReporter struct {
	sender AlertSender
	to     string
}

func NewEmailReporter(sender AlertSender, to string) *EmailReporter {
	return &EmailReporter{sender: sender, to: strings.TrimSpace(to)}
}

func (r *EmailReporter) Report(ctx context.Context, subject, body string) error {
	if r.to == "" {
		return nil
	}
	return r.sender.SendAlert(ctx, r.to, "[dailyhi] "+subject, body)
}

// Multi fans a report out to every reporter and joins their errors.
type Multi []Reporter

func (m Multi) Report(ctx context.Context, subject, body string) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Report(ctx, subject, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Logged wraps a reporter so failures to report are logged, not returned.
func Logged(r Reporter, logger *zap.Logger) Reporter {
	return loggedReporter{next: r, logger: logger.Named("Alert")}
}

type loggedReporter struct {
	next   Reporter
	logger *zap.Logger
}

func (l loggedReporter) Report(ctx context.Context, subject, body string) error {
	if err := l.next.Report(ctx, subject, body); err != nil {
		l.logger.Warn("failed to report alert", zap.String("subject", subject), zap.Error(err))
	}
	return nil
}
