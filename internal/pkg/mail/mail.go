package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/labnotes/dailyhi/internal/config"
	"go.uber.org/zap"
)

// Message is a single email to send.
type Message struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// Transport delivers a rendered message.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// ErrNoRecipient is returned for a message without a To address.
var ErrNoRecipient = errors.New("mail: no recipient")

// New builds the transport selected by cfg.Transport.
func New(cfg config.MailConfig, logger *zap.Logger) (Transport, error) {
	switch cfg.Transport {
	case config.TransportSMTP:
		return NewSMTPTransport(cfg.SMTP, cfg.Timeout), nil
	case config.TransportResend:
		return NewResendTransport(cfg.Resend.APIKey, cfg.Timeout), nil
	case config.TransportLog, "":
		return NewLogTransport(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
	}
}

// Sender fills in sender defaults and renders the application's emails.
type Sender struct {
	transport Transport
	from      string
	replyTo   string
}

func NewSender(transport Transport, cfg config.MailConfig) *Sender {
	return &Sender{transport: transport, from: cfg.From, replyTo: cfg.ReplyTo}
}

// Send dispatches msg, defaulting From and ReplyTo.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	msg.To = strings.TrimSpace(msg.To)
	if msg.To == "" {
		return ErrNoRecipient
	}
	if msg.From == "" {
		msg.From = s.from
	}
	if msg.ReplyTo == "" {
		msg.ReplyTo = s.replyTo
	}
	return s.transport.Send(ctx, msg)
}

// SendVerify sends the address verification email to a new subscriber.
func (s *Sender) SendVerify(ctx context.Context, to string, data VerifyData) error {
	text, err := renderText(verifyTextTpl, data)
	if err != nil {
		return err
	}
	return s.Send(ctx, Message{
		To:      to,
		Subject: verifySubject,
		Text:    text,
	})
}

// SendAlert sends a plain-text operator alert.
func (s *Sender) SendAlert(ctx context.Context, to, subject, body string) error {
	return s.Send(ctx, Message{To: to, Subject: subject, Text: body})
}
