// Package mail delivers transactional email. SendGridSender talks to the
// SendGrid v3 API; LogSender only records what would have been sent and is
// used when no API key is configured.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskd/internal/config"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// ErrDeliveryFailed is returned when the provider rejects a message.
var ErrDeliveryFailed = errors.New("mail delivery failed")

// Message is a single plain-text email to one recipient.
type Message struct {
	ToName    string
	ToAddress string
	Subject   string
	Body      string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender returns a SendGridSender when an API key is configured and a
// LogSender otherwise.
func NewSender(cfg config.MailConfig, logger *slog.Logger) Sender {
	if cfg.SendGridAPIKey == "" {
		return NewLogSender(logger)
	}
	return NewSendGridSender(cfg.SendGridAPIKey, cfg.FromAddress, cfg.FromName, logger)
}

// sendFunc posts one message and reports the provider's HTTP status.
type sendFunc func(ctx context.Context, msg *sgmail.SGMailV3) (int, error)

// SendGridSender sends mail through the SendGrid v3 API.
type SendGridSender struct {
	from   *sgmail.Email
	send   sendFunc
	logger *slog.Logger
}

// Ensure SendGridSender implements Sender interface
var _ Sender = (*SendGridSender)(nil)

// NewSendGridSender creates a sender authenticated with apiKey.
func NewSendGridSender(apiKey, fromAddress, fromName string, logger *slog.Logger) *SendGridSender {
	client := sendgrid.NewSendClient(apiKey)
	return newSendGridSender(fromAddress, fromName, logger,
		func(ctx context.Context, msg *sgmail.SGMailV3) (int, error) {
			resp, err := client.SendWithContext(ctx, msg)
			if err != nil {
				return 0, err
			}
			return resp.StatusCode, nil
		})
}

func newSendGridSender(fromAddress, fromName string, logger *slog.Logger, send sendFunc) *SendGridSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &SendGridSender{
		from:   sgmail.NewEmail(fromName, fromAddress),
		send:   send,
		logger: logger.With(slog.String("component", "sendgrid_sender")),
	}
}

// Send implements Sender.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	to := sgmail.NewEmail(msg.ToName, msg.ToAddress)
	email := sgmail.NewSingleEmail(s.from, msg.Subject, to, msg.Body, "")

	status, err := s.send(ctx, email)
	if err != nil {
		s.logger.Error("sendgrid request failed",
			slog.String("error", err.Error()),
			slog.String("subject", msg.Subject))
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	if status < 200 || status >= 300 {
		s.logger.Warn("sendgrid rejected message",
			slog.Int("status", status),
			slog.String("subject", msg.Subject))
		return fmt.Errorf("%w: provider returned status %d", ErrDeliveryFailed, status)
	}

	s.logger.Debug("message accepted by sendgrid",
		slog.Int("status", status),
		slog.String("subject", msg.Subject))
	return nil
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

// Ensure LogSender implements Sender interface
var _ Sender = (*LogSender)(nil)

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger.With(slog.String("component", "log_sender"))}
}

// Send implements Sender. Recipient addresses are not logged.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "mail delivery skipped, no provider configured",
		slog.String("subject", msg.Subject),
		slog.Int("body_length", len(msg.Body)))
	return nil
}
