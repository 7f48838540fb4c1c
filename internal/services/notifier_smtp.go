package services

import (
	"context"
	"fmt"
	"log/slog"

	pkglogger "github.com/cardmint/cardmint/pkg/logger"
	"gopkg.in/gomail.v2"
)

// SMTPNotifier delivers notifications through a plain SMTP relay. Used
// where SES is unavailable (self-hosted deployments).
type SMTPNotifier struct {
	dialer      *gomail.Dialer
	fromAddress string
	logger      *slog.Logger
}

// NewSMTPNotifier creates a new SMTP notification provider
func NewSMTPNotifier(host string, port int, user, password, fromAddress string, logger *slog.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		dialer:      gomail.NewDialer(host, port, user, password),
		fromAddress: fromAddress,
		logger:      logger,
	}
}

func (n *SMTPNotifier) Notify(ctx context.Context, recipient, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", n.fromAddress)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := n.dialer.DialAndSend(m); err != nil {
		n.logger.Error("failed to send notification via SMTP",
			slog.String("recipient", pkglogger.SanitizedEmail(recipient)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.Info("notification sent",
		slog.String("recipient", pkglogger.SanitizedEmail(recipient)))

	return nil
}
