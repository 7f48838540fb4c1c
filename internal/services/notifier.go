package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cardmint/cardmint/internal/config"
	pkglogger "github.com/cardmint/cardmint/pkg/logger"
)

// Notifier delivers a single message to a recipient. Implementations are
// providers; the outbox dispatcher decides when and how often to call.
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, body string) error
}

// NewNotifier builds the provider selected by configuration.
func NewNotifier(cfg *config.NotifyConfig, logger *slog.Logger) (Notifier, error) {
	switch cfg.Provider {
	case "ses":
		return NewSESNotifier(cfg.AWSRegion, cfg.FromAddress, logger)
	case "smtp":
		return NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.FromAddress, logger), nil
	case "noop":
		return &NoopNotifier{logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown notify provider %q", cfg.Provider)
	}
}

// NoopNotifier logs instead of sending. Development default.
type NoopNotifier struct {
	logger *slog.Logger
}

func (n *NoopNotifier) Notify(ctx context.Context, recipient, subject, body string) error {
	n.logger.Info("notification suppressed (noop provider)",
		slog.String("recipient", pkglogger.SanitizedEmail(recipient)),
		slog.String("subject", subject))
	return nil
}
