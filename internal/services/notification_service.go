package services

import (
	"context"
	"log/slog"

	"github.com/cardmint/cardmint/internal/models"
	pkglogger "github.com/cardmint/cardmint/pkg/logger"
)

// NotificationEnqueuer is what the domain services see: a call that never
// fails from their point of view. Delivery happens later, out of band.
type NotificationEnqueuer interface {
	Enqueue(ctx context.Context, recipient, subject, body string)
}

// NotificationRepository defines the interface for outbox data access
type NotificationRepository interface {
	Enqueue(ctx context.Context, recipient, subject, body string) (*models.Notification, error)
	ListPending(ctx context.Context, limit int) ([]*models.Notification, error)
	MarkSent(ctx context.Context, id string) error
	RecordFailure(ctx context.Context, id string, maxAttempts int) error
}

// NotificationService writes outbox rows. An enqueue failure is logged
// and dropped; no operation may fail because a notification could not be
// recorded.
type NotificationService struct {
	repo   NotificationRepository
	logger *slog.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(repo NotificationRepository, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		repo:   repo,
		logger: logger,
	}
}

func (s *NotificationService) Enqueue(ctx context.Context, recipient, subject, body string) {
	if recipient == "" {
		return
	}

	if _, err := s.repo.Enqueue(ctx, recipient, subject, body); err != nil {
		s.logger.Error("failed to enqueue notification",
			slog.String("recipient", pkglogger.SanitizedEmail(recipient)),
			slog.String("subject", subject),
			slog.Any("error", err))
	}
}
