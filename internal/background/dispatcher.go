package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/cardmint/cardmint/internal/models"
	"github.com/cardmint/cardmint/internal/services"
	pkglogger "github.com/cardmint/cardmint/pkg/logger"
)

const dispatchBatchSize = 50

// OutboxRepository is the slice of the notification store the dispatcher
// needs
type OutboxRepository interface {
	ListPending(ctx context.Context, limit int) ([]*models.Notification, error)
	MarkSent(ctx context.Context, id string) error
	RecordFailure(ctx context.Context, id string, maxAttempts int) error
}

// Dispatcher drains the notification outbox on an interval. Delivery is
// at-least-once: a crash between Notify and MarkSent re-sends the row on
// the next pass. Rows that keep failing are parked as failed once they
// exhaust their attempts.
type Dispatcher struct {
	repo        OutboxRepository
	notifier    services.Notifier
	logger      *slog.Logger
	interval    time.Duration
	maxAttempts int
	stopCh      chan struct{}
}

// NewDispatcher creates a new outbox dispatcher
func NewDispatcher(
	repo OutboxRepository,
	notifier services.Notifier,
	logger *slog.Logger,
	interval time.Duration,
	maxAttempts int,
) *Dispatcher {
	return &Dispatcher{
		repo:        repo,
		notifier:    notifier,
		logger:      logger,
		interval:    interval,
		maxAttempts: maxAttempts,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the periodic dispatch loop
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.dispatchBatch(ctx)

	for {
		select {
		case <-ticker.C:
			d.dispatchBatch(ctx)
		case <-d.stopCh:
			d.logger.Info("notification dispatcher stopped")
			return
		case <-ctx.Done():
			d.logger.Info("notification dispatcher context cancelled")
			return
		}
	}
}

func (d *Dispatcher) dispatchBatch(ctx context.Context) {
	batchCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	pending, err := d.repo.ListPending(batchCtx, dispatchBatchSize)
	if err != nil {
		d.logger.Error("failed to list pending notifications", slog.Any("error", err))
		return
	}

	for _, n := range pending {
		if batchCtx.Err() != nil {
			return
		}
		d.dispatchOne(batchCtx, n)
	}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, n *models.Notification) {
	if err := d.notifier.Notify(ctx, n.Recipient, n.Subject, n.Body); err != nil {
		d.logger.Error("notification delivery failed",
			slog.String("notification_id", n.ID),
			slog.String("recipient", pkglogger.SanitizedEmail(n.Recipient)),
			slog.Int("attempts", n.Attempts+1),
			slog.Any("error", err))
		if err := d.repo.RecordFailure(ctx, n.ID, d.maxAttempts); err != nil {
			d.logger.Error("failed to record delivery failure",
				slog.String("notification_id", n.ID),
				slog.Any("error", err))
		}
		return
	}

	if err := d.repo.MarkSent(ctx, n.ID); err != nil {
		// Will be re-sent next pass; acceptable under at-least-once.
		d.logger.Error("failed to mark notification sent",
			slog.String("notification_id", n.ID),
			slog.Any("error", err))
		return
	}

	d.logger.Info("notification sent",
		slog.String("notification_id", n.ID),
		slog.String("recipient", pkglogger.SanitizedEmail(n.Recipient)))
}

// Stop signals the dispatcher to stop
func (d *Dispatcher) Stop() {
	close(d.stopCh)
}
