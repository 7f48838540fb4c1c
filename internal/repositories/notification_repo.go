package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/cardmint/cardmint/internal/database"
	"github.com/cardmint/cardmint/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationRepository handles the delivery outbox
type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{pool: db.Pool}
}

func scanNotificationRow(scanner rowScanner) (*models.Notification, error) {
	var n models.Notification
	var sentAt *time.Time

	err := scanner.Scan(
		&n.ID, &n.Recipient, &n.Subject, &n.Body, &n.Status, &n.Attempts,
		&n.CreatedAt, &sentAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	n.SentAt = sentAt
	return &n, nil
}

func scanNotificationRows(rows pgx.Rows) ([]*models.Notification, error) {
	defer rows.Close()

	notifications := make([]*models.Notification, 0)

	for rows.Next() {
		n, err := scanNotificationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}

	return notifications, nil
}

func (r *NotificationRepository) Enqueue(ctx context.Context, recipient, subject, body string) (*models.Notification, error) {
	query := `
		INSERT INTO notifications (id, recipient, subject, body, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, recipient, subject, body, status, attempts, created_at, sent_at
	`

	n, err := scanNotificationRow(r.pool.QueryRow(ctx, query,
		uuid.New().String(), recipient, subject, body, models.NotificationPending,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue notification: %w", err)
	}

	return n, nil
}

// ListPending returns the oldest undelivered notifications, capped at limit.
func (r *NotificationRepository) ListPending(ctx context.Context, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, recipient, subject, body, status, attempts, created_at, sent_at
		FROM notifications
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, models.NotificationPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending notifications: %w", err)
	}

	return scanNotificationRows(rows)
}

func (r *NotificationRepository) MarkSent(ctx context.Context, id string) error {
	query := `
		UPDATE notifications
		SET status = $2, attempts = attempts + 1, sent_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, models.NotificationSent)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// RecordFailure bumps the attempt counter and gives up past maxAttempts.
// A failed notification stays in the table for operator inspection.
func (r *NotificationRepository) RecordFailure(ctx context.Context, id string, maxAttempts int) error {
	query := `
		UPDATE notifications
		SET attempts = attempts + 1,
		    status = CASE WHEN attempts + 1 >= $2 THEN $3 ELSE status END
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, maxAttempts, models.NotificationFailed)
	if err != nil {
		return fmt.Errorf("failed to record notification failure: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
