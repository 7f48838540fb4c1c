package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cardmint/cardmint/internal/database"
	"github.com/cardmint/cardmint/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository handles the access-control ledger. The
// UNIQUE(email, resource_id) constraint is what keeps one logical entry
// per pair under concurrent duplicate submissions.
type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepository(db *database.DB) *SubscriptionRepository {
	return &SubscriptionRepository{pool: db.Pool}
}

const subscriptionColumns = "id, email, resource_id, resource_label, status, payment_ref, requested_at, approved_at, rejected_at, paid_at"

func scanSubscriptionRow(scanner rowScanner) (*models.Subscription, error) {
	var sub models.Subscription
	var paymentRef *string
	var approvedAt, rejectedAt, paidAt *time.Time

	err := scanner.Scan(
		&sub.ID, &sub.Email, &sub.ResourceID, &sub.ResourceLabel, &sub.Status,
		&paymentRef, &sub.RequestedAt, &approvedAt, &rejectedAt, &paidAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if paymentRef != nil {
		sub.PaymentRef = *paymentRef
	}
	sub.ApprovedAt = approvedAt
	sub.RejectedAt = rejectedAt
	sub.PaidAt = paidAt

	return &sub, nil
}

func scanSubscriptionRows(rows pgx.Rows) ([]*models.Subscription, error) {
	defer rows.Close()

	subs := make([]*models.Subscription, 0)

	for rows.Next() {
		sub, err := scanSubscriptionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscription rows: %w", err)
	}

	return subs, nil
}

// InsertIfAbsent creates a pending entry for (email, resource) unless one
// already exists, in which case the existing entry is returned untouched.
// ON CONFLICT DO NOTHING plus a follow-up read keeps the operation safe
// under concurrent duplicate requests: the constraint guarantees a single
// surviving row either way.
func (r *SubscriptionRepository) InsertIfAbsent(ctx context.Context, email, resourceID, resourceLabel string) (bool, *models.Subscription, error) {
	query := `
		INSERT INTO subscriptions (id, email, resource_id, resource_label, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (email, resource_id) DO NOTHING
		RETURNING ` + subscriptionColumns

	sub, err := scanSubscriptionRow(r.pool.QueryRow(ctx, query,
		uuid.New().String(), email, resourceID, resourceLabel, models.SubscriptionPending,
	))
	if err == nil {
		return true, sub, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return false, nil, fmt.Errorf("failed to insert subscription: %w", err)
	}

	// Conflict path: the pair already has its entry.
	existing, err := r.GetByEmailAndResource(ctx, email, resourceID)
	if err != nil {
		return false, nil, err
	}

	return false, existing, nil
}

// UpsertPayment records a payment claim: an existing entry moves to
// payment_pending with the reference overwritten (last write wins), an
// absent pair gets a row created directly in payment_pending.
func (r *SubscriptionRepository) UpsertPayment(ctx context.Context, email, resourceID, resourceLabel, paymentRef string) (*models.Subscription, error) {
	query := `
		INSERT INTO subscriptions (id, email, resource_id, resource_label, status, payment_ref, requested_at, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (email, resource_id) DO UPDATE
		SET status = EXCLUDED.status, payment_ref = EXCLUDED.payment_ref, paid_at = EXCLUDED.paid_at
		RETURNING ` + subscriptionColumns

	sub, err := scanSubscriptionRow(r.pool.QueryRow(ctx, query,
		uuid.New().String(), email, resourceID, resourceLabel, models.SubscriptionPaymentPending, paymentRef,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	return sub, nil
}

// SetStatus moves an entry to approved or rejected, stamping the matching
// timestamp. Works from any prior status so the admin can re-decide.
func (r *SubscriptionRepository) SetStatus(ctx context.Context, id, status string) (*models.Subscription, error) {
	var query string
	switch status {
	case models.SubscriptionApproved:
		query = `UPDATE subscriptions SET status = $2, approved_at = NOW() WHERE id = $1 RETURNING ` + subscriptionColumns
	case models.SubscriptionRejected:
		query = `UPDATE subscriptions SET status = $2, rejected_at = NOW() WHERE id = $1 RETURNING ` + subscriptionColumns
	default:
		return nil, fmt.Errorf("unsupported status transition to %q", status)
	}

	sub, err := scanSubscriptionRow(r.pool.QueryRow(ctx, query, id, status))
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`

	sub, err := scanSubscriptionRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (r *SubscriptionRepository) GetByEmailAndResource(ctx context.Context, email, resourceID string) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE email = $1 AND resource_id = $2`

	sub, err := scanSubscriptionRow(r.pool.QueryRow(ctx, query, email, resourceID))
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (r *SubscriptionRepository) ListByEmail(ctx context.Context, email string) ([]*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE email = $1 ORDER BY requested_at DESC`

	rows, err := r.pool.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}

	return scanSubscriptionRows(rows)
}

func (r *SubscriptionRepository) ListByStatus(ctx context.Context, status string) ([]*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE status = $1 ORDER BY requested_at ASC`

	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions by status: %w", err)
	}

	return scanSubscriptionRows(rows)
}

// HasApproved reports whether an approved entry exists for the pair.
func (r *SubscriptionRepository) HasApproved(ctx context.Context, email, resourceID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM subscriptions
			WHERE email = $1 AND resource_id = $2 AND status = $3
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, email, resourceID, models.SubscriptionApproved).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check approval: %w", err)
	}

	return exists, nil
}
