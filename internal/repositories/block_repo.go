package repositories

import (
	"context"
	"fmt"

	"github.com/cardmint/cardmint/internal/database"
	"github.com/cardmint/cardmint/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BlockRepository handles the email denylist
type BlockRepository struct {
	pool *pgxpool.Pool
}

func NewBlockRepository(db *database.DB) *BlockRepository {
	return &BlockRepository{pool: db.Pool}
}

func scanBlockRow(scanner rowScanner) (*models.BlockEntry, error) {
	var entry models.BlockEntry

	err := scanner.Scan(&entry.Email, &entry.BlockedBy, &entry.Reason, &entry.BlockedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &entry, nil
}

func scanBlockRows(rows pgx.Rows) ([]*models.BlockEntry, error) {
	defer rows.Close()

	entries := make([]*models.BlockEntry, 0)

	for rows.Next() {
		entry, err := scanBlockRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan block entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating block rows: %w", err)
	}

	return entries, nil
}

// Upsert blocks an email, overwriting blocked_by, reason and timestamp on
// re-block. Idempotent.
func (r *BlockRepository) Upsert(ctx context.Context, entry *models.BlockEntry) error {
	query := `
		INSERT INTO blocked_emails (email, blocked_by, reason, blocked_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (email) DO UPDATE
		SET blocked_by = EXCLUDED.blocked_by, reason = EXCLUDED.reason, blocked_at = EXCLUDED.blocked_at
	`

	if _, err := r.pool.Exec(ctx, query, entry.Email, entry.BlockedBy, entry.Reason); err != nil {
		return fmt.Errorf("failed to block email: %w", err)
	}

	return nil
}

// Delete removes a block entry. No-op if the email was not blocked.
func (r *BlockRepository) Delete(ctx context.Context, email string) error {
	query := `DELETE FROM blocked_emails WHERE email = $1`

	if _, err := r.pool.Exec(ctx, query, email); err != nil {
		return fmt.Errorf("failed to unblock email: %w", err)
	}

	return nil
}

func (r *BlockRepository) Exists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM blocked_emails WHERE email = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check block entry: %w", err)
	}

	return exists, nil
}

func (r *BlockRepository) List(ctx context.Context) ([]*models.BlockEntry, error) {
	query := `
		SELECT email, blocked_by, reason, blocked_at
		FROM blocked_emails
		ORDER BY blocked_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query block entries: %w", err)
	}

	return scanBlockRows(rows)
}
