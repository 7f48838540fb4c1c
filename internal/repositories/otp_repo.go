package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/cardmint/cardmint/internal/database"
	"github.com/cardmint/cardmint/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OTPRepository handles one-time passcode data access
type OTPRepository struct {
	pool *pgxpool.Pool
}

func NewOTPRepository(db *database.DB) *OTPRepository {
	return &OTPRepository{pool: db.Pool}
}

// scanOTPRow handles nullable fields and populates a OneTimePassword model from a database row
func scanOTPRow(scanner rowScanner) (*models.OneTimePassword, error) {
	var otp models.OneTimePassword
	var usedAt *time.Time

	err := scanner.Scan(
		&otp.ID, &otp.Email, &otp.Code, &otp.ExpiresAt, &usedAt, &otp.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	otp.UsedAt = usedAt
	return &otp, nil
}

// Create persists a new passcode. Outstanding codes for the same email are
// left untouched; several may be valid at once.
func (r *OTPRepository) Create(ctx context.Context, email, code string, expiresAt time.Time) (*models.OneTimePassword, error) {
	query := `
		INSERT INTO otps (id, email, code, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, code, expires_at, used_at, created_at
	`

	otp, err := scanOTPRow(r.pool.QueryRow(ctx, query, uuid.New().String(), email, code, expiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create otp: %w", err)
	}

	return otp, nil
}

// Consume atomically marks the most recent matching, unused, unexpired
// code as used. The outer used_at guard makes concurrent submissions of
// the same code settle to exactly one winner: the loser re-evaluates the
// predicate against the updated row and affects zero rows.
func (r *OTPRepository) Consume(ctx context.Context, email, code string) (bool, error) {
	query := `
		UPDATE otps SET used_at = NOW()
		WHERE id = (
			SELECT id FROM otps
			WHERE email = $1 AND code = $2 AND used_at IS NULL AND expires_at > NOW()
			ORDER BY created_at DESC
			LIMIT 1
		)
		AND used_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, email, code)
	if err != nil {
		return false, fmt.Errorf("failed to consume otp: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// GetLatestByEmail returns the most recently issued code for an email,
// used or not. Admin tooling and tests only.
func (r *OTPRepository) GetLatestByEmail(ctx context.Context, email string) (*models.OneTimePassword, error) {
	query := `
		SELECT id, email, code, expires_at, used_at, created_at
		FROM otps
		WHERE email = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	otp, err := scanOTPRow(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, err
	}

	return otp, nil
}

// PruneOlderThan deletes codes issued before the cutoff, used or expired
// alike. Consumed codes inside the window are kept as an audit trail.
func (r *OTPRepository) PruneOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	query := `DELETE FROM otps WHERE created_at < $1`

	result, err := r.pool.Exec(ctx, query, time.Now().Add(-age))
	if err != nil {
		return 0, fmt.Errorf("failed to prune otps: %w", err)
	}

	return result.RowsAffected(), nil
}
