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

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const accountColumns = "id, email, display_name, password_hash, role, created_at, last_login_at"

// scanAccountRow handles nullable fields and populates an Account model from a database row
func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account
	var passwordHash *string

	err := scanner.Scan(
		&account.ID, &account.Email, &account.DisplayName, &passwordHash,
		&account.Role, &account.CreatedAt, &account.LastLoginAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if passwordHash != nil {
		account.PasswordHash = *passwordHash
	}

	return &account, nil
}

// Upsert inserts the account or, if the email is already registered,
// refreshes last_login_at and the derived role. One statement, no
// read-then-write window.
func (r *AccountRepository) Upsert(ctx context.Context, account *models.Account) (*models.Account, error) {
	now := time.Now()

	query := `
		INSERT INTO accounts (id, email, display_name, role, created_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (email) DO UPDATE
		SET last_login_at = EXCLUDED.last_login_at, role = EXCLUDED.role
		RETURNING ` + accountColumns

	upserted, err := scanAccountRow(r.pool.QueryRow(ctx, query,
		uuid.New().String(), account.Email, account.DisplayName, account.Role, now,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert account: %w", err)
	}

	return upserted, nil
}

// Create inserts a new account, returning models.ErrConflict if the email
// is already registered. Used by the password sign-up path.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	now := time.Now()

	query := `
		INSERT INTO accounts (id, email, display_name, password_hash, role, created_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING ` + accountColumns

	var passwordHash *string
	if account.PasswordHash != "" {
		passwordHash = &account.PasswordHash
	}

	created, err := scanAccountRow(r.pool.QueryRow(ctx, query,
		uuid.New().String(), account.Email, account.DisplayName, passwordHash, account.Role, now,
	))
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	account, err := scanAccountRow(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, err
	}

	return account, nil
}

func (r *AccountRepository) Exists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}

	return exists, nil
}

// SetPassword stores a new password hash for an existing account.
func (r *AccountRepository) SetPassword(ctx context.Context, email, passwordHash string) error {
	query := `UPDATE accounts SET password_hash = $1 WHERE email = $2`

	result, err := r.pool.Exec(ctx, query, passwordHash, email)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// TouchLastLogin records a successful sign-in.
func (r *AccountRepository) TouchLastLogin(ctx context.Context, email string) error {
	query := `UPDATE accounts SET last_login_at = NOW() WHERE email = $1`

	result, err := r.pool.Exec(ctx, query, email)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
