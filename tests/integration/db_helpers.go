package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cardmint/cardmint/internal/database"
	"github.com/cardmint/cardmint/internal/models"
	"github.com/cardmint/cardmint/internal/repositories"
	"github.com/cardmint/cardmint/migrations"
)

// TestDB manages the PostgreSQL testcontainer and database handles
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase creates a PostgreSQL testcontainer, runs migrations
// and returns a TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("cardmint"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         &database.DB{Pool: pool},
	}, nil
}

// runMigrations applies the embedded goose migrations
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"notifications",
		"subscriptions",
		"blocked_emails",
		"otps",
		"accounts",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// InitializeRepositories creates all repository instances
func InitializeRepositories(db *database.DB) (
	*repositories.AccountRepository,
	*repositories.OTPRepository,
	*repositories.BlockRepository,
	*repositories.SubscriptionRepository,
	*repositories.NotificationRepository,
) {
	return repositories.NewAccountRepository(db),
		repositories.NewOTPRepository(db),
		repositories.NewBlockRepository(db),
		repositories.NewSubscriptionRepository(db),
		repositories.NewNotificationRepository(db)
}

// SeedAccount inserts a test account
func SeedAccount(ctx context.Context, pool *pgxpool.Pool, email, role string) (*models.Account, error) {
	query := `
		INSERT INTO accounts (id, email, role, created_at)
		VALUES (gen_random_uuid(), $1, $2, NOW())
		RETURNING id, email, display_name, role, created_at
	`

	var account models.Account
	err := pool.QueryRow(ctx, query, email, role).Scan(
		&account.ID,
		&account.Email,
		&account.DisplayName,
		&account.Role,
		&account.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}

	return &account, nil
}

// SeedExpiredOTP inserts a code that is already past its expiry
func SeedExpiredOTP(ctx context.Context, pool *pgxpool.Pool, email, code string) error {
	query := `
		INSERT INTO otps (id, email, code, created_at, expires_at)
		VALUES (gen_random_uuid(), $1, $2, NOW() - INTERVAL '10 minutes', NOW() - INTERVAL '5 minutes')
	`

	if _, err := pool.Exec(ctx, query, email, code); err != nil {
		return fmt.Errorf("failed to insert expired otp: %w", err)
	}

	return nil
}

// CountRows returns the row count of a table matching a single equality
// condition
func CountRows(ctx context.Context, pool *pgxpool.Pool, table, column, value string) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = $1", table, column)
	if err := pool.QueryRow(ctx, query, value).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return count, nil
}
