package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cardmint/cardmint/internal/models"
	pkgauth "github.com/cardmint/cardmint/pkg/auth"
	pkglogger "github.com/cardmint/cardmint/pkg/logger"
)

// AccountRepository defines the interface for account data access. Both
// identity paths (OTP challenge and password credential) write the same
// accounts table through this single interface.
type AccountRepository interface {
	Upsert(ctx context.Context, account *models.Account) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	Exists(ctx context.Context, email string) (bool, error)
	SetPassword(ctx context.Context, email, passwordHash string) error
	TouchLastLogin(ctx context.Context, email string) error
}

// AccountService handles account registry business logic
type AccountService struct {
	repo          AccountRepository
	notifications NotificationEnqueuer
	logger        *slog.Logger
	audit         *pkglogger.AuditLogger
	adminEmail    string
}

// NewAccountService creates a new AccountService
func NewAccountService(repo AccountRepository, notifications NotificationEnqueuer, logger *slog.Logger, audit *pkglogger.AuditLogger, adminEmail string) *AccountService {
	return &AccountService{
		repo:          repo,
		notifications: notifications,
		logger:        logger,
		audit:         audit,
		adminEmail:    adminEmail,
	}
}

// CreateOrUpdate upserts the account for a freshly verified email. The
// role is derived from the configured admin address on every call; a
// client can never set it.
func (s *AccountService) CreateOrUpdate(ctx context.Context, email string) (*models.Account, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, models.ErrBadRequest
	}

	account := &models.Account{
		Email: email,
		Role:  models.RoleForEmail(email, s.adminEmail),
	}

	upserted, err := s.repo.Upsert(ctx, account)
	if err != nil {
		s.logger.Error("failed to upsert account",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if upserted.Role != models.RoleSuperadmin {
		s.notifications.Enqueue(ctx, s.adminEmail,
			"User signed in",
			"A user signed in to the card studio: "+email)
	}

	s.logger.Info("account upserted",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("role", upserted.Role))

	return upserted, nil
}

// Exists reports whether an account is registered for the email.
func (s *AccountService) Exists(ctx context.Context, email string) (bool, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return false, nil
	}

	exists, err := s.repo.Exists(ctx, email)
	if err != nil {
		s.logger.Error("failed to check account existence",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return false, models.ErrInternalServer
	}

	return exists, nil
}

// SignUp registers a password-based account. Fails with ErrConflict if
// the email is already registered via either identity path.
func (s *AccountService) SignUp(ctx context.Context, name, email, password string) (*models.Account, error) {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, models.ErrBadRequest
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, models.ErrBadRequest
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	account := &models.Account{
		Email:        email,
		DisplayName:  name,
		PasswordHash: hash,
		Role:         models.RoleForEmail(email, s.adminEmail),
	}

	created, err := s.repo.Create(ctx, account)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.logger.Info("signup for existing account",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create account",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("account created",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("role", created.Role))

	return created, nil
}

// SignIn authenticates a password-based account. ErrNotFound if the
// account is absent, ErrUnauthorized on a hash mismatch.
func (s *AccountService) SignIn(ctx context.Context, email, password string) (*models.Account, error) {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, models.ErrBadRequest
	}

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load account",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if account.PasswordHash == "" {
		s.audit.LogAuthAttempt("sign_in", email, false)
		return nil, models.ErrUnauthorized
	}

	if err := pkgauth.ComparePassword(account.PasswordHash, password); err != nil {
		s.audit.LogAuthAttempt("sign_in", email, false)
		return nil, models.ErrUnauthorized
	}

	if err := s.repo.TouchLastLogin(ctx, email); err != nil {
		s.logger.Error("failed to record login",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
	}

	s.audit.LogAuthAttempt("sign_in", email, true)
	return account, nil
}

// ResetPassword replaces the stored hash for an existing account.
func (s *AccountService) ResetPassword(ctx context.Context, email, newPassword string) error {
	email = models.NormalizeEmail(email)
	if email == "" || newPassword == "" {
		return models.ErrBadRequest
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return models.ErrBadRequest
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.SetPassword(ctx, email, hash); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to reset password",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password reset", slog.String("email", pkglogger.SanitizedEmail(email)))
	return nil
}
