package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"net/mail"
	"time"

	"github.com/cardmint/cardmint/internal/models"
	pkglogger "github.com/cardmint/cardmint/pkg/logger"
)

// OTPRepository defines the interface for one-time passcode operations
type OTPRepository interface {
	Create(ctx context.Context, email, code string, expiresAt time.Time) (*models.OneTimePassword, error)
	Consume(ctx context.Context, email, code string) (bool, error)
	PruneOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// OTPService issues and verifies short-lived login codes
type OTPService struct {
	repo          OTPRepository
	notifications NotificationEnqueuer
	logger        *slog.Logger
	audit         *pkglogger.AuditLogger
	expiry        time.Duration
}

// NewOTPService creates a new OTPService
func NewOTPService(repo OTPRepository, notifications NotificationEnqueuer, logger *slog.Logger, audit *pkglogger.AuditLogger, expiry time.Duration) *OTPService {
	return &OTPService{
		repo:          repo,
		notifications: notifications,
		logger:        logger,
		audit:         audit,
		expiry:        expiry,
	}
}

// generateCode returns a uniformly random six-digit code (100000-999999)
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Issue generates, stores and dispatches a new code for the email. A
// resend is just a second Issue; earlier unexpired codes stay valid until
// used or expired.
func (s *OTPService) Issue(ctx context.Context, email string) error {
	email = models.NormalizeEmail(email)
	if email == "" {
		return models.ErrBadRequest
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return models.ErrBadRequest
	}

	code, err := generateCode()
	if err != nil {
		s.logger.Error("failed to generate otp code", slog.Any("error", err))
		return models.ErrInternalServer
	}

	expiresAt := time.Now().Add(s.expiry)

	if _, err := s.repo.Create(ctx, email, code, expiresAt); err != nil {
		s.logger.Error("failed to store otp",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	subject := "Your cardmint login code"
	body := fmt.Sprintf("Your one-time login code is %s. It expires in %d minutes.",
		code, int(s.expiry.Minutes()))
	s.notifications.Enqueue(ctx, email, subject, body)

	s.logger.Info("otp issued",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.Time("expires_at", expiresAt))

	return nil
}

// Verify consumes the code if it is current, unused and matches. A wrong,
// expired or reused code is a normal negative result, not an error; two
// concurrent verifications of the same code succeed at most once.
func (s *OTPService) Verify(ctx context.Context, email, code string) (bool, error) {
	email = models.NormalizeEmail(email)
	if email == "" || code == "" {
		return false, nil
	}

	ok, err := s.repo.Consume(ctx, email, code)
	if err != nil {
		s.logger.Error("failed to verify otp",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return false, models.ErrInternalServer
	}

	s.audit.LogAuthAttempt("otp_verify", email, ok)

	return ok, nil
}

// Prune removes codes older than the retention window.
func (s *OTPService) Prune(ctx context.Context, age time.Duration) (int64, error) {
	return s.repo.PruneOlderThan(ctx, age)
}
