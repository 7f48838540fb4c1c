package services

import (
	"context"
	"log/slog"

	"github.com/cardmint/cardmint/internal/models"
	pkglogger "github.com/cardmint/cardmint/pkg/logger"
)

// BlockRepository defines the interface for the email denylist
type BlockRepository interface {
	Upsert(ctx context.Context, entry *models.BlockEntry) error
	Delete(ctx context.Context, email string) error
	Exists(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]*models.BlockEntry, error)
}

// BlockService maintains the denylist consulted before any session is
// granted. It is a pure guard: it never mutates accounts or ledger rows.
// Rejecting a block of the admin's own email is the caller's job.
type BlockService struct {
	repo   BlockRepository
	logger *slog.Logger
	audit  *pkglogger.AuditLogger
}

// NewBlockService creates a new BlockService
func NewBlockService(repo BlockRepository, logger *slog.Logger, audit *pkglogger.AuditLogger) *BlockService {
	return &BlockService{
		repo:   repo,
		logger: logger,
		audit:  audit,
	}
}

// Block denylists an email. Idempotent: re-blocking overwrites the
// recorded reason and timestamp.
func (s *BlockService) Block(ctx context.Context, email, blockedBy, reason string) error {
	email = models.NormalizeEmail(email)
	if email == "" {
		return models.ErrBadRequest
	}

	entry := &models.BlockEntry{
		Email:     email,
		BlockedBy: models.NormalizeEmail(blockedBy),
		Reason:    reason,
	}

	if err := s.repo.Upsert(ctx, entry); err != nil {
		s.logger.Error("failed to block email",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.LogBlockAction("block", email, entry.BlockedBy)
	s.logger.Info("email blocked", slog.String("email", pkglogger.SanitizedEmail(email)))
	return nil
}

// Unblock removes an email from the denylist; no-op if not blocked.
func (s *BlockService) Unblock(ctx context.Context, email string) error {
	email = models.NormalizeEmail(email)
	if email == "" {
		return models.ErrBadRequest
	}

	if err := s.repo.Delete(ctx, email); err != nil {
		s.logger.Error("failed to unblock email",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.LogBlockAction("unblock", email, "")
	s.logger.Info("email unblocked", slog.String("email", pkglogger.SanitizedEmail(email)))
	return nil
}

// IsBlocked reports whether the email is denylisted. An empty email is
// defined to be not blocked.
func (s *BlockService) IsBlocked(ctx context.Context, email string) (bool, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return false, nil
	}

	blocked, err := s.repo.Exists(ctx, email)
	if err != nil {
		s.logger.Error("failed to check block list",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return false, models.ErrInternalServer
	}

	return blocked, nil
}

// ListBlocked returns every denylist entry for admin review.
func (s *BlockService) ListBlocked(ctx context.Context) ([]*models.BlockEntry, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list blocked emails", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return entries, nil
}
