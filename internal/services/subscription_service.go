package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cardmint/cardmint/internal/models"
	pkglogger "github.com/cardmint/cardmint/pkg/logger"
)

// SubscriptionRepository defines the interface for the access-control ledger
type SubscriptionRepository interface {
	InsertIfAbsent(ctx context.Context, email, resourceID, resourceLabel string) (bool, *models.Subscription, error)
	UpsertPayment(ctx context.Context, email, resourceID, resourceLabel, paymentRef string) (*models.Subscription, error)
	SetStatus(ctx context.Context, id, status string) (*models.Subscription, error)
	GetByID(ctx context.Context, id string) (*models.Subscription, error)
	ListByEmail(ctx context.Context, email string) ([]*models.Subscription, error)
	ListByStatus(ctx context.Context, status string) ([]*models.Subscription, error)
	HasApproved(ctx context.Context, email, resourceID string) (bool, error)
}

// RequestResult reports the outcome of a subscription request
type RequestResult struct {
	Existed bool
	Status  string
}

// SubscriptionService drives the four-state ledger gating premium
// downloads. Payment claims never self-approve; only Approve moves an
// entry into the state HasPaid honors.
type SubscriptionService struct {
	repo          SubscriptionRepository
	notifications NotificationEnqueuer
	logger        *slog.Logger
	audit         *pkglogger.AuditLogger
	adminEmail    string
}

// NewSubscriptionService creates a new SubscriptionService
func NewSubscriptionService(repo SubscriptionRepository, notifications NotificationEnqueuer, logger *slog.Logger, audit *pkglogger.AuditLogger, adminEmail string) *SubscriptionService {
	return &SubscriptionService{
		repo:          repo,
		notifications: notifications,
		logger:        logger,
		audit:         audit,
		adminEmail:    adminEmail,
	}
}

// Request opens a pending entry for (email, resource). Idempotent: an
// existing entry is returned with its current status, never duplicated.
func (s *SubscriptionService) Request(ctx context.Context, email, resourceID, resourceLabel string) (*RequestResult, error) {
	email = models.NormalizeEmail(email)
	if email == "" || resourceID == "" {
		return nil, models.ErrBadRequest
	}

	created, sub, err := s.repo.InsertIfAbsent(ctx, email, resourceID, resourceLabel)
	if err != nil {
		s.logger.Error("failed to request subscription",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.String("resource_id", resourceID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if created {
		s.notifications.Enqueue(ctx, s.adminEmail,
			"New subscription request",
			fmt.Sprintf("%s requested access to %s (%s).", email, resourceLabel, resourceID))
		s.logger.Info("subscription requested",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.String("resource_id", resourceID))
	}

	return &RequestResult{Existed: !created, Status: sub.Status}, nil
}

// GetForUser projects the user's ledger entries to resource -> status,
// which the card UI uses to render lock state.
func (s *SubscriptionService) GetForUser(ctx context.Context, email string) (map[string]string, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, models.ErrBadRequest
	}

	subs, err := s.repo.ListByEmail(ctx, email)
	if err != nil {
		s.logger.Error("failed to list subscriptions",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	statuses := make(map[string]string, len(subs))
	for _, sub := range subs {
		statuses[sub.ResourceID] = sub.Status
	}

	return statuses, nil
}

// ListPending returns the admin queue of unreviewed requests.
func (s *SubscriptionService) ListPending(ctx context.Context) ([]*models.Subscription, error) {
	return s.listByStatus(ctx, models.SubscriptionPending)
}

// ListPaymentPending returns the admin queue of payment claims awaiting
// manual verification. A separate queue from ListPending so neither gets
// silently dropped.
func (s *SubscriptionService) ListPaymentPending(ctx context.Context) ([]*models.Subscription, error) {
	return s.listByStatus(ctx, models.SubscriptionPaymentPending)
}

func (s *SubscriptionService) listByStatus(ctx context.Context, status string) ([]*models.Subscription, error) {
	subs, err := s.repo.ListByStatus(ctx, status)
	if err != nil {
		s.logger.Error("failed to list subscriptions by status",
			slog.String("status", status),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return subs, nil
}

// Approve grants access regardless of the entry's prior status. The admin
// may re-approve a rejected entry.
func (s *SubscriptionService) Approve(ctx context.Context, id string) error {
	return s.decide(ctx, id, models.SubscriptionApproved, "approved")
}

// Reject denies access regardless of the entry's prior status.
func (s *SubscriptionService) Reject(ctx context.Context, id string) error {
	return s.decide(ctx, id, models.SubscriptionRejected, "rejected")
}

func (s *SubscriptionService) decide(ctx context.Context, id, status, verb string) error {
	if id == "" {
		return models.ErrBadRequest
	}

	sub, err := s.repo.SetStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to update subscription status",
			slog.String("subscription_id", id),
			slog.String("status", status),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.notifications.Enqueue(ctx, sub.Email,
		fmt.Sprintf("Your subscription was %s", verb),
		fmt.Sprintf("Your access request for %s has been %s.", sub.ResourceLabel, verb))

	s.audit.LogLedgerDecision(verb, sub.ID, sub.Email, sub.ResourceID)
	s.logger.Info("subscription "+verb,
		slog.String("subscription_id", id),
		slog.String("email", pkglogger.SanitizedEmail(sub.Email)),
		slog.String("resource_id", sub.ResourceID))

	return nil
}

// RecordPayment stores a user-claimed transaction reference and moves the
// entry to payment_pending for manual review. The reference is free text,
// unvalidated and unverified against any processor; resubmission
// overwrites the prior claim. A missing entry is created directly in
// payment_pending so the user can skip the explicit request step.
func (s *SubscriptionService) RecordPayment(ctx context.Context, email, resourceID, resourceLabel, paymentRef string) error {
	email = models.NormalizeEmail(email)
	if email == "" || resourceID == "" || paymentRef == "" {
		return models.ErrBadRequest
	}

	sub, err := s.repo.UpsertPayment(ctx, email, resourceID, resourceLabel, paymentRef)
	if err != nil {
		s.logger.Error("failed to record payment claim",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.String("resource_id", resourceID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.notifications.Enqueue(ctx, s.adminEmail,
		"Payment claim awaiting review",
		fmt.Sprintf("%s claims payment for %s (%s), reference %q. Verify and approve or reject.",
			email, sub.ResourceLabel, sub.ResourceID, paymentRef))

	s.logger.Info("payment claim recorded",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("resource_id", resourceID))

	return nil
}

// HasPaid is the single access gate consulted before a download. The
// configured admin email passes unconditionally with no ledger lookup;
// everyone else needs an approved entry. payment_pending is not paid.
func (s *SubscriptionService) HasPaid(ctx context.Context, email, resourceID string) (bool, error) {
	if models.IsAdminEmail(email, s.adminEmail) {
		return true, nil
	}

	email = models.NormalizeEmail(email)
	if email == "" || resourceID == "" {
		return false, nil
	}

	approved, err := s.repo.HasApproved(ctx, email, resourceID)
	if err != nil {
		s.logger.Error("failed to check access",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.String("resource_id", resourceID),
			slog.Any("error", err))
		return false, models.ErrInternalServer
	}

	return approved, nil
}
