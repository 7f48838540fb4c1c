package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/cardmint/cardmint/internal/models"
	pkglogger "github.com/cardmint/cardmint/pkg/logger"
)

// NewTestLogger returns a logger that discards everything
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewTestAudit returns an audit logger backed by the discard logger
func NewTestAudit() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(NewTestLogger())
}

// RecordingEnqueuer captures enqueued notifications for assertions
type RecordingEnqueuer struct {
	Sent []CapturedNotification
}

// CapturedNotification is one recorded Enqueue call
type CapturedNotification struct {
	Recipient string
	Subject   string
	Body      string
}

func (r *RecordingEnqueuer) Enqueue(ctx context.Context, recipient, subject, body string) {
	r.Sent = append(r.Sent, CapturedNotification{Recipient: recipient, Subject: subject, Body: body})
}

// MockOTPRepository implements OTPRepository for testing
type MockOTPRepository struct {
	CreateFunc         func(ctx context.Context, email, code string, expiresAt time.Time) (*models.OneTimePassword, error)
	ConsumeFunc        func(ctx context.Context, email, code string) (bool, error)
	PruneOlderThanFunc func(ctx context.Context, age time.Duration) (int64, error)
}

func (m *MockOTPRepository) Create(ctx context.Context, email, code string, expiresAt time.Time) (*models.OneTimePassword, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, email, code, expiresAt)
	}
	return &models.OneTimePassword{Email: email, Code: code, ExpiresAt: expiresAt}, nil
}

func (m *MockOTPRepository) Consume(ctx context.Context, email, code string) (bool, error) {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, email, code)
	}
	return false, nil
}

func (m *MockOTPRepository) PruneOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	if m.PruneOlderThanFunc != nil {
		return m.PruneOlderThanFunc(ctx, age)
	}
	return 0, nil
}

// MockAccountRepository implements AccountRepository for testing
type MockAccountRepository struct {
	UpsertFunc         func(ctx context.Context, account *models.Account) (*models.Account, error)
	CreateFunc         func(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByEmailFunc     func(ctx context.Context, email string) (*models.Account, error)
	ExistsFunc         func(ctx context.Context, email string) (bool, error)
	SetPasswordFunc    func(ctx context.Context, email, passwordHash string) error
	TouchLastLoginFunc func(ctx context.Context, email string) error
}

func (m *MockAccountRepository) Upsert(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, account)
	}
	return account, nil
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	return account, nil
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) Exists(ctx context.Context, email string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, email)
	}
	return false, nil
}

func (m *MockAccountRepository) SetPassword(ctx context.Context, email, passwordHash string) error {
	if m.SetPasswordFunc != nil {
		return m.SetPasswordFunc(ctx, email, passwordHash)
	}
	return nil
}

func (m *MockAccountRepository) TouchLastLogin(ctx context.Context, email string) error {
	if m.TouchLastLoginFunc != nil {
		return m.TouchLastLoginFunc(ctx, email)
	}
	return nil
}

// MockBlockRepository implements BlockRepository for testing
type MockBlockRepository struct {
	UpsertFunc func(ctx context.Context, entry *models.BlockEntry) error
	DeleteFunc func(ctx context.Context, email string) error
	ExistsFunc func(ctx context.Context, email string) (bool, error)
	ListFunc   func(ctx context.Context) ([]*models.BlockEntry, error)
}

func (m *MockBlockRepository) Upsert(ctx context.Context, entry *models.BlockEntry) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, entry)
	}
	return nil
}

func (m *MockBlockRepository) Delete(ctx context.Context, email string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, email)
	}
	return nil
}

func (m *MockBlockRepository) Exists(ctx context.Context, email string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, email)
	}
	return false, nil
}

func (m *MockBlockRepository) List(ctx context.Context) ([]*models.BlockEntry, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*models.BlockEntry{}, nil
}

// MockSubscriptionRepository implements SubscriptionRepository for testing
type MockSubscriptionRepository struct {
	InsertIfAbsentFunc func(ctx context.Context, email, resourceID, resourceLabel string) (bool, *models.Subscription, error)
	UpsertPaymentFunc  func(ctx context.Context, email, resourceID, resourceLabel, paymentRef string) (*models.Subscription, error)
	SetStatusFunc      func(ctx context.Context, id, status string) (*models.Subscription, error)
	GetByIDFunc        func(ctx context.Context, id string) (*models.Subscription, error)
	ListByEmailFunc    func(ctx context.Context, email string) ([]*models.Subscription, error)
	ListByStatusFunc   func(ctx context.Context, status string) ([]*models.Subscription, error)
	HasApprovedFunc    func(ctx context.Context, email, resourceID string) (bool, error)
}

func (m *MockSubscriptionRepository) InsertIfAbsent(ctx context.Context, email, resourceID, resourceLabel string) (bool, *models.Subscription, error) {
	if m.InsertIfAbsentFunc != nil {
		return m.InsertIfAbsentFunc(ctx, email, resourceID, resourceLabel)
	}
	return true, &models.Subscription{Email: email, ResourceID: resourceID, ResourceLabel: resourceLabel, Status: models.SubscriptionPending}, nil
}

func (m *MockSubscriptionRepository) UpsertPayment(ctx context.Context, email, resourceID, resourceLabel, paymentRef string) (*models.Subscription, error) {
	if m.UpsertPaymentFunc != nil {
		return m.UpsertPaymentFunc(ctx, email, resourceID, resourceLabel, paymentRef)
	}
	return &models.Subscription{Email: email, ResourceID: resourceID, ResourceLabel: resourceLabel, PaymentRef: paymentRef, Status: models.SubscriptionPaymentPending}, nil
}

func (m *MockSubscriptionRepository) SetStatus(ctx context.Context, id, status string) (*models.Subscription, error) {
	if m.SetStatusFunc != nil {
		return m.SetStatusFunc(ctx, id, status)
	}
	return nil, models.ErrNotFound
}

func (m *MockSubscriptionRepository) GetByID(ctx context.Context, id string) (*models.Subscription, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockSubscriptionRepository) ListByEmail(ctx context.Context, email string) ([]*models.Subscription, error) {
	if m.ListByEmailFunc != nil {
		return m.ListByEmailFunc(ctx, email)
	}
	return []*models.Subscription{}, nil
}

func (m *MockSubscriptionRepository) ListByStatus(ctx context.Context, status string) ([]*models.Subscription, error) {
	if m.ListByStatusFunc != nil {
		return m.ListByStatusFunc(ctx, status)
	}
	return []*models.Subscription{}, nil
}

func (m *MockSubscriptionRepository) HasApproved(ctx context.Context, email, resourceID string) (bool, error) {
	if m.HasApprovedFunc != nil {
		return m.HasApprovedFunc(ctx, email, resourceID)
	}
	return false, nil
}

// MockNotificationRepository implements NotificationRepository for testing
type MockNotificationRepository struct {
	EnqueueFunc       func(ctx context.Context, recipient, subject, body string) (*models.Notification, error)
	ListPendingFunc   func(ctx context.Context, limit int) ([]*models.Notification, error)
	MarkSentFunc      func(ctx context.Context, id string) error
	RecordFailureFunc func(ctx context.Context, id string, maxAttempts int) error
}

func (m *MockNotificationRepository) Enqueue(ctx context.Context, recipient, subject, body string) (*models.Notification, error) {
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(ctx, recipient, subject, body)
	}
	return &models.Notification{Recipient: recipient, Subject: subject, Body: body, Status: models.NotificationPending}, nil
}

func (m *MockNotificationRepository) ListPending(ctx context.Context, limit int) ([]*models.Notification, error) {
	if m.ListPendingFunc != nil {
		return m.ListPendingFunc(ctx, limit)
	}
	return []*models.Notification{}, nil
}

func (m *MockNotificationRepository) MarkSent(ctx context.Context, id string) error {
	if m.MarkSentFunc != nil {
		return m.MarkSentFunc(ctx, id)
	}
	return nil
}

func (m *MockNotificationRepository) RecordFailure(ctx context.Context, id string, maxAttempts int) error {
	if m.RecordFailureFunc != nil {
		return m.RecordFailureFunc(ctx, id, maxAttempts)
	}
	return nil
}
