package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cardmint/cardmint/internal/models"
	"github.com/cardmint/cardmint/internal/services"
)

// MockOTPService implements OTPService for testing
type MockOTPService struct {
	IssueFunc  func(ctx context.Context, email string) error
	VerifyFunc func(ctx context.Context, email, code string) (bool, error)
}

func (m *MockOTPService) Issue(ctx context.Context, email string) error {
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, email)
	}
	return nil
}

func (m *MockOTPService) Verify(ctx context.Context, email, code string) (bool, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, email, code)
	}
	return false, nil
}

// MockAccountService implements AccountService for testing
type MockAccountService struct {
	CreateOrUpdateFunc func(ctx context.Context, email string) (*models.Account, error)
	ExistsFunc         func(ctx context.Context, email string) (bool, error)
	SignUpFunc         func(ctx context.Context, name, email, password string) (*models.Account, error)
	SignInFunc         func(ctx context.Context, email, password string) (*models.Account, error)
	ResetPasswordFunc  func(ctx context.Context, email, newPassword string) error
}

func (m *MockAccountService) CreateOrUpdate(ctx context.Context, email string) (*models.Account, error) {
	if m.CreateOrUpdateFunc != nil {
		return m.CreateOrUpdateFunc(ctx, email)
	}
	return &models.Account{Email: email, Role: models.RoleUser}, nil
}

func (m *MockAccountService) Exists(ctx context.Context, email string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, email)
	}
	return false, nil
}

func (m *MockAccountService) SignUp(ctx context.Context, name, email, password string) (*models.Account, error) {
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, name, email, password)
	}
	return &models.Account{Email: email, DisplayName: name, Role: models.RoleUser}, nil
}

func (m *MockAccountService) SignIn(ctx context.Context, email, password string) (*models.Account, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountService) ResetPassword(ctx context.Context, email, newPassword string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, email, newPassword)
	}
	return nil
}

// MockBlockService implements BlockService (and BlockChecker) for testing
type MockBlockService struct {
	BlockFunc       func(ctx context.Context, email, blockedBy, reason string) error
	UnblockFunc     func(ctx context.Context, email string) error
	IsBlockedFunc   func(ctx context.Context, email string) (bool, error)
	ListBlockedFunc func(ctx context.Context) ([]*models.BlockEntry, error)
}

func (m *MockBlockService) Block(ctx context.Context, email, blockedBy, reason string) error {
	if m.BlockFunc != nil {
		return m.BlockFunc(ctx, email, blockedBy, reason)
	}
	return nil
}

func (m *MockBlockService) Unblock(ctx context.Context, email string) error {
	if m.UnblockFunc != nil {
		return m.UnblockFunc(ctx, email)
	}
	return nil
}

func (m *MockBlockService) IsBlocked(ctx context.Context, email string) (bool, error) {
	if m.IsBlockedFunc != nil {
		return m.IsBlockedFunc(ctx, email)
	}
	return false, nil
}

func (m *MockBlockService) ListBlocked(ctx context.Context) ([]*models.BlockEntry, error) {
	if m.ListBlockedFunc != nil {
		return m.ListBlockedFunc(ctx)
	}
	return []*models.BlockEntry{}, nil
}

// MockTokenIssuer implements TokenIssuer for testing
type MockTokenIssuer struct {
	GenerateSessionTokenFunc func(email, role string) (string, error)
}

func (m *MockTokenIssuer) GenerateSessionToken(email, role string) (string, error) {
	if m.GenerateSessionTokenFunc != nil {
		return m.GenerateSessionTokenFunc(email, role)
	}
	return "test-token", nil
}

// MockSubscriptionService implements SubscriptionService for testing
type MockSubscriptionService struct {
	RequestFunc            func(ctx context.Context, email, resourceID, resourceLabel string) (*services.RequestResult, error)
	GetForUserFunc         func(ctx context.Context, email string) (map[string]string, error)
	ListPendingFunc        func(ctx context.Context) ([]*models.Subscription, error)
	ListPaymentPendingFunc func(ctx context.Context) ([]*models.Subscription, error)
	ApproveFunc            func(ctx context.Context, id string) error
	RejectFunc             func(ctx context.Context, id string) error
	RecordPaymentFunc      func(ctx context.Context, email, resourceID, resourceLabel, paymentRef string) error
	HasPaidFunc            func(ctx context.Context, email, resourceID string) (bool, error)
}

func (m *MockSubscriptionService) Request(ctx context.Context, email, resourceID, resourceLabel string) (*services.RequestResult, error) {
	if m.RequestFunc != nil {
		return m.RequestFunc(ctx, email, resourceID, resourceLabel)
	}
	return &services.RequestResult{Existed: false, Status: models.SubscriptionPending}, nil
}

func (m *MockSubscriptionService) GetForUser(ctx context.Context, email string) (map[string]string, error) {
	if m.GetForUserFunc != nil {
		return m.GetForUserFunc(ctx, email)
	}
	return map[string]string{}, nil
}

func (m *MockSubscriptionService) ListPending(ctx context.Context) ([]*models.Subscription, error) {
	if m.ListPendingFunc != nil {
		return m.ListPendingFunc(ctx)
	}
	return []*models.Subscription{}, nil
}

func (m *MockSubscriptionService) ListPaymentPending(ctx context.Context) ([]*models.Subscription, error) {
	if m.ListPaymentPendingFunc != nil {
		return m.ListPaymentPendingFunc(ctx)
	}
	return []*models.Subscription{}, nil
}

func (m *MockSubscriptionService) Approve(ctx context.Context, id string) error {
	if m.ApproveFunc != nil {
		return m.ApproveFunc(ctx, id)
	}
	return nil
}

func (m *MockSubscriptionService) Reject(ctx context.Context, id string) error {
	if m.RejectFunc != nil {
		return m.RejectFunc(ctx, id)
	}
	return nil
}

func (m *MockSubscriptionService) RecordPayment(ctx context.Context, email, resourceID, resourceLabel, paymentRef string) error {
	if m.RecordPaymentFunc != nil {
		return m.RecordPaymentFunc(ctx, email, resourceID, resourceLabel, paymentRef)
	}
	return nil
}

func (m *MockSubscriptionService) HasPaid(ctx context.Context, email, resourceID string) (bool, error) {
	if m.HasPaidFunc != nil {
		return m.HasPaidFunc(ctx, email, resourceID)
	}
	return false, nil
}

// postJSON builds a POST request with a JSON body and executes the
// handler, returning the recorder
func postJSON(t *testing.T, handler http.HandlerFunc, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	handler(recorder, req)
	return recorder
}

// decodeBody unmarshals a recorder's JSON body into a map
func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	if err := json.Unmarshal(recorder.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response body %q: %v", recorder.Body.String(), err)
	}
	return out
}
