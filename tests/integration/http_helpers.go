package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/cardmint/cardmint/internal/auth"
	"github.com/cardmint/cardmint/internal/handlers"
	"github.com/cardmint/cardmint/internal/repositories"
	"github.com/cardmint/cardmint/internal/services"
	pkglogger "github.com/cardmint/cardmint/pkg/logger"
)

// AdminEmail is the superadmin address wired into every test server
const AdminEmail = "admin@cardmint.test"

// CapturingNotifier records delivered messages instead of sending them
type CapturingNotifier struct {
	mu       sync.Mutex
	Messages []CapturedMessage
}

// CapturedMessage is one recorded Notify call
type CapturedMessage struct {
	Recipient string
	Subject   string
	Body      string
}

func (n *CapturingNotifier) Notify(ctx context.Context, recipient, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Messages = append(n.Messages, CapturedMessage{Recipient: recipient, Subject: subject, Body: body})
	return nil
}

// Sent returns a copy of the captured messages
func (n *CapturingNotifier) Sent() []CapturedMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]CapturedMessage, len(n.Messages))
	copy(out, n.Messages)
	return out
}

// TestServer bundles the HTTP test server with the service graph behind
// it, so tests can both drive the API and reach into the services.
type TestServer struct {
	Server        *httptest.Server
	OTPs          *services.OTPService
	Accounts      *services.AccountService
	Blocks        *services.BlockService
	Subscriptions *services.SubscriptionService
	Notifications *services.NotificationService
	Tokens        *auth.TokenManager
}

// SetupTestServer wires the full service graph over the test database
// and exposes it through the real handlers.
func SetupTestServer(db *TestDB) *TestServer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	audit := pkglogger.NewAuditLogger(logger)

	accountRepo, otpRepo, blockRepo, subscriptionRepo, notificationRepo := InitializeRepositories(db.DB)

	notificationService := services.NewNotificationService(notificationRepo, logger)
	otpService := services.NewOTPService(otpRepo, notificationService, logger, audit, 5*time.Minute)
	accountService := services.NewAccountService(accountRepo, notificationService, logger, audit, AdminEmail)
	blockService := services.NewBlockService(blockRepo, logger, audit)
	subscriptionService := services.NewSubscriptionService(subscriptionRepo, notificationService, logger, audit, AdminEmail)

	tokenManager := auth.NewTokenManager("integration-test-secret-0123456789", time.Hour)

	identityHandler := handlers.NewIdentityHandler(otpService, accountService, blockService, tokenManager)
	blockHandler := handlers.NewBlockHandler(blockService, AdminEmail)
	subscriptionsHandler := handlers.NewSubscriptionsHandler(subscriptionService)

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Recoverer)

	// No rate limiter here so tests can hammer the endpoints.
	router.Post("/api/identity", identityHandler.Handle)
	router.Post("/api/block", blockHandler.Handle)
	router.Post("/api/subscriptions", subscriptionsHandler.Handle)

	return &TestServer{
		Server:        httptest.NewServer(router),
		OTPs:          otpService,
		Accounts:      accountService,
		Blocks:        blockService,
		Subscriptions: subscriptionService,
		Notifications: notificationService,
		Tokens:        tokenManager,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	ts.Server.Close()
}

// PostAction sends an action-multiplexed request to an endpoint and
// returns the status code with the decoded body
func (ts *TestServer) PostAction(t interface {
	Helper()
	Fatalf(format string, args ...interface{})
}, path string, payload map[string]interface{}) (int, map[string]interface{}) {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}

	resp, err := http.Post(ts.Server.URL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request to %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}

	var decoded map[string]interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("failed to decode response %q: %v", string(raw), err)
		}
	}

	return resp.StatusCode, decoded
}

// LatestOTPCode reads the most recent code issued to an email straight
// from the database
func LatestOTPCode(ctx context.Context, db *TestDB, email string) (string, error) {
	otp, err := repositories.NewOTPRepository(db.DB).GetLatestByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to read otp code: %w", err)
	}
	return otp.Code, nil
}
