package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/cardmint/cardmint/internal/models"
	"github.com/cardmint/cardmint/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionsHandler_Request(t *testing.T) {
	subs := &MockSubscriptionService{
		RequestFunc: func(ctx context.Context, email, resourceID, resourceLabel string) (*services.RequestResult, error) {
			return &services.RequestResult{Existed: false, Status: models.SubscriptionPending}, nil
		},
	}

	h := NewSubscriptionsHandler(subs)
	recorder := postJSON(t, h.Handle, "/api/subscriptions", map[string]string{
		"action":        "request",
		"email":         "user@example.com",
		"resourceId":    "deck-pro",
		"resourceLabel": "Pro Deck",
	})

	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, false, body["existed"])
	assert.Equal(t, models.SubscriptionPending, body["status"])
}

func TestSubscriptionsHandler_Request_ExistingEntry(t *testing.T) {
	subs := &MockSubscriptionService{
		RequestFunc: func(ctx context.Context, email, resourceID, resourceLabel string) (*services.RequestResult, error) {
			return &services.RequestResult{Existed: true, Status: models.SubscriptionApproved}, nil
		},
	}

	h := NewSubscriptionsHandler(subs)
	recorder := postJSON(t, h.Handle, "/api/subscriptions", map[string]string{
		"action":     "request",
		"email":      "user@example.com",
		"resourceId": "deck-pro",
	})

	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Equal(t, true, body["existed"])
	assert.Equal(t, models.SubscriptionApproved, body["status"])
}

func TestSubscriptionsHandler_GetUserSubs(t *testing.T) {
	subs := &MockSubscriptionService{
		GetForUserFunc: func(ctx context.Context, email string) (map[string]string, error) {
			return map[string]string{
				"deck-pro":     models.SubscriptionApproved,
				"deck-holiday": models.SubscriptionPending,
			}, nil
		},
	}

	h := NewSubscriptionsHandler(subs)
	recorder := postJSON(t, h.Handle, "/api/subscriptions", map[string]string{
		"action": "getUserSubs",
		"email":  "user@example.com",
	})

	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeBody(t, recorder)
	statuses, ok := body["subs"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, models.SubscriptionApproved, statuses["deck-pro"])
	assert.Equal(t, models.SubscriptionPending, statuses["deck-holiday"])
}

func TestSubscriptionsHandler_GetPendingQueues(t *testing.T) {
	now := time.Now()
	subs := &MockSubscriptionService{
		ListPendingFunc: func(ctx context.Context) ([]*models.Subscription, error) {
			return []*models.Subscription{
				{ID: "sub-1", Email: "a@example.com", ResourceID: "deck-pro", Status: models.SubscriptionPending, RequestedAt: now},
			}, nil
		},
		ListPaymentPendingFunc: func(ctx context.Context) ([]*models.Subscription, error) {
			return []*models.Subscription{
				{ID: "sub-2", Email: "b@example.com", ResourceID: "deck-pro", Status: models.SubscriptionPaymentPending, PaymentRef: "txn-9", RequestedAt: now},
			}, nil
		},
	}

	h := NewSubscriptionsHandler(subs)

	recorder := postJSON(t, h.Handle, "/api/subscriptions", map[string]string{"action": "getPending"})
	require.Equal(t, http.StatusOK, recorder.Code)
	entries := decodeBody(t, recorder)["entries"].([]interface{})
	require.Len(t, entries, 1)
	first := entries[0].(map[string]interface{})
	assert.Equal(t, "sub-1", first["id"])
	assert.Equal(t, models.SubscriptionPending, first["status"])

	recorder = postJSON(t, h.Handle, "/api/subscriptions", map[string]string{"action": "getPaymentPending"})
	require.Equal(t, http.StatusOK, recorder.Code)
	entries = decodeBody(t, recorder)["entries"].([]interface{})
	require.Len(t, entries, 1)
	first = entries[0].(map[string]interface{})
	assert.Equal(t, "sub-2", first["id"])
	assert.Equal(t, "txn-9", first["paymentRef"])
}

func TestSubscriptionsHandler_ApproveAndReject(t *testing.T) {
	var approvedID, rejectedID string
	subs := &MockSubscriptionService{
		ApproveFunc: func(ctx context.Context, id string) error {
			approvedID = id
			return nil
		},
		RejectFunc: func(ctx context.Context, id string) error {
			rejectedID = id
			return nil
		},
	}

	h := NewSubscriptionsHandler(subs)

	recorder := postJSON(t, h.Handle, "/api/subscriptions", map[string]string{
		"action": "approve",
		"id":     "sub-1",
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "sub-1", approvedID)

	recorder = postJSON(t, h.Handle, "/api/subscriptions", map[string]string{
		"action": "reject",
		"id":     "sub-2",
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "sub-2", rejectedID)
}

func TestSubscriptionsHandler_Approve_UnknownEntry(t *testing.T) {
	subs := &MockSubscriptionService{
		ApproveFunc: func(ctx context.Context, id string) error {
			return models.ErrNotFound
		},
	}

	h := NewSubscriptionsHandler(subs)
	recorder := postJSON(t, h.Handle, "/api/subscriptions", map[string]string{
		"action": "approve",
		"id":     "missing",
	})

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestSubscriptionsHandler_Approve_MissingID(t *testing.T) {
	h := NewSubscriptionsHandler(&MockSubscriptionService{})
	recorder := postJSON(t, h.Handle, "/api/subscriptions", map[string]string{
		"action": "approve",
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestSubscriptionsHandler_HasUserPaid(t *testing.T) {
	subs := &MockSubscriptionService{
		HasPaidFunc: func(ctx context.Context, email, resourceID string) (bool, error) {
			return email == "paid@example.com", nil
		},
	}

	h := NewSubscriptionsHandler(subs)

	recorder := postJSON(t, h.Handle, "/api/subscriptions", map[string]string{
		"action":     "hasUserPaid",
		"email":      "paid@example.com",
		"resourceId": "deck-pro",
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, true, decodeBody(t, recorder)["paid"])

	recorder = postJSON(t, h.Handle, "/api/subscriptions", map[string]string{
		"action":     "hasUserPaid",
		"email":      "unpaid@example.com",
		"resourceId": "deck-pro",
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, false, decodeBody(t, recorder)["paid"])
}

func TestSubscriptionsHandler_RecordPayment(t *testing.T) {
	var recordedRef string
	subs := &MockSubscriptionService{
		RecordPaymentFunc: func(ctx context.Context, email, resourceID, resourceLabel, paymentRef string) error {
			recordedRef = paymentRef
			return nil
		},
	}

	h := NewSubscriptionsHandler(subs)
	recorder := postJSON(t, h.Handle, "/api/subscriptions", map[string]string{
		"action":     "recordPayment",
		"email":      "user@example.com",
		"resourceId": "deck-pro",
		"paymentRef": "txn-12345",
	})

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "txn-12345", recordedRef)
	assert.Equal(t, true, decodeBody(t, recorder)["ok"])
}

func TestSubscriptionsHandler_RecordPayment_MissingRef(t *testing.T) {
	h := NewSubscriptionsHandler(&MockSubscriptionService{})
	recorder := postJSON(t, h.Handle, "/api/subscriptions", map[string]string{
		"action":     "recordPayment",
		"email":      "user@example.com",
		"resourceId": "deck-pro",
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestSubscriptionsHandler_UnknownAction(t *testing.T) {
	h := NewSubscriptionsHandler(&MockSubscriptionService{})
	recorder := postJSON(t, h.Handle, "/api/subscriptions", map[string]string{
		"action": "nonsense",
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
