package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cardmint/cardmint/internal/models"
	"github.com/cardmint/cardmint/internal/services"
	pkghttp "github.com/cardmint/cardmint/pkg/http"
)

// SubscriptionService defines the interface for the access-control ledger
type SubscriptionService interface {
	Request(ctx context.Context, email, resourceID, resourceLabel string) (*services.RequestResult, error)
	GetForUser(ctx context.Context, email string) (map[string]string, error)
	ListPending(ctx context.Context) ([]*models.Subscription, error)
	ListPaymentPending(ctx context.Context) ([]*models.Subscription, error)
	Approve(ctx context.Context, id string) error
	Reject(ctx context.Context, id string) error
	RecordPayment(ctx context.Context, email, resourceID, resourceLabel, paymentRef string) error
	HasPaid(ctx context.Context, email, resourceID string) (bool, error)
}

// SubscriptionsHandler multiplexes the ledger actions on a single endpoint
type SubscriptionsHandler struct {
	subs SubscriptionService
}

// NewSubscriptionsHandler creates a new SubscriptionsHandler
func NewSubscriptionsHandler(subs SubscriptionService) *SubscriptionsHandler {
	return &SubscriptionsHandler{subs: subs}
}

// SubscriptionsRequest carries every ledger action's fields
type SubscriptionsRequest struct {
	Action        string `json:"action" validate:"required"`
	Email         string `json:"email"`
	ResourceID    string `json:"resourceId"`
	ResourceLabel string `json:"resourceLabel"`
	PaymentRef    string `json:"paymentRef"`
	ID            string `json:"id"`
}

// SubscriptionResponse represents a ledger entry in HTTP responses
type SubscriptionResponse struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	ResourceID    string  `json:"resourceId"`
	ResourceLabel string  `json:"resourceLabel"`
	Status        string  `json:"status"`
	PaymentRef    string  `json:"paymentRef,omitempty"`
	RequestedAt   string  `json:"requestedAt"`
	ApprovedAt    *string `json:"approvedAt,omitempty"`
	RejectedAt    *string `json:"rejectedAt,omitempty"`
	PaidAt        *string `json:"paidAt,omitempty"`
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func subscriptionToResponse(sub *models.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:            sub.ID,
		Email:         sub.Email,
		ResourceID:    sub.ResourceID,
		ResourceLabel: sub.ResourceLabel,
		Status:        sub.Status,
		PaymentRef:    sub.PaymentRef,
		RequestedAt:   sub.RequestedAt.UTC().Format(time.RFC3339),
		ApprovedAt:    formatTimePtr(sub.ApprovedAt),
		RejectedAt:    formatTimePtr(sub.RejectedAt),
		PaidAt:        formatTimePtr(sub.PaidAt),
	}
}

// Handle dispatches on the action field
//
// @Summary Subscription actions (request, getUserSubs, getPending, getPaymentPending, approve, reject, hasUserPaid, recordPayment)
// @Accept json
// @Produce json
// @Router /api/subscriptions [post]
func (h *SubscriptionsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req SubscriptionsRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	switch req.Action {
	case "request":
		h.request(w, r, req)
	case "getUserSubs":
		h.getUserSubs(w, r, req)
	case "getPending":
		h.listByQueue(w, r, h.subs.ListPending)
	case "getPaymentPending":
		h.listByQueue(w, r, h.subs.ListPaymentPending)
	case "approve":
		h.decide(w, r, req, h.subs.Approve)
	case "reject":
		h.decide(w, r, req, h.subs.Reject)
	case "hasUserPaid":
		h.hasUserPaid(w, r, req)
	case "recordPayment":
		h.recordPayment(w, r, req)
	default:
		pkghttp.WriteBadRequest(w, "Unknown action")
	}
}

func (h *SubscriptionsHandler) request(w http.ResponseWriter, r *http.Request, req SubscriptionsRequest) {
	if req.Email == "" || req.ResourceID == "" {
		pkghttp.WriteBadRequest(w, "Email and resourceId are required")
		return
	}

	result, err := h.subs.Request(r.Context(), req.Email, req.ResourceID, req.ResourceLabel)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"existed": result.Existed,
		"status":  result.Status,
	})
}

func (h *SubscriptionsHandler) getUserSubs(w http.ResponseWriter, r *http.Request, req SubscriptionsRequest) {
	if req.Email == "" {
		pkghttp.WriteBadRequest(w, "Email is required")
		return
	}

	statuses, err := h.subs.GetForUser(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"subs": statuses})
}

func (h *SubscriptionsHandler) listByQueue(w http.ResponseWriter, r *http.Request, list func(context.Context) ([]*models.Subscription, error)) {
	subs, err := list(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, subscriptionToResponse(sub))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": out})
}

func (h *SubscriptionsHandler) decide(w http.ResponseWriter, r *http.Request, req SubscriptionsRequest, decide func(context.Context, string) error) {
	if req.ID == "" {
		pkghttp.WriteBadRequest(w, "Subscription id is required")
		return
	}

	if err := decide(r.Context(), req.ID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *SubscriptionsHandler) hasUserPaid(w http.ResponseWriter, r *http.Request, req SubscriptionsRequest) {
	if req.Email == "" || req.ResourceID == "" {
		pkghttp.WriteBadRequest(w, "Email and resourceId are required")
		return
	}

	paid, err := h.subs.HasPaid(r.Context(), req.Email, req.ResourceID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"paid": paid})
}

func (h *SubscriptionsHandler) recordPayment(w http.ResponseWriter, r *http.Request, req SubscriptionsRequest) {
	if req.Email == "" || req.ResourceID == "" || req.PaymentRef == "" {
		pkghttp.WriteBadRequest(w, "Email, resourceId and paymentRef are required")
		return
	}

	if err := h.subs.RecordPayment(r.Context(), req.Email, req.ResourceID, req.ResourceLabel, req.PaymentRef); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
