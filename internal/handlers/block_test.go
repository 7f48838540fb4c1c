package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/cardmint/cardmint/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminEmail = "admin@example.com"

func TestBlockHandler_Block(t *testing.T) {
	var blockedEmail, blockedBy, reason string
	blocks := &MockBlockService{
		BlockFunc: func(ctx context.Context, email, by, r string) error {
			blockedEmail = email
			blockedBy = by
			reason = r
			return nil
		},
	}

	h := NewBlockHandler(blocks, testAdminEmail)
	recorder := postJSON(t, h.Handle, "/api/block", map[string]string{
		"action":    "block",
		"email":     "bad@example.com",
		"blockedBy": testAdminEmail,
		"reason":    "abuse",
	})

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "bad@example.com", blockedEmail)
	assert.Equal(t, testAdminEmail, blockedBy)
	assert.Equal(t, "abuse", reason)
}

func TestBlockHandler_Block_AdminEmailRejected(t *testing.T) {
	called := false
	blocks := &MockBlockService{
		BlockFunc: func(ctx context.Context, email, by, r string) error {
			called = true
			return nil
		},
	}

	h := NewBlockHandler(blocks, testAdminEmail)
	recorder := postJSON(t, h.Handle, "/api/block", map[string]string{
		"action": "block",
		"email":  "Admin@Example.COM",
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.False(t, called, "admin address must never reach the denylist")
}

func TestBlockHandler_Unblock(t *testing.T) {
	unblocked := ""
	blocks := &MockBlockService{
		UnblockFunc: func(ctx context.Context, email string) error {
			unblocked = email
			return nil
		},
	}

	h := NewBlockHandler(blocks, testAdminEmail)
	recorder := postJSON(t, h.Handle, "/api/block", map[string]string{
		"action": "unblock",
		"email":  "bad@example.com",
	})

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "bad@example.com", unblocked)
	assert.Equal(t, true, decodeBody(t, recorder)["ok"])
}

func TestBlockHandler_IsBlocked(t *testing.T) {
	blocks := &MockBlockService{
		IsBlockedFunc: func(ctx context.Context, email string) (bool, error) {
			return email == "bad@example.com", nil
		},
	}

	h := NewBlockHandler(blocks, testAdminEmail)

	recorder := postJSON(t, h.Handle, "/api/block", map[string]string{
		"action": "isBlocked",
		"email":  "bad@example.com",
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, true, decodeBody(t, recorder)["blocked"])

	recorder = postJSON(t, h.Handle, "/api/block", map[string]string{
		"action": "isBlocked",
		"email":  "good@example.com",
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, false, decodeBody(t, recorder)["blocked"])
}

func TestBlockHandler_GetAll(t *testing.T) {
	now := time.Now()
	blocks := &MockBlockService{
		ListBlockedFunc: func(ctx context.Context) ([]*models.BlockEntry, error) {
			return []*models.BlockEntry{
				{Email: "a@example.com", BlockedBy: testAdminEmail, Reason: "spam", BlockedAt: now},
				{Email: "b@example.com", BlockedAt: now},
			}, nil
		},
	}

	h := NewBlockHandler(blocks, testAdminEmail)
	recorder := postJSON(t, h.Handle, "/api/block", map[string]string{
		"action": "getAll",
	})

	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeBody(t, recorder)
	entries, ok := body["entries"].([]interface{})
	require.True(t, ok)
	require.Len(t, entries, 2)

	first, ok := entries[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "a@example.com", first["email"])
	assert.Equal(t, "spam", first["reason"])
}

func TestBlockHandler_MissingEmail(t *testing.T) {
	h := NewBlockHandler(&MockBlockService{}, testAdminEmail)

	for _, action := range []string{"block", "unblock", "isBlocked"} {
		recorder := postJSON(t, h.Handle, "/api/block", map[string]string{
			"action": action,
		})
		assert.Equal(t, http.StatusBadRequest, recorder.Code, "action %s", action)
	}
}

func TestBlockHandler_UnknownAction(t *testing.T) {
	h := NewBlockHandler(&MockBlockService{}, testAdminEmail)
	recorder := postJSON(t, h.Handle, "/api/block", map[string]string{
		"action": "nonsense",
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
