package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cardmint/cardmint/internal/models"
	pkghttp "github.com/cardmint/cardmint/pkg/http"
)

// BlockService defines the interface for denylist management
type BlockService interface {
	Block(ctx context.Context, email, blockedBy, reason string) error
	Unblock(ctx context.Context, email string) error
	IsBlocked(ctx context.Context, email string) (bool, error)
	ListBlocked(ctx context.Context) ([]*models.BlockEntry, error)
}

// BlockHandler multiplexes the denylist actions on a single endpoint.
// It holds the configured admin address so the admin can never lock
// themselves out.
type BlockHandler struct {
	blocks     BlockService
	adminEmail string
}

// NewBlockHandler creates a new BlockHandler
func NewBlockHandler(blocks BlockService, adminEmail string) *BlockHandler {
	return &BlockHandler{
		blocks:     blocks,
		adminEmail: adminEmail,
	}
}

// BlockRequest carries every denylist action's fields
type BlockRequest struct {
	Action    string `json:"action" validate:"required"`
	Email     string `json:"email"`
	BlockedBy string `json:"blockedBy"`
	Reason    string `json:"reason"`
}

// BlockEntryResponse represents a denylist entry in HTTP responses
type BlockEntryResponse struct {
	Email     string `json:"email"`
	BlockedBy string `json:"blockedBy,omitempty"`
	Reason    string `json:"reason,omitempty"`
	BlockedAt string `json:"blockedAt"`
}

func blockEntryToResponse(entry *models.BlockEntry) BlockEntryResponse {
	return BlockEntryResponse{
		Email:     entry.Email,
		BlockedBy: entry.BlockedBy,
		Reason:    entry.Reason,
		BlockedAt: entry.BlockedAt.UTC().Format(time.RFC3339),
	}
}

// Handle dispatches on the action field
//
// @Summary Block list actions (block, unblock, isBlocked, getAll)
// @Accept json
// @Produce json
// @Router /api/block [post]
func (h *BlockHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req BlockRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	switch req.Action {
	case "block":
		h.block(w, r, req)
	case "unblock":
		h.unblock(w, r, req)
	case "isBlocked":
		h.isBlocked(w, r, req)
	case "getAll":
		h.getAll(w, r)
	default:
		pkghttp.WriteBadRequest(w, "Unknown action")
	}
}

func (h *BlockHandler) block(w http.ResponseWriter, r *http.Request, req BlockRequest) {
	if req.Email == "" {
		pkghttp.WriteBadRequest(w, "Email is required")
		return
	}

	if models.IsAdminEmail(req.Email, h.adminEmail) {
		pkghttp.WriteBadRequest(w, "The admin address cannot be blocked")
		return
	}

	if err := h.blocks.Block(r.Context(), req.Email, req.BlockedBy, req.Reason); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *BlockHandler) unblock(w http.ResponseWriter, r *http.Request, req BlockRequest) {
	if req.Email == "" {
		pkghttp.WriteBadRequest(w, "Email is required")
		return
	}

	if err := h.blocks.Unblock(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *BlockHandler) isBlocked(w http.ResponseWriter, r *http.Request, req BlockRequest) {
	if req.Email == "" {
		pkghttp.WriteBadRequest(w, "Email is required")
		return
	}

	blocked, err := h.blocks.IsBlocked(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"blocked": blocked})
}

func (h *BlockHandler) getAll(w http.ResponseWriter, r *http.Request) {
	entries, err := h.blocks.ListBlocked(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]BlockEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, blockEntryToResponse(entry))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": out})
}
