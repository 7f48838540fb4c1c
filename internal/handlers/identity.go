package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cardmint/cardmint/internal/models"
	pkghttp "github.com/cardmint/cardmint/pkg/http"
)

// OTPService defines the interface for passcode issuance and verification
type OTPService interface {
	Issue(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) (bool, error)
}

// AccountService defines the interface for account registry logic
type AccountService interface {
	CreateOrUpdate(ctx context.Context, email string) (*models.Account, error)
	Exists(ctx context.Context, email string) (bool, error)
	SignUp(ctx context.Context, name, email, password string) (*models.Account, error)
	SignIn(ctx context.Context, email, password string) (*models.Account, error)
	ResetPassword(ctx context.Context, email, newPassword string) error
}

// BlockChecker is the slice of the block list the login path needs
type BlockChecker interface {
	IsBlocked(ctx context.Context, email string) (bool, error)
}

// TokenIssuer mints session tokens for verified accounts
type TokenIssuer interface {
	GenerateSessionToken(email, role string) (string, error)
}

// IdentityHandler multiplexes the identity actions on a single endpoint
type IdentityHandler struct {
	otp      OTPService
	accounts AccountService
	blocks   BlockChecker
	tokens   TokenIssuer
}

// NewIdentityHandler creates a new IdentityHandler
func NewIdentityHandler(otp OTPService, accounts AccountService, blocks BlockChecker, tokens TokenIssuer) *IdentityHandler {
	return &IdentityHandler{
		otp:      otp,
		accounts: accounts,
		blocks:   blocks,
		tokens:   tokens,
	}
}

// IdentityRequest carries every identity action's fields; which are
// required depends on the action.
type IdentityRequest struct {
	Action   string `json:"action" validate:"required"`
	Email    string `json:"email"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// AccountResponse represents an account in HTTP responses
type AccountResponse struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

func accountModelToResponse(account *models.Account) *AccountResponse {
	return &AccountResponse{
		Email:       account.Email,
		DisplayName: account.DisplayName,
		Role:        account.Role,
	}
}

// Handle dispatches on the action field
//
// @Summary Identity actions (storeOTP, verifyOTP, userExists, signUp, signIn, resetPassword, createOrUpdateUser)
// @Accept json
// @Produce json
// @Router /api/identity [post]
func (h *IdentityHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req IdentityRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	switch req.Action {
	case "storeOTP":
		h.storeOTP(w, r, req)
	case "verifyOTP":
		h.verifyOTP(w, r, req)
	case "userExists":
		h.userExists(w, r, req)
	case "signUp":
		h.signUp(w, r, req)
	case "signIn":
		h.signIn(w, r, req)
	case "resetPassword":
		h.resetPassword(w, r, req)
	case "createOrUpdateUser":
		h.createOrUpdateUser(w, r, req)
	default:
		pkghttp.WriteBadRequest(w, "Unknown action")
	}
}

func (h *IdentityHandler) storeOTP(w http.ResponseWriter, r *http.Request, req IdentityRequest) {
	if req.Email == "" {
		pkghttp.WriteBadRequest(w, "Email is required")
		return
	}

	if err := h.otp.Issue(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// verifyOTP consumes the code and, when it checks out, establishes the
// session: block list first, then account upsert, then token. A wrong
// code is a plain {valid:false}, never an error status.
func (h *IdentityHandler) verifyOTP(w http.ResponseWriter, r *http.Request, req IdentityRequest) {
	if req.Email == "" || req.Code == "" {
		pkghttp.WriteBadRequest(w, "Email and code are required")
		return
	}

	valid, err := h.otp.Verify(r.Context(), req.Email, req.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if !valid {
		writeJSON(w, http.StatusOK, map[string]bool{"valid": false})
		return
	}

	blocked, err := h.blocks.IsBlocked(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if blocked {
		writeServiceError(w, models.ErrEmailBlocked)
		return
	}

	account, err := h.accounts.CreateOrUpdate(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	token, err := h.tokens.GenerateSessionToken(account.Email, account.Role)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":   true,
		"token":   token,
		"account": accountModelToResponse(account),
	})
}

func (h *IdentityHandler) userExists(w http.ResponseWriter, r *http.Request, req IdentityRequest) {
	if req.Email == "" {
		pkghttp.WriteBadRequest(w, "Email is required")
		return
	}

	exists, err := h.accounts.Exists(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (h *IdentityHandler) signUp(w http.ResponseWriter, r *http.Request, req IdentityRequest) {
	if req.Email == "" || req.Password == "" || req.Name == "" {
		pkghttp.WriteBadRequest(w, "Name, email and password are required")
		return
	}

	account, err := h.accounts.SignUp(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"ok":      true,
		"account": accountModelToResponse(account),
	})
}

func (h *IdentityHandler) signIn(w http.ResponseWriter, r *http.Request, req IdentityRequest) {
	if req.Email == "" || req.Password == "" {
		pkghttp.WriteBadRequest(w, "Email and password are required")
		return
	}

	blocked, err := h.blocks.IsBlocked(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if blocked {
		writeServiceError(w, models.ErrEmailBlocked)
		return
	}

	account, err := h.accounts.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	token, err := h.tokens.GenerateSessionToken(account.Email, account.Role)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"token":   token,
		"account": accountModelToResponse(account),
	})
}

func (h *IdentityHandler) resetPassword(w http.ResponseWriter, r *http.Request, req IdentityRequest) {
	if req.Email == "" || req.Password == "" {
		pkghttp.WriteBadRequest(w, "Email and new password are required")
		return
	}

	if err := h.accounts.ResetPassword(r.Context(), req.Email, req.Password); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *IdentityHandler) createOrUpdateUser(w http.ResponseWriter, r *http.Request, req IdentityRequest) {
	if req.Email == "" {
		pkghttp.WriteBadRequest(w, "Email is required")
		return
	}

	blocked, err := h.blocks.IsBlocked(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if blocked {
		writeServiceError(w, models.ErrEmailBlocked)
		return
	}

	account, err := h.accounts.CreateOrUpdate(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"account": accountModelToResponse(account),
	})
}
