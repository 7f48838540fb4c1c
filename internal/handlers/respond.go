package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cardmint/cardmint/internal/models"
	pkghttp "github.com/cardmint/cardmint/pkg/http"
)

// writeJSON writes a success payload
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeServiceError maps sentinel errors onto the wire taxonomy: 400 for
// bad arguments, 401 for bad credentials, 404 for missing records, 409
// for duplicate signups, 500 with a generic message for everything else.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Missing or invalid argument")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Invalid credentials")
	case errors.Is(err, models.ErrEmailBlocked):
		pkghttp.WriteUnauthorized(w, "Email address is blocked")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Account already exists")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
