package models

import (
	"strings"
	"time"
)

// Account roles. RoleSuperadmin is derived from the configured admin email
// and is never accepted from a client.
const (
	RoleUser       = "user"
	RoleSuperadmin = "superadmin"
)

type Account struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string // empty for OTP-only accounts
	Role         string
	CreatedAt    time.Time
	LastLoginAt  time.Time
}

// NormalizeEmail lowercases and trims an email address. Every component
// that keys on email goes through this before touching the store.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsAdminEmail reports whether email matches the configured admin address,
// ignoring case and surrounding whitespace.
func IsAdminEmail(email, adminEmail string) bool {
	if adminEmail == "" {
		return false
	}
	return NormalizeEmail(email) == NormalizeEmail(adminEmail)
}

// RoleForEmail derives the account role from the configured admin address.
func RoleForEmail(email, adminEmail string) string {
	if IsAdminEmail(email, adminEmail) {
		return RoleSuperadmin
	}
	return RoleUser
}
