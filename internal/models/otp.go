package models

import "time"

// OneTimePassword is a short-lived numeric login code bound to an email.
// Rows are retained after use as an audit trail; the background pruner
// removes them by age only.
type OneTimePassword struct {
	ID        string
	Email     string
	Code      string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// IsUsed returns true if the code has already been consumed
func (o *OneTimePassword) IsUsed() bool {
	return o.UsedAt != nil
}

// IsExpired returns true if the code is past its expiry
func (o *OneTimePassword) IsExpired() bool {
	return time.Now().After(o.ExpiresAt)
}
