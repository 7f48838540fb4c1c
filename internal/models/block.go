package models

import "time"

// BlockEntry is a denylist record barring an email from establishing a
// session. Re-blocking overwrites blocked_by, reason and timestamp.
type BlockEntry struct {
	Email     string
	BlockedBy string
	Reason    string
	BlockedAt time.Time
}
