package models

import "time"

// Subscription statuses. Only Approve/Reject move an entry out of review;
// a recorded payment alone never grants access.
const (
	SubscriptionPending        = "pending"
	SubscriptionApproved       = "approved"
	SubscriptionRejected       = "rejected"
	SubscriptionPaymentPending = "payment_pending"
)

// Subscription is the per-(email, resource) ledger entry that gates
// premium downloads. At most one entry exists per pair, enforced by a
// unique constraint on (email, resource_id).
type Subscription struct {
	ID            string
	Email         string
	ResourceID    string
	ResourceLabel string
	Status        string
	PaymentRef    string
	RequestedAt   time.Time
	ApprovedAt    *time.Time
	RejectedAt    *time.Time
	PaidAt        *time.Time
}
