package models

import "time"

// Notification delivery states for the outbox.
const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// Notification is an outbox row. Services enqueue and never wait on
// delivery; the background dispatcher delivers at least once.
type Notification struct {
	ID        string
	Recipient string
	Subject   string
	Body      string
	Status    string
	Attempts  int
	CreatedAt time.Time
	SentAt    *time.Time
}
