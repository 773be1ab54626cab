package model

import "time"

// Notification types.  The (user, session, type) triple is unique in
// the table, which is what makes the confirmation sweep re-entrant:
// inserting an already-recorded notification is a no-op.
const (
	NotifyConfirmReminder     = "confirm_reminder"
	NotifyAutoUnenroll        = "auto_unenroll"
	NotifySubscriptionCreated = "subscription_created"
	NotifySubscriptionPaid    = "subscription_paid"
	NotifyEnrolled            = "enrolled"
	NotifyWaitlisted          = "waitlisted"
	NotifyPromoted            = "promoted"
)

// Notification is a persisted per-user notification record.  Outbound
// delivery (email, CRM) happens asynchronously via the message queue;
// this row is the durable fact that the event occurred.
type Notification struct {
	ID        uint64    // notifications.id
	UserID    uint64    // notifications.user_id
	SessionID *uint64   // notifications.session_id (nullable)
	Type      string    // notifications.type
	Message   string    // notifications.message
	CreatedAt time.Time // notifications.created_at
}
