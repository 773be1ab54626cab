package queue

import "time"

// QueueName is the durable queue notification events travel through.
const QueueName = "notification.events"

// NotificationEvent is the message published for every notification
// the engine records: enrollment results, waitlist promotions,
// confirmation reminders, automatic removals and subscription state
// changes. The consumer appends them to the notification log.
type NotificationEvent struct {
	UserID     uint64    `json:"user_id"`
	SessionID  *uint64   `json:"session_id,omitempty"`
	Type       string    `json:"type"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}
