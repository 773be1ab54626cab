// Package reconciler runs the confirmation sweep: participants of
// upcoming sessions who have not confirmed attendance get a reminder
// when the confirmation window opens, and lose their seat once the
// grace period after the reminder runs out. The sweep is re-entrant:
// reminder dedup rides on the notification store's uniqueness and
// removal goes through the coordinator, which treats an already
// removed participant as a no-op.
package reconciler

import (
	"context"
	"fmt"
	"log"
	"time"

	"trainbook/internal/model"
	"trainbook/internal/queue"
)

const (
	// ReminderLead is how long before a session's start the
	// confirmation reminder goes out.
	ReminderLead = 60 * time.Hour
	// RemovalGrace is how long after the reminder an unconfirmed
	// participant keeps the seat.
	RemovalGrace = 3 * time.Hour
)

// SessionSource enumerates upcoming sessions and their participants.
type SessionSource interface {
	UpcomingSessions(ctx context.Context, from time.Time) ([]model.TrainingSession, error)
	Participants(ctx context.Context, sessionID uint64) ([]uint64, error)
}

// ConfirmationSource answers whether a user holds a confirmed
// subscription covering the session date.
type ConfirmationSource interface {
	HasConfirmed(ctx context.Context, userID uint64, at time.Time) (bool, error)
}

// NotificationStore records reminders; Create reports whether the row
// was new, which is the dedup signal.
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) (bool, error)
}

// Remover evicts an unconfirmed participant. The enrollment
// coordinator implements it, so eviction frees the seat and promotes
// from the waitlist.
type Remover interface {
	RemoveForNoConfirmation(ctx context.Context, sessionID, userID uint64) error
}

// Publisher pushes reminder events onto the message queue; may be nil.
type Publisher interface {
	Publish(ctx context.Context, ev queue.NotificationEvent) error
}

// Stats summarizes one sweep run.
type Stats struct {
	Reminded int `json:"reminded"`
	Removed  int `json:"removed"`
}

// Reconciler drives the confirmation sweep.
type Reconciler struct {
	sessions SessionSource
	subs     ConfirmationSource
	notes    NotificationStore
	remover  Remover
	pub      Publisher
	now      func() time.Time
}

func New(sessions SessionSource, subs ConfirmationSource, notes NotificationStore, remover Remover, pub Publisher) *Reconciler {
	return &Reconciler{
		sessions: sessions,
		subs:     subs,
		notes:    notes,
		remover:  remover,
		pub:      pub,
		now:      time.Now,
	}
}

// Sweep walks every upcoming session and, for each participant without
// a confirmed subscription, sends the reminder once the window opens
// and removes the seat once the grace period expires. Sessions whose
// reminder time has not come yet are left alone.
func (r *Reconciler) Sweep(ctx context.Context) (Stats, error) {
	var stats Stats
	now := r.now()
	sessions, err := r.sessions.UpcomingSessions(ctx, now)
	if err != nil {
		return stats, err
	}
	for i := range sessions {
		session := &sessions[i]
		remindAt := session.StartsAt.Add(-ReminderLead)
		if now.Before(remindAt) {
			continue
		}
		removeAt := remindAt.Add(RemovalGrace)

		participants, err := r.sessions.Participants(ctx, session.ID)
		if err != nil {
			return stats, err
		}
		for _, userID := range participants {
			confirmed, err := r.subs.HasConfirmed(ctx, userID, session.StartsAt)
			if err != nil {
				return stats, err
			}
			if confirmed {
				continue
			}
			if !now.Before(removeAt) {
				if err := r.remover.RemoveForNoConfirmation(ctx, session.ID, userID); err != nil {
					return stats, err
				}
				stats.Removed++
				continue
			}
			if r.remind(ctx, session, userID) {
				stats.Reminded++
			}
		}
	}
	return stats, nil
}

// remind records the reminder notification and publishes the matching
// event when the record is new. It reports whether a reminder actually
// went out on this run.
func (r *Reconciler) remind(ctx context.Context, session *model.TrainingSession, userID uint64) bool {
	n := &model.Notification{
		UserID:    userID,
		SessionID: &session.ID,
		Type:      model.NotifyConfirmReminder,
		Message: fmt.Sprintf("Please confirm your attendance for session %d on %s.",
			session.ID, session.StartsAt.Format(time.RFC3339)),
	}
	inserted, err := r.notes.Create(ctx, n)
	if err != nil {
		log.Printf("reconciler: store reminder for user %d session %d: %v", userID, session.ID, err)
		return false
	}
	if !inserted {
		return false
	}
	if r.pub != nil {
		ev := queue.NotificationEvent{
			UserID:     userID,
			SessionID:  &session.ID,
			Type:       n.Type,
			Message:    n.Message,
			OccurredAt: r.now().UTC(),
		}
		if err := r.pub.Publish(ctx, ev); err != nil {
			log.Printf("reconciler: publish reminder for user %d: %v", userID, err)
		}
	}
	return true
}
