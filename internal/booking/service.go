// Package booking coordinates enrollment: seat taking, waitlists,
// attendance confirmation, waitlist promotion and the bulk auto-enroll
// run after a subscription payment. The coordinator works against
// narrow store interfaces so the SQL repositories and the in-memory
// test fakes are interchangeable; every capacity-sensitive mutation is
// delegated to the session store, whose conditional updates are the
// real arbiter under concurrency.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"trainbook/internal/eligibility"
	"trainbook/internal/model"
	"trainbook/internal/queue"
	"trainbook/internal/repository"
)

// ErrSessionStarted rejects enroll/unenroll/confirm attempts on a
// session whose start time has passed.
var ErrSessionStarted = errors.New("session has already started")

// ErrDeadlinePassed rejects an unenroll after the session's unenroll
// deadline, which binds only users with a confirmed subscription.
var ErrDeadlinePassed = errors.New("unenroll deadline has passed")

// NotEligibleError reports that none of the user's subscriptions may
// pay for the session, carrying the rule that failed.
type NotEligibleError struct {
	Reason string
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("not eligible: %s", e.Reason)
}

// EnrollStatus is the outcome of an enroll request.
type EnrollStatus string

const (
	StatusEnrolled   EnrollStatus = "enrolled"
	StatusWaitlisted EnrollStatus = "waitlisted"
)

// SessionStore is the slice of the session repository the coordinator
// needs.
type SessionStore interface {
	GetByID(ctx context.Context, id uint64) (*model.TrainingSession, error)
	IsParticipant(ctx context.Context, sessionID, userID uint64) (bool, error)
	EnrollParticipant(ctx context.Context, sessionID, userID, subscriptionID uint64) error
	RemoveParticipant(ctx context.Context, sessionID, userID uint64) error
	AddReserve(ctx context.Context, sessionID, userID uint64) error
	AddPriority(ctx context.Context, sessionID, userID uint64) error
	Waiting(ctx context.Context, sessionID uint64) ([]model.WaitingEntry, error)
	RemoveWaiting(ctx context.Context, sessionID, userID uint64) error
	Candidates(ctx context.Context, sub *model.Subscription, from time.Time) ([]model.TrainingSession, error)
}

// SubscriptionStore is the slice of the subscription repository the
// coordinator needs.
type SubscriptionStore interface {
	ActivePaidForUser(ctx context.Context, userID uint64, at time.Time) ([]model.Subscription, error)
	HasConfirmed(ctx context.Context, userID uint64, at time.Time) (bool, error)
	SetConfirmed(ctx context.Context, id uint64) error
}

// ProfileStore resolves the profile eligibility rules run against.
type ProfileStore interface {
	ProfileByUserID(ctx context.Context, userID uint64) (*model.Profile, error)
}

// NotificationStore records notifications; Create reports whether the
// row was new, which gates event publication.
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) (bool, error)
}

// Publisher pushes notification events onto the message queue. It may
// be nil, in which case events are only persisted.
type Publisher interface {
	Publish(ctx context.Context, ev queue.NotificationEvent) error
}

// Service is the enrollment coordinator.
type Service struct {
	sessions SessionStore
	subs     SubscriptionStore
	profiles ProfileStore
	notes    NotificationStore
	pub      Publisher
	now      func() time.Time
}

// NewService wires a coordinator. pub may be nil.
func NewService(sessions SessionStore, subs SubscriptionStore, profiles ProfileStore, notes NotificationStore, pub Publisher) *Service {
	return &Service{
		sessions: sessions,
		subs:     subs,
		profiles: profiles,
		notes:    notes,
		pub:      pub,
		now:      time.Now,
	}
}

// notify persists a notification and, when it is new, publishes the
// matching event. Failures are logged, never surfaced: a lost
// notification must not undo an enrollment.
func (s *Service) notify(ctx context.Context, userID uint64, sessionID *uint64, typ, message string) {
	n := &model.Notification{UserID: userID, SessionID: sessionID, Type: typ, Message: message}
	inserted, err := s.notes.Create(ctx, n)
	if err != nil {
		log.Printf("booking: store notification %s for user %d: %v", typ, userID, err)
		return
	}
	if !inserted || s.pub == nil {
		return
	}
	ev := queue.NotificationEvent{
		UserID:     userID,
		SessionID:  sessionID,
		Type:       typ,
		Message:    message,
		OccurredAt: s.now().UTC(),
	}
	if err := s.pub.Publish(ctx, ev); err != nil {
		log.Printf("booking: publish %s event for user %d: %v", typ, userID, err)
	}
}

// pickSubscription returns the first of the user's active paid
// subscriptions that may pay for the session, or a NotEligibleError
// naming the failure.
func (s *Service) pickSubscription(ctx context.Context, session *model.TrainingSession, profile *model.Profile, mode eligibility.Mode) (*model.Subscription, error) {
	subs, err := s.subs.ActivePaidForUser(ctx, profile.UserID, session.StartsAt)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, &NotEligibleError{Reason: "no active paid subscription"}
	}
	reason := ""
	for i := range subs {
		ok, why := eligibility.Evaluate(&subs[i], session, profile, mode)
		if ok {
			return &subs[i], nil
		}
		if reason == "" {
			reason = why
		}
	}
	return nil, &NotEligibleError{Reason: reason}
}

// waitlist places the user on the appropriate waitlist partition:
// holders of makeup lessons join the priority list, everyone else the
// general reserve. No credit is consumed; eligibility is re-checked at
// promotion time.
func (s *Service) waitlist(ctx context.Context, session *model.TrainingSession, profile *model.Profile) (EnrollStatus, error) {
	add := s.sessions.AddReserve
	if profile.MakeupLessons > 0 {
		add = s.sessions.AddPriority
	}
	if err := add(ctx, session.ID, profile.UserID); err != nil {
		return "", err
	}
	s.notify(ctx, profile.UserID, &session.ID, model.NotifyWaitlisted,
		fmt.Sprintf("Session %d is full; you were added to the waitlist.", session.ID))
	return StatusWaitlisted, nil
}

// Enroll gives the user a seat in the session, consuming one credit
// from an eligible subscription, or places them on the waitlist when
// the session is full. Losing the race for the last seat degrades to a
// waitlist placement rather than an error.
func (s *Service) Enroll(ctx context.Context, sessionID, userID uint64) (EnrollStatus, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if !s.now().Before(session.StartsAt) {
		return "", ErrSessionStarted
	}
	if enrolled, err := s.sessions.IsParticipant(ctx, sessionID, userID); err != nil {
		return "", err
	} else if enrolled {
		return "", repository.ErrAlreadyEnrolled
	}
	profile, err := s.profiles.ProfileByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	if session.Full() {
		return s.waitlist(ctx, session, profile)
	}
	sub, err := s.pickSubscription(ctx, session, profile, eligibility.ModeManual)
	if err != nil {
		return "", err
	}
	err = s.sessions.EnrollParticipant(ctx, sessionID, userID, sub.ID)
	if errors.Is(err, repository.ErrSessionFull) {
		return s.waitlist(ctx, session, profile)
	}
	if err != nil {
		return "", err
	}
	if err := s.sessions.RemoveWaiting(ctx, sessionID, userID); err != nil {
		log.Printf("booking: clear waitlist entry for user %d session %d: %v", userID, sessionID, err)
	}
	s.notify(ctx, userID, &session.ID, model.NotifyEnrolled,
		fmt.Sprintf("You are enrolled in session %d on %s.", session.ID, session.StartsAt.Format(time.RFC3339)))
	return StatusEnrolled, nil
}

// Unenroll releases the user's seat and promotes from the waitlist.
// Users who only hold a waitlist spot are simply removed from it. The
// unenroll deadline binds only users with a confirmed subscription;
// consumed credits are never refunded.
func (s *Service) Unenroll(ctx context.Context, sessionID, userID uint64) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	enrolled, err := s.sessions.IsParticipant(ctx, sessionID, userID)
	if err != nil {
		return err
	}
	if !enrolled {
		return s.sessions.RemoveWaiting(ctx, sessionID, userID)
	}
	confirmed, err := s.subs.HasConfirmed(ctx, userID, session.StartsAt)
	if err != nil {
		return err
	}
	if confirmed {
		deadline := session.StartsAt
		if session.UnenrollDeadline != nil {
			deadline = *session.UnenrollDeadline
		}
		if !s.now().Before(deadline) {
			return ErrDeadlinePassed
		}
	}
	if err := s.sessions.RemoveParticipant(ctx, sessionID, userID); err != nil {
		return err
	}
	return s.Promote(ctx, sessionID)
}

// Confirm marks the user's subscription as confirmed for attendance.
// It is allowed only before the session starts and only for enrolled
// participants. The flag is set on a subscription that is actually
// eligible for the session, not just any active one; when every
// eligible subscription is confirmed already the repeat is reported as
// such.
func (s *Service) Confirm(ctx context.Context, sessionID, userID uint64) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if !s.now().Before(session.StartsAt) {
		return ErrSessionStarted
	}
	enrolled, err := s.sessions.IsParticipant(ctx, sessionID, userID)
	if err != nil {
		return err
	}
	if !enrolled {
		return repository.ErrNotEnrolled
	}
	profile, err := s.profiles.ProfileByUserID(ctx, userID)
	if err != nil {
		return err
	}
	subs, err := s.subs.ActivePaidForUser(ctx, userID, session.StartsAt)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return &NotEligibleError{Reason: "no active paid subscription"}
	}
	reason := ""
	confirmedSeen := false
	for i := range subs {
		// The enrollment being confirmed already consumed its credit,
		// so a drained subscription is still confirmable.
		relaxed := subs[i]
		if relaxed.TrainingsLeft == 0 {
			relaxed.TrainingsLeft = 1
		}
		ok, why := eligibility.Evaluate(&relaxed, session, profile, eligibility.ModeManual)
		if !ok {
			if reason == "" {
				reason = why
			}
			continue
		}
		if subs[i].Confirmed {
			confirmedSeen = true
			continue
		}
		return s.subs.SetConfirmed(ctx, subs[i].ID)
	}
	if confirmedSeen {
		return repository.ErrAlreadyConfirmed
	}
	return &NotEligibleError{Reason: reason}
}

// Promote fills freed seats from the waitlist: the priority partition
// first, then the general reserve, each in join order. A candidate is
// promoted only when one of their paid subscriptions is eligible for
// the session under the exact-level rule; ineligible candidates stay
// on the list. Promotion stops when the session fills up or the list
// is exhausted.
func (s *Service) Promote(ctx context.Context, sessionID uint64) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Full() {
		return nil
	}
	waiting, err := s.sessions.Waiting(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, entry := range waiting {
		profile, err := s.profiles.ProfileByUserID(ctx, entry.UserID)
		if err != nil {
			return err
		}
		sub, err := s.pickSubscription(ctx, session, profile, eligibility.ModeAuto)
		if err != nil {
			var ne *NotEligibleError
			if errors.As(err, &ne) {
				continue
			}
			return err
		}
		err = s.sessions.EnrollParticipant(ctx, sessionID, entry.UserID, sub.ID)
		switch {
		case errors.Is(err, repository.ErrSessionFull):
			return nil
		case errors.Is(err, repository.ErrAlreadyEnrolled):
			if err := s.sessions.RemoveWaiting(ctx, sessionID, entry.UserID); err != nil {
				return err
			}
			continue
		case errors.Is(err, repository.ErrNoCreditsLeft):
			continue
		case err != nil:
			return err
		}
		if err := s.sessions.RemoveWaiting(ctx, sessionID, entry.UserID); err != nil {
			return err
		}
		s.notify(ctx, entry.UserID, &sessionID, model.NotifyPromoted,
			fmt.Sprintf("A seat opened up: you are now enrolled in session %d.", sessionID))
	}
	return nil
}

// AutoEnroll bulk-enrolls the subscription's owner into candidate
// sessions after payment, soonest first, under the exact-level rule.
// It tracks remaining credits locally and stops at zero. Full sessions
// and sessions the user already attends are skipped. It returns the
// number of sessions enrolled.
func (s *Service) AutoEnroll(ctx context.Context, sub *model.Subscription) (int, error) {
	profile, err := s.profiles.ProfileByUserID(ctx, sub.UserID)
	if err != nil {
		return 0, err
	}
	candidates, err := s.sessions.Candidates(ctx, sub, s.now())
	if err != nil {
		return 0, err
	}
	remaining := *sub
	enrolledCount := 0
	for i := range candidates {
		if remaining.TrainingsLeft <= 0 {
			break
		}
		session := &candidates[i]
		if session.Full() {
			continue
		}
		ok, _ := eligibility.Evaluate(&remaining, session, profile, eligibility.ModeAuto)
		if !ok {
			continue
		}
		err := s.sessions.EnrollParticipant(ctx, session.ID, sub.UserID, sub.ID)
		switch {
		case errors.Is(err, repository.ErrSessionFull),
			errors.Is(err, repository.ErrAlreadyEnrolled):
			continue
		case errors.Is(err, repository.ErrNoCreditsLeft):
			remaining.TrainingsLeft = 0
			continue
		case err != nil:
			return enrolledCount, err
		}
		remaining.TrainingsLeft--
		enrolledCount++
		s.notify(ctx, sub.UserID, &session.ID, model.NotifyEnrolled,
			fmt.Sprintf("You are enrolled in session %d on %s.", session.ID, session.StartsAt.Format(time.RFC3339)))
	}
	return enrolledCount, nil
}

// RemoveForNoConfirmation evicts a participant who failed to confirm
// attendance in time, records the removal notification and promotes
// from the waitlist. The consumed credit is not refunded.
func (s *Service) RemoveForNoConfirmation(ctx context.Context, sessionID, userID uint64) error {
	if err := s.sessions.RemoveParticipant(ctx, sessionID, userID); err != nil {
		if errors.Is(err, repository.ErrNotEnrolled) {
			return nil
		}
		return err
	}
	s.notify(ctx, userID, &sessionID, model.NotifyAutoUnenroll,
		fmt.Sprintf("You were removed from session %d: attendance was not confirmed in time.", sessionID))
	return s.Promote(ctx, sessionID)
}
