package model

import "time"

// Gender scopes restrict who may occupy a session seat.  GenderAny
// admits everyone; the other two require a matching profile gender.
const (
	GenderAny    = "any"
	GenderMale   = "male"
	GenderFemale = "female"
)

// TrainingSession represents a single scheduled, capacity-limited
// training occurrence as stored in `training_sessions`.
//
// CurrentParticipants is derived state: it must equal the number of
// rows in session_participants for this session and never exceed
// MaxParticipants.  Both sides of that invariant are maintained by
// conditional SQL inside a single transaction (see repository layer).
//
// Recurrence forms a forward-only chain: a generated instance stores
// the identifier of its immediate predecessor in ParentSessionID and
// the identifier of the originating template in SeriesID.  SeriesID is
// what backfill uniqueness is keyed on; traversal is always parent to
// children, never cyclic.
//
// Fields:
//  ID                  – primary key identifier.
//  VenueID             – venue where the session takes place.
//  TrainerID           – trainer conducting the session.
//  StartsAt            – session start (UTC).
//  Level               – required training level.
//  Gender              – GenderAny, GenderMale or GenderFemale.
//  Intensity           – optional intensity rating (nullable).
//  MaxParticipants     – seat capacity.
//  CurrentParticipants – derived count of confirmed participants.
//  UnenrollDeadline    – cutoff after which unenroll is refused (nullable).
//  IsRecurring         – true on templates that spawn weekly instances.
//  ParentSessionID     – immediate predecessor in the chain (nullable).
//  SeriesID            – originating recurring template (nullable).
//  RecurrenceEndDate   – last date a weekly instance may fall on (nullable).
type TrainingSession struct {
	ID                  uint64     // training_sessions.id
	VenueID             uint64     // training_sessions.venue_id
	TrainerID           uint64     // training_sessions.trainer_id
	StartsAt            time.Time  // training_sessions.starts_at
	Level               int        // training_sessions.level
	Gender              string     // training_sessions.gender
	Intensity           *int       // training_sessions.intensity (nullable)
	MaxParticipants     int        // training_sessions.max_participants
	CurrentParticipants int        // training_sessions.current_participants
	UnenrollDeadline    *time.Time // training_sessions.unenroll_deadline (nullable)
	IsRecurring         bool       // training_sessions.is_recurring
	ParentSessionID     *uint64    // training_sessions.parent_session_id (nullable)
	SeriesID            *uint64    // training_sessions.series_id (nullable)
	RecurrenceEndDate   *time.Time // training_sessions.recurrence_end_date (nullable)
	CreatedAt           time.Time  // training_sessions.created_at
	UpdatedAt           time.Time  // training_sessions.updated_at
}

// Full reports whether every seat is taken.  It reflects the fetched
// snapshot only; the authoritative check is the conditional UPDATE
// performed when a seat is actually taken.
func (s *TrainingSession) Full() bool {
	return s.CurrentParticipants >= s.MaxParticipants
}

// WaitingEntry is one row of a session's reserve or priority list.
// Priority entries are served before reserve entries; within each
// partition ordering is by join time (FIFO).
type WaitingEntry struct {
	SessionID uint64    // session_reserve.session_id / session_priority.session_id
	UserID    uint64    // the waiting user
	Priority  bool      // true when taken from the priority list
	JoinedAt  time.Time // insertion time, the FIFO key
}

// SessionFeedback is a participant's rating of a finished session.
type SessionFeedback struct {
	ID        uint64    // session_feedback.id
	SessionID uint64    // session_feedback.session_id
	UserID    uint64    // session_feedback.user_id
	Rating    int       // session_feedback.rating (1..5)
	Comment   string    // session_feedback.comment
	CreatedAt time.Time // session_feedback.created_at
}
