package repository

import (
	"context"
	"database/sql"
	"time"

	"trainbook/internal/model"
)

// SessionRepo provides persistence for training sessions and the
// participant, reserve and priority sets attached to them. It is the
// session registry: capacity accounting lives here, and the critical
// check-and-mutate (seat free? then take it) is always a single
// conditional UPDATE so two concurrent enrollments can never both win
// the last seat.
type SessionRepo struct {
	q DBTX
}

// NewSessionRepo returns a SessionRepo bound to the given database or
// transaction.
func NewSessionRepo(q DBTX) *SessionRepo { return &SessionRepo{q: q} }

const sessionColumns = `id, venue_id, trainer_id, starts_at, level, gender, intensity,
       max_participants, current_participants, unenroll_deadline,
       is_recurring, parent_session_id, series_id, recurrence_end_date,
       created_at, updated_at`

// scanSession reads one training_sessions row into a model struct.
func scanSession(row interface{ Scan(...any) error }) (*model.TrainingSession, error) {
	var (
		s         model.TrainingSession
		intensity sql.NullInt64
		deadline  sql.NullTime
		parentID  sql.NullInt64
		seriesID  sql.NullInt64
		recEnd    sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.VenueID, &s.TrainerID, &s.StartsAt, &s.Level, &s.Gender, &intensity,
		&s.MaxParticipants, &s.CurrentParticipants, &deadline,
		&s.IsRecurring, &parentID, &seriesID, &recEnd,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if intensity.Valid {
		v := int(intensity.Int64)
		s.Intensity = &v
	}
	if deadline.Valid {
		t := deadline.Time.UTC()
		s.UnenrollDeadline = &t
	}
	if parentID.Valid {
		v := uint64(parentID.Int64)
		s.ParentSessionID = &v
	}
	if seriesID.Valid {
		v := uint64(seriesID.Int64)
		s.SeriesID = &v
	}
	if recEnd.Valid {
		t := recEnd.Time.UTC()
		s.RecurrenceEndDate = &t
	}
	s.StartsAt = s.StartsAt.UTC()
	return &s, nil
}

// sessionArgs builds the insert arguments shared by Create and
// CreateInstance.
func sessionArgs(s *model.TrainingSession) []any {
	var (
		intensity any
		deadline  any
		parentID  any
		seriesID  any
		recEnd    any
	)
	if s.Intensity != nil {
		intensity = *s.Intensity
	}
	if s.UnenrollDeadline != nil {
		deadline = dbTime(*s.UnenrollDeadline)
	}
	if s.ParentSessionID != nil {
		parentID = *s.ParentSessionID
	}
	if s.SeriesID != nil {
		seriesID = *s.SeriesID
	}
	if s.RecurrenceEndDate != nil {
		recEnd = dbDate(*s.RecurrenceEndDate)
	}
	return []any{
		s.VenueID, s.TrainerID, dbTime(s.StartsAt), s.Level, s.Gender, intensity,
		s.MaxParticipants, deadline, s.IsRecurring, parentID, seriesID, recEnd,
	}
}

const insertSessionQuery = `INSERT INTO training_sessions
	(venue_id, trainer_id, starts_at, level, gender, intensity,
	 max_participants, unenroll_deadline, is_recurring,
	 parent_session_id, series_id, recurrence_end_date)
	VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`

// Create inserts a new session and populates its generated ID.
// current_participants starts at zero regardless of the struct value.
func (r *SessionRepo) Create(ctx context.Context, s *model.TrainingSession) error {
	res, err := r.q.ExecContext(ctx, insertSessionQuery, sessionArgs(s)...)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// CreateInstance inserts a generated weekly instance. The UNIQUE key
// on (series_id, starts_at) makes repeated backfill runs idempotent:
// a duplicate insert reports false with no error.
func (r *SessionRepo) CreateInstance(ctx context.Context, s *model.TrainingSession) (bool, error) {
	res, err := r.q.ExecContext(ctx, insertSessionQuery, sessionArgs(s)...)
	if err != nil {
		if isDuplicateErr(err) {
			return false, nil
		}
		return false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, err
	}
	s.ID = uint64(id)
	return true, nil
}

// GetByID retrieves a session by its ID. It returns ErrSessionNotFound
// when no row exists.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.TrainingSession, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM training_sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	return s, err
}

// listSessions runs a query expected to yield full session rows.
func (r *SessionRepo) listSessions(ctx context.Context, query string, args ...any) ([]model.TrainingSession, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.TrainingSession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// UpcomingSessions returns all sessions starting at or after the given
// instant, ascending by start time. The confirmation reconciler and
// public listings both use it.
func (r *SessionRepo) UpcomingSessions(ctx context.Context, from time.Time) ([]model.TrainingSession, error) {
	return r.listSessions(ctx,
		`SELECT `+sessionColumns+` FROM training_sessions
		 WHERE starts_at >= ? ORDER BY starts_at ASC`, dbTime(from))
}

// Candidates enumerates the sessions a subscription could be applied
// to: inside its validity window, not yet started, and matching the
// venue/trainer scoping when the subscription carries one. Results are
// ascending by date so bulk auto-enroll fills the soonest sessions
// first. Finer eligibility (level, gender, day/month sets) is the
// evaluator's job, not SQL's.
func (r *SessionRepo) Candidates(ctx context.Context, sub *model.Subscription, from time.Time) ([]model.TrainingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM training_sessions
	          WHERE starts_at >= ? AND starts_at >= ? AND starts_at < ?`
	windowEnd := sub.EndDate.AddDate(0, 0, 1) // end_date is inclusive
	args := []any{dbTime(from), dbTime(sub.StartDate), dbTime(windowEnd)}
	if sub.VenueID != nil {
		query += ` AND venue_id = ?`
		args = append(args, *sub.VenueID)
	}
	if sub.TrainerID != nil {
		query += ` AND trainer_id = ?`
		args = append(args, *sub.TrainerID)
	}
	query += ` ORDER BY starts_at ASC`
	return r.listSessions(ctx, query, args...)
}

// Delete removes a session together with its participant, reserve and
// priority edges. Children generated from it keep existing but lose
// their parent link. Returns ErrSessionNotFound when the session does
// not exist.
func (r *SessionRepo) Delete(ctx context.Context, id uint64) error {
	return runInTx(ctx, r.q, func(q DBTX) error {
		for _, stmt := range []string{
			`UPDATE training_sessions SET parent_session_id = NULL WHERE parent_session_id = ?`,
			`DELETE FROM session_participants WHERE session_id = ?`,
			`DELETE FROM session_reserve WHERE session_id = ?`,
			`DELETE FROM session_priority WHERE session_id = ?`,
			`DELETE FROM session_feedback WHERE session_id = ?`,
		} {
			if _, err := q.ExecContext(ctx, stmt, id); err != nil {
				return err
			}
		}
		res, err := q.ExecContext(ctx, `DELETE FROM training_sessions WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrSessionNotFound
		}
		return nil
	})
}

// IsParticipant reports whether the user holds a participant seat.
func (r *SessionRepo) IsParticipant(ctx context.Context, sessionID, userID uint64) (bool, error) {
	var one int
	err := r.q.QueryRowContext(ctx,
		`SELECT 1 FROM session_participants WHERE session_id = ? AND user_id = ?`,
		sessionID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// Participants returns the user IDs currently occupying seats,
// ordered by join time.
func (r *SessionRepo) Participants(ctx context.Context, sessionID uint64) ([]uint64, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT user_id FROM session_participants WHERE session_id = ? ORDER BY joined_at ASC, user_id ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EnrollParticipant atomically gives the user a seat and consumes one
// credit from the paying subscription. The whole sequence runs in one
// transaction:
//
//  1. lock the session row (FOR UPDATE) so concurrent enrollments on
//     the same session serialize,
//  2. insert the participant edge (duplicate -> ErrAlreadyEnrolled),
//  3. increment current_participants only while below capacity
//     (no row updated -> ErrSessionFull),
//  4. decrement trainings_left only while above zero
//     (no row updated -> ErrNoCreditsLeft).
//
// Any failure rolls the whole unit back: no seat without a consumed
// credit, no consumed credit without a seat.
func (r *SessionRepo) EnrollParticipant(ctx context.Context, sessionID, userID, subscriptionID uint64) error {
	return runInTx(ctx, r.q, func(q DBTX) error {
		var max int
		err := q.QueryRowContext(ctx,
			`SELECT max_participants FROM training_sessions WHERE id = ? FOR UPDATE`,
			sessionID).Scan(&max)
		if err == sql.ErrNoRows {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx,
			`INSERT INTO session_participants (session_id, user_id) VALUES (?, ?)`,
			sessionID, userID); err != nil {
			if isDuplicateErr(err) {
				return ErrAlreadyEnrolled
			}
			return err
		}
		res, err := q.ExecContext(ctx,
			`UPDATE training_sessions
			 SET current_participants = current_participants + 1
			 WHERE id = ? AND current_participants < max_participants`,
			sessionID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrSessionFull
		}
		res, err = q.ExecContext(ctx,
			`UPDATE subscriptions
			 SET trainings_left = trainings_left - 1
			 WHERE id = ? AND trainings_left > 0`,
			subscriptionID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNoCreditsLeft
		}
		return nil
	})
}

// RemoveParticipant frees the user's seat and decrements the derived
// counter in the same transaction. The consumed credit is not
// refunded. Returns ErrNotEnrolled when the user held no seat.
func (r *SessionRepo) RemoveParticipant(ctx context.Context, sessionID, userID uint64) error {
	return runInTx(ctx, r.q, func(q DBTX) error {
		res, err := q.ExecContext(ctx,
			`DELETE FROM session_participants WHERE session_id = ? AND user_id = ?`,
			sessionID, userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotEnrolled
		}
		_, err = q.ExecContext(ctx,
			`UPDATE training_sessions
			 SET current_participants = current_participants - 1
			 WHERE id = ? AND current_participants > 0`,
			sessionID)
		return err
	})
}

// AddReserve places the user on the general waitlist. Re-adding is a
// no-op thanks to the UNIQUE (session_id, user_id) key.
func (r *SessionRepo) AddReserve(ctx context.Context, sessionID, userID uint64) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO session_reserve (session_id, user_id) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE user_id = user_id`,
		sessionID, userID)
	return err
}

// AddPriority places the user on the priority waitlist, served before
// the general reserve. Idempotent like AddReserve.
func (r *SessionRepo) AddPriority(ctx context.Context, sessionID, userID uint64) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO session_priority (session_id, user_id) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE user_id = user_id`,
		sessionID, userID)
	return err
}

// Waiting returns the session's waitlist in promotion order: the
// priority partition first, then the general reserve, each FIFO by
// join time.
func (r *SessionRepo) Waiting(ctx context.Context, sessionID uint64) ([]model.WaitingEntry, error) {
	out := make([]model.WaitingEntry, 0)
	for _, part := range []struct {
		table    string
		priority bool
	}{
		{"session_priority", true},
		{"session_reserve", false},
	} {
		rows, err := r.q.QueryContext(ctx,
			`SELECT user_id, joined_at FROM `+part.table+`
			 WHERE session_id = ? ORDER BY joined_at ASC, user_id ASC`,
			sessionID)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			e := model.WaitingEntry{SessionID: sessionID, Priority: part.priority}
			if err := rows.Scan(&e.UserID, &e.JoinedAt); err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, e)
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// RemoveWaiting drops the user from both waitlist partitions.
func (r *SessionRepo) RemoveWaiting(ctx context.Context, sessionID, userID uint64) error {
	for _, table := range []string{"session_priority", "session_reserve"} {
		if _, err := r.q.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE session_id = ? AND user_id = ?`,
			sessionID, userID); err != nil {
			return err
		}
	}
	return nil
}

// ActiveTemplates returns recurring templates whose series has not
// ended by the given date.
func (r *SessionRepo) ActiveTemplates(ctx context.Context, onDate time.Time) ([]model.TrainingSession, error) {
	return r.listSessions(ctx,
		`SELECT `+sessionColumns+` FROM training_sessions
		 WHERE is_recurring = 1 AND recurrence_end_date IS NOT NULL AND recurrence_end_date >= ?
		 ORDER BY id ASC`, dbDate(onDate))
}

// SeriesInstanceExists reports whether an instance of the series
// already exists at the exact start time. The backfill job relies on
// this (plus the UNIQUE key) to stay idempotent under overlapping
// runs.
func (r *SessionRepo) SeriesInstanceExists(ctx context.Context, seriesID uint64, startsAt time.Time) (bool, error) {
	var one int
	err := r.q.QueryRowContext(ctx,
		`SELECT 1 FROM training_sessions WHERE series_id = ? AND starts_at = ?`,
		seriesID, dbTime(startsAt)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// LatestInSeries returns the most recent instance of a series, or the
// template itself when nothing has been generated yet. The backfill
// job links the next instance to it, keeping the chain topology.
func (r *SessionRepo) LatestInSeries(ctx context.Context, seriesID uint64) (*model.TrainingSession, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM training_sessions
		 WHERE series_id = ? OR id = ?
		 ORDER BY starts_at DESC LIMIT 1`, seriesID, seriesID)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	return s, err
}
