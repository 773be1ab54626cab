package repository

import (
	"context"

	"trainbook/internal/model"
)

// FeedbackRepo stores participant ratings of finished sessions.
type FeedbackRepo struct {
	q DBTX
}

func NewFeedbackRepo(q DBTX) *FeedbackRepo { return &FeedbackRepo{q: q} }

// Create inserts a feedback row. One rating per (session, user); a
// repeat returns ErrConflict.
func (r *FeedbackRepo) Create(ctx context.Context, f *model.SessionFeedback) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO session_feedback (session_id, user_id, rating, comment)
		 VALUES (?,?,?,?)`,
		f.SessionID, f.UserID, f.Rating, f.Comment)
	if err != nil {
		if isDuplicateErr(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = uint64(id)
	return nil
}

// ListBySession returns all feedback left for a session, newest first.
func (r *FeedbackRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.SessionFeedback, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, session_id, user_id, rating, comment, created_at
		 FROM session_feedback WHERE session_id = ? ORDER BY created_at DESC, id DESC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.SessionFeedback, 0)
	for rows.Next() {
		var f model.SessionFeedback
		if err := rows.Scan(&f.ID, &f.SessionID, &f.UserID, &f.Rating, &f.Comment, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
