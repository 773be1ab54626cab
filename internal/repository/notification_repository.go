package repository

import (
	"context"
	"database/sql"

	"trainbook/internal/model"
)

// NotificationRepo stores per-user notification records. The UNIQUE
// (user_id, session_id, type) key is what makes sweep jobs re-entrant:
// a second attempt to record the same reminder simply reports that it
// already exists, so no duplicate outbound message is published.
type NotificationRepo struct {
	q DBTX
}

func NewNotificationRepo(q DBTX) *NotificationRepo { return &NotificationRepo{q: q} }

// Create inserts a notification record. It returns true when the row
// was inserted and false when an identical (user, session, type)
// record already existed.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) (bool, error) {
	var sessionID any
	if n.SessionID != nil {
		sessionID = *n.SessionID
	}
	res, err := r.q.ExecContext(ctx,
		`INSERT IGNORE INTO notifications (user_id, session_id, type, message)
		 VALUES (?,?,?,?)`,
		n.UserID, sessionID, n.Type, n.Message)
	if err != nil {
		return false, err
	}
	inserted, _ := res.RowsAffected()
	if inserted == 0 {
		return false, nil
	}
	id, err := res.LastInsertId()
	if err == nil {
		n.ID = uint64(id)
	}
	return true, nil
}

// ListByUser returns the user's notifications, newest first.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Notification, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, user_id, session_id, type, message, created_at
		 FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Notification, 0)
	for rows.Next() {
		var (
			n         model.Notification
			sessionID sql.NullInt64
		)
		if err := rows.Scan(&n.ID, &n.UserID, &sessionID, &n.Type, &n.Message, &n.CreatedAt); err != nil {
			return nil, err
		}
		if sessionID.Valid {
			v := uint64(sessionID.Int64)
			n.SessionID = &v
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
