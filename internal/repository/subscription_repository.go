package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"trainbook/internal/model"
)

// SubscriptionRepo is the entitlement store. It owns subscription
// rows: validity windows, remaining credits, day/month scoping and the
// payment linkage. The paid-flag transition is a check-and-set backed
// by the UNIQUE payment_id index, which is what makes duplicate
// webhook delivery a safe no-op.
type SubscriptionRepo struct {
	q DBTX
}

// NewSubscriptionRepo returns a SubscriptionRepo bound to the given
// database or transaction.
func NewSubscriptionRepo(q DBTX) *SubscriptionRepo { return &SubscriptionRepo{q: q} }

const subscriptionColumns = `id, user_id, venue_id, trainer_id, type, start_date, end_date,
       trainings_left, price_cents, payment_id, is_paid, confirmed,
       days_of_week, months, client_type, created_at, updated_at`

func scanSubscription(row interface{ Scan(...any) error }) (*model.Subscription, error) {
	var (
		s         model.Subscription
		venueID   sql.NullInt64
		trainerID sql.NullInt64
		paymentID sql.NullString
		days      string
		months    string
	)
	err := row.Scan(
		&s.ID, &s.UserID, &venueID, &trainerID, &s.Type, &s.StartDate, &s.EndDate,
		&s.TrainingsLeft, &s.PriceCents, &paymentID, &s.IsPaid, &s.Confirmed,
		&days, &months, &s.ClientType, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if venueID.Valid {
		v := uint64(venueID.Int64)
		s.VenueID = &v
	}
	if trainerID.Valid {
		v := uint64(trainerID.Int64)
		s.TrainerID = &v
	}
	if paymentID.Valid {
		p := paymentID.String
		s.PaymentID = &p
	}
	s.DaysOfWeek = splitCSV(days)
	s.Months = splitCSV(months)
	s.StartDate = s.StartDate.UTC()
	s.EndDate = s.EndDate.UTC()
	return &s, nil
}

// splitCSV turns a stored scoping column into a set slice; an empty
// column means unrestricted and yields nil.
func splitCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinCSV(set []string) string { return strings.Join(set, ",") }

// Create inserts an unpaid subscription carrying the gateway payment
// identifier obtained at purchase time, and populates the generated
// ID.
func (r *SubscriptionRepo) Create(ctx context.Context, s *model.Subscription) error {
	var venueID, trainerID, paymentID any
	if s.VenueID != nil {
		venueID = *s.VenueID
	}
	if s.TrainerID != nil {
		trainerID = *s.TrainerID
	}
	if s.PaymentID != nil {
		paymentID = *s.PaymentID
	}
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO subscriptions
		 (user_id, venue_id, trainer_id, type, start_date, end_date,
		  trainings_left, price_cents, payment_id, is_paid, confirmed,
		  days_of_week, months, client_type)
		 VALUES (?,?,?,?,?,?,?,?,?,0,0,?,?,?)`,
		s.UserID, venueID, trainerID, s.Type, dbDate(s.StartDate), dbDate(s.EndDate),
		s.TrainingsLeft, s.PriceCents, paymentID,
		joinCSV(s.DaysOfWeek), joinCSV(s.Months), s.ClientType)
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

// GetByID fetches a subscription, returning ErrSubscriptionNotFound
// when absent.
func (r *SubscriptionRepo) GetByID(ctx context.Context, id uint64) (*model.Subscription, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`, id)
	s, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, ErrSubscriptionNotFound
	}
	return s, err
}

// GetByPaymentID fetches a subscription by its gateway payment
// identifier.
func (r *SubscriptionRepo) GetByPaymentID(ctx context.Context, paymentID string) (*model.Subscription, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE payment_id = ?`, paymentID)
	s, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, ErrSubscriptionNotFound
	}
	return s, err
}

// ListByUser returns all subscriptions owned by the user, newest
// first.
func (r *SubscriptionRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Subscription, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Subscription, 0)
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// ActivePaidForUser returns the user's paid subscriptions whose
// validity window covers the given instant. Credits and scoping are
// evaluated by the eligibility layer, not here.
func (r *SubscriptionRepo) ActivePaidForUser(ctx context.Context, userID uint64, at time.Time) ([]model.Subscription, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE user_id = ? AND is_paid = 1 AND start_date <= ? AND end_date >= ?
		 ORDER BY end_date ASC, id ASC`, userID, dbDate(at), dbDate(at))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Subscription, 0)
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// HasConfirmed reports whether the user holds a confirmed, paid
// subscription valid at the given instant. The unenroll deadline only
// binds users who have confirmed attendance.
func (r *SubscriptionRepo) HasConfirmed(ctx context.Context, userID uint64, at time.Time) (bool, error) {
	var one int
	err := r.q.QueryRowContext(ctx,
		`SELECT 1 FROM subscriptions
		 WHERE user_id = ? AND is_paid = 1 AND confirmed = 1
		   AND start_date <= ? AND end_date >= ?
		 LIMIT 1`, userID, dbDate(at), dbDate(at)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// SetConfirmed flips the confirmed flag exactly once. A repeat
// returns ErrAlreadyConfirmed; a missing row returns
// ErrSubscriptionNotFound.
func (r *SubscriptionRepo) SetConfirmed(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE subscriptions SET confirmed = 1 WHERE id = ? AND confirmed = 0`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	var one int
	err = r.q.QueryRowContext(ctx, `SELECT 1 FROM subscriptions WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrSubscriptionNotFound
	}
	if err != nil {
		return err
	}
	return ErrAlreadyConfirmed
}

// MarkPaid performs the check-and-set paid transition for a payment
// identifier. It returns the subscription and true when this call
// flipped the flag, the subscription and false when it was already
// paid (idempotent redelivery), and ErrSubscriptionNotFound when no
// subscription carries the identifier.
func (r *SubscriptionRepo) MarkPaid(ctx context.Context, paymentID string) (*model.Subscription, bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE subscriptions SET is_paid = 1 WHERE payment_id = ? AND is_paid = 0`,
		paymentID)
	if err != nil {
		return nil, false, err
	}
	n, _ := res.RowsAffected()
	sub, err := r.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, false, err
	}
	return sub, n == 1, nil
}
