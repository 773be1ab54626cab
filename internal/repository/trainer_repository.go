package repository

import (
	"context"
	"database/sql"

	"trainbook/internal/model"
)

// TrainerRepo persists trainer profiles, including the gateway payout
// account used for split payments.
type TrainerRepo struct {
	q DBTX
}

func NewTrainerRepo(q DBTX) *TrainerRepo { return &TrainerRepo{q: q} }

// Create inserts a trainer profile for a user. Each user can have at
// most one; a duplicate returns ErrConflict.
func (r *TrainerRepo) Create(ctx context.Context, t *model.Trainer) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO trainers (user_id, experience_years, bio, payout_account_id)
		 VALUES (?,?,?,?)`,
		t.UserID, t.ExperienceYears, t.Bio, t.PayoutAccountID)
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
	t.ID = uint64(id)
	return nil
}

const trainerColumns = `id, user_id, experience_years, bio, payout_account_id`

// GetByID retrieves a trainer, returning ErrTrainerNotFound when
// absent.
func (r *TrainerRepo) GetByID(ctx context.Context, id uint64) (*model.Trainer, error) {
	var t model.Trainer
	err := r.q.QueryRowContext(ctx,
		`SELECT `+trainerColumns+` FROM trainers WHERE id = ?`, id).Scan(
		&t.ID, &t.UserID, &t.ExperienceYears, &t.Bio, &t.PayoutAccountID)
	if err == sql.ErrNoRows {
		return nil, ErrTrainerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByUserID retrieves the trainer profile owned by a user.
func (r *TrainerRepo) GetByUserID(ctx context.Context, userID uint64) (*model.Trainer, error) {
	var t model.Trainer
	err := r.q.QueryRowContext(ctx,
		`SELECT `+trainerColumns+` FROM trainers WHERE user_id = ?`, userID).Scan(
		&t.ID, &t.UserID, &t.ExperienceYears, &t.Bio, &t.PayoutAccountID)
	if err == sql.ErrNoRows {
		return nil, ErrTrainerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns all trainers ordered by id.
func (r *TrainerRepo) List(ctx context.Context) ([]model.Trainer, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+trainerColumns+` FROM trainers ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Trainer, 0)
	for rows.Next() {
		var t model.Trainer
		if err := rows.Scan(&t.ID, &t.UserID, &t.ExperienceYears, &t.Bio, &t.PayoutAccountID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
