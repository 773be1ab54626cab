package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"trainbook/internal/model"
	"trainbook/internal/utils"
)

// UserRepo persists users and their training profiles. A profile row
// is created together with the user so eligibility checks can always
// rely on one existing.
type UserRepo struct {
	q DBTX
}

func NewUserRepo(q DBTX) *UserRepo { return &UserRepo{q: q} }

var ErrEmailExists = errors.New("email already exists")

// Create inserts a user and an initial profile in one transaction and
// returns the new user ID.
func (r *UserRepo) Create(ctx context.Context, u *model.User, p *model.Profile, password string, cost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	var userID uint64
	err = runInTx(ctx, r.q, func(q DBTX) error {
		res, err := q.ExecContext(ctx,
			`INSERT INTO users (email, password_hash, role, first_name, last_name, middle_name)
			 VALUES (?,?,?,?,?,?)`,
			email, hash, u.Role, u.FirstName, u.LastName, u.MiddleName)
		if err != nil {
			if isDuplicateErr(err) {
				return ErrEmailExists
			}
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		userID = uint64(id)
		level := p.Level
		if level < 1 {
			level = 1
		}
		_, err = q.ExecContext(ctx,
			`INSERT INTO profiles (user_id, phone, level, gender, city, occupation, preferred_area)
			 VALUES (?,?,?,?,?,?,?)`,
			userID, p.Phone, level, p.Gender, p.City, p.Occupation, p.PreferredArea)
		return err
	})
	if err != nil {
		return 0, err
	}
	return userID, nil
}

const userColumns = `id, email, password_hash, role, first_name, last_name, middle_name,
       is_active, is_new_client, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role,
		&u.FirstName, &u.LastName, &u.MiddleName,
		&u.IsActive, &u.IsNewClient, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email=? LIMIT 1`, email)
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=? LIMIT 1`, id)
	return scanUser(row)
}

// ProfileByUserID loads the training profile attached to a user.
func (r *UserRepo) ProfileByUserID(ctx context.Context, userID uint64) (*model.Profile, error) {
	var (
		p     model.Profile
		first sql.NullTime
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, phone, level, gender, city, occupation, preferred_area,
		        total_trainings, first_training_date, makeup_lessons
		 FROM profiles WHERE user_id = ? LIMIT 1`, userID).Scan(
		&p.ID, &p.UserID, &p.Phone, &p.Level, &p.Gender, &p.City, &p.Occupation,
		&p.PreferredArea, &p.TotalTrainings, &first, &p.MakeupLessons)
	if err != nil {
		return nil, err
	}
	if first.Valid {
		t := first.Time.UTC()
		p.FirstTrainingDate = &t
	}
	return &p, nil
}

// RecordAttendance bumps the attendance counters after a completed
// session: total count, first-training date when unset, and clears
// the new-client flag.
func (r *UserRepo) RecordAttendance(ctx context.Context, userID uint64) error {
	return runInTx(ctx, r.q, func(q DBTX) error {
		if _, err := q.ExecContext(ctx,
			`UPDATE profiles
			 SET total_trainings = total_trainings + 1,
			     first_training_date = COALESCE(first_training_date, CURDATE())
			 WHERE user_id = ?`, userID); err != nil {
			return err
		}
		_, err := q.ExecContext(ctx,
			`UPDATE users SET is_new_client = 0 WHERE id = ?`, userID)
		return err
	})
}
