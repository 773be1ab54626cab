package repository

import (
	"context"
	"database/sql"

	"trainbook/internal/model"
)

// VenueRepo provides CRUD operations for training venues.
type VenueRepo struct {
	q DBTX
}

func NewVenueRepo(q DBTX) *VenueRepo { return &VenueRepo{q: q} }

// Create inserts a venue and populates its generated ID.
func (r *VenueRepo) Create(ctx context.Context, v *model.Venue) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO venues (name, address, metro_station, district, description, level)
		 VALUES (?,?,?,?,?,?)`,
		v.Name, v.Address, v.MetroStation, v.District, v.Description, v.Level)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	return nil
}

// GetByID retrieves a venue, returning ErrVenueNotFound when absent.
func (r *VenueRepo) GetByID(ctx context.Context, id uint64) (*model.Venue, error) {
	var v model.Venue
	err := r.q.QueryRowContext(ctx,
		`SELECT id, name, address, metro_station, district, description, level
		 FROM venues WHERE id = ?`, id).Scan(
		&v.ID, &v.Name, &v.Address, &v.MetroStation, &v.District, &v.Description, &v.Level)
	if err == sql.ErrNoRows {
		return nil, ErrVenueNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// List returns all venues ordered by name.
func (r *VenueRepo) List(ctx context.Context) ([]model.Venue, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, name, address, metro_station, district, description, level
		 FROM venues ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Venue, 0)
	for rows.Next() {
		var v model.Venue
		if err := rows.Scan(&v.ID, &v.Name, &v.Address, &v.MetroStation,
			&v.District, &v.Description, &v.Level); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Delete removes a venue. Venues with scheduled sessions cannot be
// removed; the attempt returns ErrConflict.
func (r *VenueRepo) Delete(ctx context.Context, id uint64) error {
	var one int
	err := r.q.QueryRowContext(ctx,
		`SELECT 1 FROM training_sessions WHERE venue_id = ? LIMIT 1`, id).Scan(&one)
	if err == nil {
		return ErrConflict
	}
	if err != sql.ErrNoRows {
		return err
	}
	res, err := r.q.ExecContext(ctx, `DELETE FROM venues WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVenueNotFound
	}
	return nil
}
