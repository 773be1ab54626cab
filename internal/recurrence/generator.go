// Package recurrence turns weekly session templates into concrete
// instances. Expansion happens once when a recurring session is
// created; the backfill sweep keeps rolling the series forward one
// week at a time afterwards. Both paths are idempotent: the store's
// UNIQUE (series, start time) key plus an existence probe make
// repeated or overlapping runs produce each instance exactly once.
package recurrence

import (
	"context"
	"errors"
	"time"

	"trainbook/internal/model"
	"trainbook/internal/repository"
)

// Store is the slice of the session repository the generator needs.
type Store interface {
	CreateInstance(ctx context.Context, s *model.TrainingSession) (bool, error)
	ActiveTemplates(ctx context.Context, onDate time.Time) ([]model.TrainingSession, error)
	SeriesInstanceExists(ctx context.Context, seriesID uint64, startsAt time.Time) (bool, error)
	LatestInSeries(ctx context.Context, seriesID uint64) (*model.TrainingSession, error)
}

// Generator creates weekly instances for recurring session templates.
type Generator struct {
	store Store
	now   func() time.Time
}

func NewGenerator(store Store) *Generator {
	return &Generator{store: store, now: time.Now}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// instance builds one generated occurrence of a template: same venue,
// trainer and constraints, shifted start time, fresh capacity, linked
// to its predecessor and to the series root. Generated instances are
// not templates themselves.
func instance(template *model.TrainingSession, parentID, seriesID uint64, startsAt time.Time) *model.TrainingSession {
	child := &model.TrainingSession{
		VenueID:         template.VenueID,
		TrainerID:       template.TrainerID,
		StartsAt:        startsAt,
		Level:           template.Level,
		Gender:          template.Gender,
		MaxParticipants: template.MaxParticipants,
		ParentSessionID: &parentID,
		SeriesID:        &seriesID,
	}
	if template.Intensity != nil {
		v := *template.Intensity
		child.Intensity = &v
	}
	if template.UnenrollDeadline != nil {
		d := template.UnenrollDeadline.Add(startsAt.Sub(template.StartsAt))
		child.UnenrollDeadline = &d
	}
	return child
}

// ExpandTemplate creates the weekly instances of a freshly created
// recurring template, one per week from the template's start until the
// series end date (inclusive). Each instance links to its immediate
// predecessor, so the series forms a chain rooted at the template. It
// returns the number of instances created.
func (g *Generator) ExpandTemplate(ctx context.Context, template *model.TrainingSession) (int, error) {
	if !template.IsRecurring || template.RecurrenceEndDate == nil {
		return 0, nil
	}
	end := dateOnly(*template.RecurrenceEndDate)
	parentID := template.ID
	created := 0
	for next := template.StartsAt.AddDate(0, 0, 7); !dateOnly(next).After(end); next = next.AddDate(0, 0, 7) {
		child := instance(template, parentID, template.ID, next)
		inserted, err := g.store.CreateInstance(ctx, child)
		if err != nil {
			return created, err
		}
		if inserted {
			parentID = child.ID
			created++
		}
	}
	return created, nil
}

// Backfill rolls every active series one week forward. For each
// recurring template whose weekday matches today, it creates the
// instance one week out (at the template's time of day) unless that
// occurrence already exists or falls past the series end. The new
// instance is chained onto the latest one in the series. It returns
// the number of instances created.
func (g *Generator) Backfill(ctx context.Context) (int, error) {
	today := g.now().UTC()
	templates, err := g.store.ActiveTemplates(ctx, today)
	if err != nil {
		return 0, err
	}
	created := 0
	for i := range templates {
		template := &templates[i]
		if template.RecurrenceEndDate == nil || template.StartsAt.Weekday() != today.Weekday() {
			continue
		}
		d := dateOnly(today).AddDate(0, 0, 7)
		next := time.Date(d.Year(), d.Month(), d.Day(),
			template.StartsAt.Hour(), template.StartsAt.Minute(), template.StartsAt.Second(), 0, time.UTC)
		if dateOnly(next).After(dateOnly(*template.RecurrenceEndDate)) {
			continue
		}
		exists, err := g.store.SeriesInstanceExists(ctx, template.ID, next)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		latest, err := g.store.LatestInSeries(ctx, template.ID)
		if err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) {
				latest = template
			} else {
				return created, err
			}
		}
		child := instance(template, latest.ID, template.ID, next)
		inserted, err := g.store.CreateInstance(ctx, child)
		if err != nil {
			return created, err
		}
		if inserted {
			created++
		}
	}
	return created, nil
}
