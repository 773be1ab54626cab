package reconciler

import (
	"context"
	"testing"
	"time"

	"trainbook/internal/model"
)

type fakeWorld struct {
	sessions     []model.TrainingSession
	participants map[uint64][]uint64
	confirmed    map[uint64]bool
	notes        []model.Notification
	removed      []uint64
}

func (f *fakeWorld) UpcomingSessions(_ context.Context, from time.Time) ([]model.TrainingSession, error) {
	out := make([]model.TrainingSession, 0)
	for _, s := range f.sessions {
		if !s.StartsAt.Before(from) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeWorld) Participants(_ context.Context, sessionID uint64) ([]uint64, error) {
	return append([]uint64{}, f.participants[sessionID]...), nil
}

func (f *fakeWorld) HasConfirmed(_ context.Context, userID uint64, _ time.Time) (bool, error) {
	return f.confirmed[userID], nil
}

func (f *fakeWorld) Create(_ context.Context, n *model.Notification) (bool, error) {
	for _, existing := range f.notes {
		if existing.UserID == n.UserID && existing.Type == n.Type &&
			existing.SessionID != nil && n.SessionID != nil &&
			*existing.SessionID == *n.SessionID {
			return false, nil
		}
	}
	f.notes = append(f.notes, *n)
	return true, nil
}

func (f *fakeWorld) RemoveForNoConfirmation(_ context.Context, sessionID, userID uint64) error {
	list := f.participants[sessionID]
	out := list[:0]
	for _, id := range list {
		if id != userID {
			out = append(out, id)
		}
	}
	f.participants[sessionID] = out
	f.removed = append(f.removed, userID)
	return nil
}

func newWorld(startsAt time.Time) *fakeWorld {
	return &fakeWorld{
		sessions:     []model.TrainingSession{{ID: 1, StartsAt: startsAt, MaxParticipants: 5}},
		participants: map[uint64][]uint64{1: {10, 11}},
		confirmed:    map[uint64]bool{11: true},
	}
}

func newReconciler(w *fakeWorld, now time.Time) *Reconciler {
	r := New(w, w, w, w, nil)
	r.now = func() time.Time { return now }
	return r
}

func TestSweepSendsReminderInsideWindow(t *testing.T) {
	start := time.Date(2024, time.March, 10, 18, 0, 0, 0, time.UTC)
	w := newWorld(start)
	// One hour into the reminder window, well before removal.
	r := newReconciler(w, start.Add(-ReminderLead).Add(time.Hour))

	stats, err := r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if stats.Reminded != 1 || stats.Removed != 0 {
		t.Fatalf("stats = %+v, want 1 reminded, 0 removed", stats)
	}
	if len(w.notes) != 1 || w.notes[0].UserID != 10 || w.notes[0].Type != model.NotifyConfirmReminder {
		t.Fatalf("notes = %+v, want one confirm reminder for user 10", w.notes)
	}

	// Re-running inside the window must not duplicate the reminder.
	stats, err = r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	if stats.Reminded != 0 {
		t.Errorf("second run reminded = %d, want 0", stats.Reminded)
	}
	if len(w.notes) != 1 {
		t.Errorf("notes after rerun = %d, want 1", len(w.notes))
	}
}

func TestSweepBeforeWindowDoesNothing(t *testing.T) {
	start := time.Date(2024, time.March, 10, 18, 0, 0, 0, time.UTC)
	w := newWorld(start)
	r := newReconciler(w, start.Add(-ReminderLead).Add(-time.Hour))

	stats, err := r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if stats.Reminded != 0 || stats.Removed != 0 {
		t.Errorf("stats = %+v, want all zero", stats)
	}
	if len(w.notes) != 0 {
		t.Errorf("notes = %d, want 0", len(w.notes))
	}
}

func TestSweepRemovesAfterGrace(t *testing.T) {
	start := time.Date(2024, time.March, 10, 18, 0, 0, 0, time.UTC)
	w := newWorld(start)
	r := newReconciler(w, start.Add(-ReminderLead).Add(RemovalGrace))

	stats, err := r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if stats.Removed != 1 || stats.Reminded != 0 {
		t.Fatalf("stats = %+v, want 1 removed, 0 reminded", stats)
	}
	if len(w.removed) != 1 || w.removed[0] != 10 {
		t.Errorf("removed = %v, want [10]", w.removed)
	}
	// The confirmed participant keeps the seat.
	if got := w.participants[1]; len(got) != 1 || got[0] != 11 {
		t.Errorf("participants = %v, want [11]", got)
	}

	// Re-running after the removal is a no-op.
	stats, err = r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	if stats.Removed != 0 {
		t.Errorf("second run removed = %d, want 0", stats.Removed)
	}
}

func TestSweepSkipsConfirmedParticipants(t *testing.T) {
	start := time.Date(2024, time.March, 10, 18, 0, 0, 0, time.UTC)
	w := newWorld(start)
	w.confirmed[10] = true
	r := newReconciler(w, start.Add(-ReminderLead).Add(time.Hour))

	stats, err := r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if stats.Reminded != 0 || stats.Removed != 0 {
		t.Errorf("stats = %+v, want all zero", stats)
	}
}
