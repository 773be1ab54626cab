package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trainbook/internal/model"
	"trainbook/internal/repository"
)

// memStore is an in-memory stand-in for the SQL repositories. All
// methods take the mutex, so the capacity check-and-take is atomic the
// same way the conditional UPDATE is in MySQL.
type memStore struct {
	mu           sync.Mutex
	sessions     map[uint64]*model.TrainingSession
	participants map[uint64]map[uint64]bool
	reserve      map[uint64][]uint64
	priority     map[uint64][]uint64
	subs         map[uint64]*model.Subscription
	profiles     map[uint64]*model.Profile
	notes        []model.Notification
}

func newMemStore() *memStore {
	return &memStore{
		sessions:     make(map[uint64]*model.TrainingSession),
		participants: make(map[uint64]map[uint64]bool),
		reserve:      make(map[uint64][]uint64),
		priority:     make(map[uint64][]uint64),
		subs:         make(map[uint64]*model.Subscription),
		profiles:     make(map[uint64]*model.Profile),
	}
}

func (m *memStore) GetByID(_ context.Context, id uint64) (*model.TrainingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) IsParticipant(_ context.Context, sessionID, userID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.participants[sessionID][userID], nil
}

func (m *memStore) EnrollParticipant(_ context.Context, sessionID, userID, subscriptionID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return repository.ErrSessionNotFound
	}
	if m.participants[sessionID][userID] {
		return repository.ErrAlreadyEnrolled
	}
	if s.CurrentParticipants >= s.MaxParticipants {
		return repository.ErrSessionFull
	}
	sub, ok := m.subs[subscriptionID]
	if !ok || sub.TrainingsLeft <= 0 {
		return repository.ErrNoCreditsLeft
	}
	if m.participants[sessionID] == nil {
		m.participants[sessionID] = make(map[uint64]bool)
	}
	m.participants[sessionID][userID] = true
	s.CurrentParticipants++
	sub.TrainingsLeft--
	return nil
}

func (m *memStore) RemoveParticipant(_ context.Context, sessionID, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.participants[sessionID][userID] {
		return repository.ErrNotEnrolled
	}
	delete(m.participants[sessionID], userID)
	if s := m.sessions[sessionID]; s.CurrentParticipants > 0 {
		s.CurrentParticipants--
	}
	return nil
}

func appendOnce(list []uint64, userID uint64) []uint64 {
	for _, id := range list {
		if id == userID {
			return list
		}
	}
	return append(list, userID)
}

func (m *memStore) AddReserve(_ context.Context, sessionID, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reserve[sessionID] = appendOnce(m.reserve[sessionID], userID)
	return nil
}

func (m *memStore) AddPriority(_ context.Context, sessionID, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priority[sessionID] = appendOnce(m.priority[sessionID], userID)
	return nil
}

func (m *memStore) Waiting(_ context.Context, sessionID uint64) ([]model.WaitingEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.WaitingEntry, 0)
	for _, id := range m.priority[sessionID] {
		out = append(out, model.WaitingEntry{SessionID: sessionID, UserID: id, Priority: true})
	}
	for _, id := range m.reserve[sessionID] {
		out = append(out, model.WaitingEntry{SessionID: sessionID, UserID: id})
	}
	return out, nil
}

func removeID(list []uint64, userID uint64) []uint64 {
	out := list[:0]
	for _, id := range list {
		if id != userID {
			out = append(out, id)
		}
	}
	return out
}

func (m *memStore) RemoveWaiting(_ context.Context, sessionID, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priority[sessionID] = removeID(m.priority[sessionID], userID)
	m.reserve[sessionID] = removeID(m.reserve[sessionID], userID)
	return nil
}

func (m *memStore) Candidates(_ context.Context, sub *model.Subscription, from time.Time) ([]model.TrainingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.TrainingSession, 0)
	for _, s := range m.sessions {
		if s.StartsAt.Before(from) || s.StartsAt.Before(sub.StartDate) {
			continue
		}
		if s.StartsAt.After(sub.EndDate.AddDate(0, 0, 1)) {
			continue
		}
		out = append(out, *s)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].StartsAt.Before(out[i].StartsAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (m *memStore) ActivePaidForUser(_ context.Context, userID uint64, at time.Time) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Subscription, 0)
	for _, sub := range m.subs {
		if sub.UserID != userID || !sub.IsPaid {
			continue
		}
		if at.Before(sub.StartDate) || at.After(sub.EndDate.AddDate(0, 0, 1)) {
			continue
		}
		out = append(out, *sub)
	}
	return out, nil
}

func (m *memStore) HasConfirmed(_ context.Context, userID uint64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.subs {
		if sub.UserID == userID && sub.IsPaid && sub.Confirmed &&
			!at.Before(sub.StartDate) && !at.After(sub.EndDate.AddDate(0, 0, 1)) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) SetConfirmed(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	if !ok {
		return repository.ErrSubscriptionNotFound
	}
	if sub.Confirmed {
		return repository.ErrAlreadyConfirmed
	}
	sub.Confirmed = true
	return nil
}

func (m *memStore) ProfileByUserID(_ context.Context, userID uint64) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, errors.New("profile not found")
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) Create(_ context.Context, n *model.Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.notes {
		if existing.UserID == n.UserID && existing.Type == n.Type &&
			sameSession(existing.SessionID, n.SessionID) {
			return false, nil
		}
	}
	m.notes = append(m.notes, *n)
	return true, nil
}

func sameSession(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (m *memStore) hasNote(userID uint64, typ string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notes {
		if n.UserID == userID && n.Type == typ {
			return true
		}
	}
	return false
}

func (m *memStore) participantCount(sessionID uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.participants[sessionID])
}

func (m *memStore) waitingIDs(sessionID uint64) []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]uint64{}, m.priority[sessionID]...)
	return append(out, m.reserve[sessionID]...)
}

var sessionStart = time.Date(2024, time.February, 5, 18, 0, 0, 0, time.UTC) // Monday

func newTestService(store *memStore, now time.Time) *Service {
	svc := NewService(store, store, store, store, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func addSession(store *memStore, id uint64, max int) *model.TrainingSession {
	s := &model.TrainingSession{
		ID:              id,
		StartsAt:        sessionStart,
		Level:           2,
		Gender:          model.GenderAny,
		MaxParticipants: max,
	}
	store.sessions[id] = s
	return s
}

func addUser(store *memStore, userID uint64, level int, credits int) *model.Subscription {
	store.profiles[userID] = &model.Profile{UserID: userID, Level: level, Gender: model.GenderFemale}
	sub := &model.Subscription{
		ID:            userID * 100,
		UserID:        userID,
		StartDate:     time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		TrainingsLeft: credits,
		IsPaid:        true,
	}
	store.subs[sub.ID] = sub
	return sub
}

func TestEnrollTakesSeatAndConsumesCredit(t *testing.T) {
	store := newMemStore()
	addSession(store, 1, 5)
	sub := addUser(store, 10, 2, 3)
	svc := newTestService(store, sessionStart.Add(-48*time.Hour))

	status, err := svc.Enroll(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if status != StatusEnrolled {
		t.Fatalf("status = %q, want %q", status, StatusEnrolled)
	}
	if store.subs[sub.ID].TrainingsLeft != 2 {
		t.Errorf("trainings_left = %d, want 2", store.subs[sub.ID].TrainingsLeft)
	}
	if store.sessions[1].CurrentParticipants != 1 {
		t.Errorf("current_participants = %d, want 1", store.sessions[1].CurrentParticipants)
	}
	if !store.hasNote(10, model.NotifyEnrolled) {
		t.Error("expected an enrolled notification")
	}

	if _, err := svc.Enroll(context.Background(), 1, 10); !errors.Is(err, repository.ErrAlreadyEnrolled) {
		t.Errorf("second Enroll err = %v, want ErrAlreadyEnrolled", err)
	}
}

func TestEnrollWithoutEligibleSubscription(t *testing.T) {
	store := newMemStore()
	addSession(store, 1, 5)
	store.profiles[10] = &model.Profile{UserID: 10, Level: 2, Gender: model.GenderFemale}
	svc := newTestService(store, sessionStart.Add(-48*time.Hour))

	_, err := svc.Enroll(context.Background(), 1, 10)
	var ne *NotEligibleError
	if !errors.As(err, &ne) {
		t.Fatalf("err = %v, want NotEligibleError", err)
	}
}

func TestEnrollAfterStart(t *testing.T) {
	store := newMemStore()
	addSession(store, 1, 5)
	addUser(store, 10, 2, 3)
	svc := newTestService(store, sessionStart.Add(time.Minute))

	if _, err := svc.Enroll(context.Background(), 1, 10); !errors.Is(err, ErrSessionStarted) {
		t.Fatalf("err = %v, want ErrSessionStarted", err)
	}
}

func TestEnrollFullSessionWaitlists(t *testing.T) {
	store := newMemStore()
	s := addSession(store, 1, 1)
	s.CurrentParticipants = 1
	store.participants[1] = map[uint64]bool{99: true}
	sub := addUser(store, 10, 2, 3)
	svc := newTestService(store, sessionStart.Add(-48*time.Hour))

	status, err := svc.Enroll(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if status != StatusWaitlisted {
		t.Fatalf("status = %q, want %q", status, StatusWaitlisted)
	}
	if store.subs[sub.ID].TrainingsLeft != 3 {
		t.Errorf("waitlisting consumed a credit: trainings_left = %d", store.subs[sub.ID].TrainingsLeft)
	}
	if got := store.waitingIDs(1); len(got) != 1 || got[0] != 10 {
		t.Errorf("waitlist = %v, want [10]", got)
	}
	if !store.hasNote(10, model.NotifyWaitlisted) {
		t.Error("expected a waitlisted notification")
	}
}

func TestEnrollMakeupLessonsJoinPriorityList(t *testing.T) {
	store := newMemStore()
	s := addSession(store, 1, 1)
	s.CurrentParticipants = 1
	addUser(store, 10, 2, 3)
	store.profiles[10].MakeupLessons = 2
	svc := newTestService(store, sessionStart.Add(-48*time.Hour))

	if _, err := svc.Enroll(context.Background(), 1, 10); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.priority[1]) != 1 || store.priority[1][0] != 10 {
		t.Errorf("priority list = %v, want [10]", store.priority[1])
	}
	if len(store.reserve[1]) != 0 {
		t.Errorf("reserve list = %v, want empty", store.reserve[1])
	}
}

// Two users race for the last seat; exactly one must win it and the
// other must land on the waitlist, never both in the participant set.
func TestEnrollLastSeatRace(t *testing.T) {
	store := newMemStore()
	addSession(store, 1, 1)
	addUser(store, 10, 2, 3)
	addUser(store, 11, 2, 3)
	svc := newTestService(store, sessionStart.Add(-48*time.Hour))

	results := make(chan EnrollStatus, 2)
	var wg sync.WaitGroup
	for _, userID := range []uint64{10, 11} {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			status, err := svc.Enroll(context.Background(), 1, id)
			if err != nil {
				t.Errorf("Enroll(%d): %v", id, err)
				return
			}
			results <- status
		}(userID)
	}
	wg.Wait()
	close(results)

	var enrolled, waitlisted int
	for status := range results {
		switch status {
		case StatusEnrolled:
			enrolled++
		case StatusWaitlisted:
			waitlisted++
		}
	}
	if enrolled != 1 || waitlisted != 1 {
		t.Fatalf("enrolled=%d waitlisted=%d, want exactly one of each", enrolled, waitlisted)
	}
	if n := store.participantCount(1); n != 1 {
		t.Errorf("participant count = %d, want 1", n)
	}
}

func TestUnenrollDeadlineBindsConfirmedUsers(t *testing.T) {
	store := newMemStore()
	s := addSession(store, 1, 5)
	deadline := sessionStart.Add(-24 * time.Hour)
	s.UnenrollDeadline = &deadline
	sub := addUser(store, 10, 2, 3)
	sub.Confirmed = true

	svc := newTestService(store, sessionStart.Add(-72*time.Hour))
	if _, err := svc.Enroll(context.Background(), 1, 10); err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	svc.now = func() time.Time { return sessionStart.Add(-time.Hour) } // past deadline
	if err := svc.Unenroll(context.Background(), 1, 10); !errors.Is(err, ErrDeadlinePassed) {
		t.Fatalf("err = %v, want ErrDeadlinePassed", err)
	}

	svc.now = func() time.Time { return sessionStart.Add(-48 * time.Hour) }
	if err := svc.Unenroll(context.Background(), 1, 10); err != nil {
		t.Fatalf("Unenroll before deadline: %v", err)
	}
	if store.subs[sub.ID].TrainingsLeft != 2 {
		t.Errorf("credit was refunded: trainings_left = %d, want 2", store.subs[sub.ID].TrainingsLeft)
	}
	if n := store.participantCount(1); n != 0 {
		t.Errorf("participant count = %d, want 0", n)
	}
}

func TestUnenrollIgnoresDeadlineWithoutConfirmation(t *testing.T) {
	store := newMemStore()
	s := addSession(store, 1, 5)
	deadline := sessionStart.Add(-24 * time.Hour)
	s.UnenrollDeadline = &deadline
	addUser(store, 10, 2, 3)

	svc := newTestService(store, sessionStart.Add(-72*time.Hour))
	if _, err := svc.Enroll(context.Background(), 1, 10); err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	svc.now = func() time.Time { return sessionStart.Add(-time.Hour) }
	if err := svc.Unenroll(context.Background(), 1, 10); err != nil {
		t.Fatalf("Unenroll: %v", err)
	}
}

func TestUnenrollPromotesFromWaitlist(t *testing.T) {
	store := newMemStore()
	addSession(store, 1, 1)
	addUser(store, 10, 2, 3)
	addUser(store, 11, 2, 3)
	svc := newTestService(store, sessionStart.Add(-72*time.Hour))

	if _, err := svc.Enroll(context.Background(), 1, 10); err != nil {
		t.Fatalf("Enroll(10): %v", err)
	}
	if status, err := svc.Enroll(context.Background(), 1, 11); err != nil || status != StatusWaitlisted {
		t.Fatalf("Enroll(11) = %q, %v; want waitlisted", status, err)
	}

	if err := svc.Unenroll(context.Background(), 1, 10); err != nil {
		t.Fatalf("Unenroll: %v", err)
	}
	if ok, _ := store.IsParticipant(context.Background(), 1, 11); !ok {
		t.Error("waitlisted user was not promoted")
	}
	if got := store.waitingIDs(1); len(got) != 0 {
		t.Errorf("waitlist = %v, want empty", got)
	}
	if !store.hasNote(11, model.NotifyPromoted) {
		t.Error("expected a promoted notification")
	}
}

func TestPromotePriorityBeforeReserve(t *testing.T) {
	store := newMemStore()
	addSession(store, 1, 1)
	addUser(store, 11, 2, 3)
	addUser(store, 12, 2, 3)
	store.reserve[1] = []uint64{11} // joined first
	store.priority[1] = []uint64{12}
	svc := newTestService(store, sessionStart.Add(-72*time.Hour))

	if err := svc.Promote(context.Background(), 1); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if ok, _ := store.IsParticipant(context.Background(), 1, 12); !ok {
		t.Error("priority user was not promoted first")
	}
	if ok, _ := store.IsParticipant(context.Background(), 1, 11); ok {
		t.Error("reserve user took the seat ahead of the priority user")
	}
}

func TestPromoteSkipsIneligible(t *testing.T) {
	store := newMemStore()
	addSession(store, 1, 1)  // level 2
	addUser(store, 11, 1, 3) // level below, auto mode requires exact
	addUser(store, 12, 2, 3)
	store.reserve[1] = []uint64{11, 12}
	svc := newTestService(store, sessionStart.Add(-72*time.Hour))

	if err := svc.Promote(context.Background(), 1); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if ok, _ := store.IsParticipant(context.Background(), 1, 12); !ok {
		t.Error("eligible user was not promoted")
	}
	if ok, _ := store.IsParticipant(context.Background(), 1, 11); ok {
		t.Error("ineligible user was promoted")
	}
	// The ineligible user keeps their spot for later seats.
	if got := store.waitingIDs(1); len(got) != 1 || got[0] != 11 {
		t.Errorf("waitlist = %v, want [11]", got)
	}
}

func TestAutoEnrollStopsAtZeroCredits(t *testing.T) {
	store := newMemStore()
	for i := uint64(1); i <= 3; i++ {
		s := addSession(store, i, 5)
		s.StartsAt = sessionStart.Add(time.Duration(i) * 24 * time.Hour)
	}
	sub := addUser(store, 10, 2, 2)
	svc := newTestService(store, sessionStart)

	n, err := svc.AutoEnroll(context.Background(), store.subs[sub.ID])
	if err != nil {
		t.Fatalf("AutoEnroll: %v", err)
	}
	if n != 2 {
		t.Fatalf("enrolled %d sessions, want 2", n)
	}
	// Soonest sessions first: 1 and 2, not 3.
	for _, tc := range []struct {
		sessionID uint64
		want      bool
	}{{1, true}, {2, true}, {3, false}} {
		if ok, _ := store.IsParticipant(context.Background(), tc.sessionID, 10); ok != tc.want {
			t.Errorf("participant in session %d = %v, want %v", tc.sessionID, ok, tc.want)
		}
	}
	if store.subs[sub.ID].TrainingsLeft != 0 {
		t.Errorf("trainings_left = %d, want 0", store.subs[sub.ID].TrainingsLeft)
	}
}

func TestAutoEnrollSkipsFullAndMismatchedSessions(t *testing.T) {
	store := newMemStore()
	full := addSession(store, 1, 1)
	full.CurrentParticipants = 1
	wrongLevel := addSession(store, 2, 5)
	wrongLevel.Level = 3
	addSession(store, 3, 5)
	sub := addUser(store, 10, 2, 5)
	svc := newTestService(store, sessionStart.Add(-time.Hour))

	n, err := svc.AutoEnroll(context.Background(), store.subs[sub.ID])
	if err != nil {
		t.Fatalf("AutoEnroll: %v", err)
	}
	if n != 1 {
		t.Fatalf("enrolled %d sessions, want 1", n)
	}
	if ok, _ := store.IsParticipant(context.Background(), 3, 10); !ok {
		t.Error("expected enrollment in the matching session")
	}
}

func TestConfirm(t *testing.T) {
	store := newMemStore()
	addSession(store, 1, 5)
	sub := addUser(store, 10, 2, 3)
	svc := newTestService(store, sessionStart.Add(-72*time.Hour))

	if err := svc.Confirm(context.Background(), 1, 10); !errors.Is(err, repository.ErrNotEnrolled) {
		t.Fatalf("Confirm before enroll err = %v, want ErrNotEnrolled", err)
	}
	if _, err := svc.Enroll(context.Background(), 1, 10); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if err := svc.Confirm(context.Background(), 1, 10); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !store.subs[sub.ID].Confirmed {
		t.Error("subscription was not confirmed")
	}
	if err := svc.Confirm(context.Background(), 1, 10); !errors.Is(err, repository.ErrAlreadyConfirmed) {
		t.Errorf("second Confirm err = %v, want ErrAlreadyConfirmed", err)
	}

	svc.now = func() time.Time { return sessionStart.Add(time.Minute) }
	if err := svc.Confirm(context.Background(), 1, 10); !errors.Is(err, ErrSessionStarted) {
		t.Errorf("Confirm after start err = %v, want ErrSessionStarted", err)
	}
}

func TestConfirmTargetsSessionEligibleSubscription(t *testing.T) {
	store := newMemStore()
	addSession(store, 1, 5)
	sub := addUser(store, 10, 2, 3)
	// A second subscription that can never pay for the Monday session
	// and is already confirmed must not shadow the relevant one.
	other := &model.Subscription{
		ID:            7,
		UserID:        10,
		StartDate:     time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		TrainingsLeft: 3,
		IsPaid:        true,
		Confirmed:     true,
		DaysOfWeek:    []string{"tue"},
	}
	store.subs[other.ID] = other
	svc := newTestService(store, sessionStart.Add(-72*time.Hour))

	if _, err := svc.Enroll(context.Background(), 1, 10); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if err := svc.Confirm(context.Background(), 1, 10); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !store.subs[sub.ID].Confirmed {
		t.Error("session-eligible subscription was not confirmed")
	}
}

func TestConfirmAfterLastCreditSpent(t *testing.T) {
	store := newMemStore()
	addSession(store, 1, 5)
	sub := addUser(store, 10, 2, 1)
	svc := newTestService(store, sessionStart.Add(-72*time.Hour))

	if _, err := svc.Enroll(context.Background(), 1, 10); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if store.subs[sub.ID].TrainingsLeft != 0 {
		t.Fatalf("trainings_left = %d, want 0", store.subs[sub.ID].TrainingsLeft)
	}
	if err := svc.Confirm(context.Background(), 1, 10); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !store.subs[sub.ID].Confirmed {
		t.Error("subscription was not confirmed")
	}
}

func TestRemoveForNoConfirmation(t *testing.T) {
	store := newMemStore()
	addSession(store, 1, 1)
	sub := addUser(store, 10, 2, 3)
	addUser(store, 11, 2, 3)
	svc := newTestService(store, sessionStart.Add(-72*time.Hour))

	if _, err := svc.Enroll(context.Background(), 1, 10); err != nil {
		t.Fatalf("Enroll(10): %v", err)
	}
	if _, err := svc.Enroll(context.Background(), 1, 11); err != nil {
		t.Fatalf("Enroll(11): %v", err)
	}

	if err := svc.RemoveForNoConfirmation(context.Background(), 1, 10); err != nil {
		t.Fatalf("RemoveForNoConfirmation: %v", err)
	}
	if ok, _ := store.IsParticipant(context.Background(), 1, 10); ok {
		t.Error("removed user is still a participant")
	}
	if ok, _ := store.IsParticipant(context.Background(), 1, 11); !ok {
		t.Error("waitlisted user was not promoted after removal")
	}
	if !store.hasNote(10, model.NotifyAutoUnenroll) {
		t.Error("expected an auto-unenroll notification")
	}
	if store.subs[sub.ID].TrainingsLeft != 2 {
		t.Errorf("credit was refunded: trainings_left = %d, want 2", store.subs[sub.ID].TrainingsLeft)
	}

	// Re-running the sweep for the same user is a no-op.
	if err := svc.RemoveForNoConfirmation(context.Background(), 1, 10); err != nil {
		t.Fatalf("repeat RemoveForNoConfirmation: %v", err)
	}
}
