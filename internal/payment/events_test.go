package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"trainbook/internal/model"
	"trainbook/internal/repository"
)

type fakeSubs struct {
	byPayment map[string]*model.Subscription
}

func (f *fakeSubs) MarkPaid(_ context.Context, paymentID string) (*model.Subscription, bool, error) {
	sub, ok := f.byPayment[paymentID]
	if !ok {
		return nil, false, repository.ErrSubscriptionNotFound
	}
	if sub.IsPaid {
		return sub, false, nil
	}
	sub.IsPaid = true
	return sub, true, nil
}

type fakeEnroller struct {
	calls int
	err   error
}

func (f *fakeEnroller) AutoEnroll(_ context.Context, _ *model.Subscription) (int, error) {
	f.calls++
	return 2, f.err
}

type fakeNotes struct {
	notes []model.Notification
}

func (f *fakeNotes) Create(_ context.Context, n *model.Notification) (bool, error) {
	f.notes = append(f.notes, *n)
	return true, nil
}

type fakeLock struct {
	granted bool
}

func (f *fakeLock) Acquire(context.Context, string, time.Duration) (bool, error) {
	return f.granted, nil
}

func (f *fakeLock) Release(context.Context, string) {}

func newEventHandler(subs *fakeSubs, enroller *fakeEnroller, lock EventLock) (*Handler, *fakeNotes) {
	notes := &fakeNotes{}
	return NewHandler(subs, enroller, notes, nil, lock), notes
}

func TestApplyEventFirstDelivery(t *testing.T) {
	subs := &fakeSubs{byPayment: map[string]*model.Subscription{
		"pay-1": {ID: 5, UserID: 10},
	}}
	enroller := &fakeEnroller{}
	h, notes := newEventHandler(subs, enroller, nil)

	outcome, err := h.ApplyEvent(context.Background(), EventSucceeded, "pay-1")
	if err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}
	if outcome != OutcomeApplied {
		t.Fatalf("outcome = %v, want OutcomeApplied", outcome)
	}
	if !subs.byPayment["pay-1"].IsPaid {
		t.Error("subscription was not marked paid")
	}
	if enroller.calls != 1 {
		t.Errorf("AutoEnroll calls = %d, want 1", enroller.calls)
	}
	if len(notes.notes) != 1 || notes.notes[0].Type != model.NotifySubscriptionPaid {
		t.Errorf("notes = %+v, want one subscription_paid", notes.notes)
	}
}

func TestApplyEventDuplicateDelivery(t *testing.T) {
	subs := &fakeSubs{byPayment: map[string]*model.Subscription{
		"pay-1": {ID: 5, UserID: 10},
	}}
	enroller := &fakeEnroller{}
	h, _ := newEventHandler(subs, enroller, nil)

	if _, err := h.ApplyEvent(context.Background(), EventSucceeded, "pay-1"); err != nil {
		t.Fatalf("first ApplyEvent: %v", err)
	}
	outcome, err := h.ApplyEvent(context.Background(), EventSucceeded, "pay-1")
	if err != nil {
		t.Fatalf("second ApplyEvent: %v", err)
	}
	if outcome != OutcomeAlreadyPaid {
		t.Fatalf("outcome = %v, want OutcomeAlreadyPaid", outcome)
	}
	if enroller.calls != 1 {
		t.Errorf("AutoEnroll calls = %d, want 1 (no re-enroll on redelivery)", enroller.calls)
	}
}

func TestApplyEventUnknownPayment(t *testing.T) {
	h, _ := newEventHandler(&fakeSubs{byPayment: map[string]*model.Subscription{}}, &fakeEnroller{}, nil)

	_, err := h.ApplyEvent(context.Background(), EventSucceeded, "missing")
	if !errors.Is(err, repository.ErrSubscriptionNotFound) {
		t.Fatalf("err = %v, want ErrSubscriptionNotFound", err)
	}
}

func TestApplyEventIgnoresOtherTypes(t *testing.T) {
	subs := &fakeSubs{byPayment: map[string]*model.Subscription{
		"pay-1": {ID: 5, UserID: 10},
	}}
	enroller := &fakeEnroller{}
	h, _ := newEventHandler(subs, enroller, nil)

	outcome, err := h.ApplyEvent(context.Background(), "payment.canceled", "pay-1")
	if err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}
	if outcome != OutcomeIgnored {
		t.Fatalf("outcome = %v, want OutcomeIgnored", outcome)
	}
	if subs.byPayment["pay-1"].IsPaid {
		t.Error("non-success event marked the subscription paid")
	}
	if enroller.calls != 0 {
		t.Errorf("AutoEnroll calls = %d, want 0", enroller.calls)
	}
}

func TestApplyEventLockDenied(t *testing.T) {
	subs := &fakeSubs{byPayment: map[string]*model.Subscription{
		"pay-1": {ID: 5, UserID: 10},
	}}
	enroller := &fakeEnroller{}
	h, _ := newEventHandler(subs, enroller, &fakeLock{granted: false})

	outcome, err := h.ApplyEvent(context.Background(), EventSucceeded, "pay-1")
	if err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}
	if outcome != OutcomeAlreadyPaid {
		t.Fatalf("outcome = %v, want OutcomeAlreadyPaid", outcome)
	}
	if subs.byPayment["pay-1"].IsPaid {
		t.Error("locked-out delivery still mutated the subscription")
	}
}

func TestApplyEventEnrollFailureSurfaces(t *testing.T) {
	subs := &fakeSubs{byPayment: map[string]*model.Subscription{
		"pay-1": {ID: 5, UserID: 10},
	}}
	boom := errors.New("boom")
	h, _ := newEventHandler(subs, &fakeEnroller{err: boom}, nil)

	outcome, err := h.ApplyEvent(context.Background(), EventSucceeded, "pay-1")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if outcome != OutcomeApplied {
		t.Fatalf("outcome = %v, want OutcomeApplied", outcome)
	}
}
