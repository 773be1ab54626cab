package eligibility

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"trainbook/internal/model"
)

func date(y int, m time.Month, d, hh int) time.Time {
	return time.Date(y, m, d, hh, 0, 0, 0, time.UTC)
}

func baseSub() *model.Subscription {
	return &model.Subscription{
		ID:            1,
		UserID:        10,
		StartDate:     date(2024, time.January, 1, 0),
		EndDate:       date(2024, time.March, 31, 0),
		TrainingsLeft: 5,
		IsPaid:        true,
	}
}

func baseSession() *model.TrainingSession {
	return &model.TrainingSession{
		ID:       100,
		StartsAt: date(2024, time.January, 8, 18), // Monday
		Level:    2,
		Gender:   model.GenderAny,
	}
}

func baseProfile() *model.Profile {
	return &model.Profile{UserID: 10, Level: 2, Gender: model.GenderFemale}
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*model.Subscription, *model.TrainingSession, *model.Profile)
		mode    Mode
		want    bool
		wantWhy string
	}{
		{
			name:   "all rules pass manual",
			mutate: func(*model.Subscription, *model.TrainingSession, *model.Profile) {},
			mode:   ModeManual,
			want:   true,
		},
		{
			name: "unpaid subscription",
			mutate: func(sub *model.Subscription, _ *model.TrainingSession, _ *model.Profile) {
				sub.IsPaid = false
			},
			mode:    ModeManual,
			wantWhy: "subscription is not paid",
		},
		{
			name: "session before window",
			mutate: func(sub *model.Subscription, s *model.TrainingSession, _ *model.Profile) {
				s.StartsAt = date(2023, time.December, 31, 18)
			},
			mode:    ModeManual,
			wantWhy: "session date outside subscription validity window",
		},
		{
			name: "session on end date still inside",
			mutate: func(sub *model.Subscription, s *model.TrainingSession, _ *model.Profile) {
				s.StartsAt = date(2024, time.March, 31, 23)
			},
			mode: ModeManual,
			want: true,
		},
		{
			name: "no credits left",
			mutate: func(sub *model.Subscription, _ *model.TrainingSession, _ *model.Profile) {
				sub.TrainingsLeft = 0
			},
			mode:    ModeManual,
			wantWhy: "no trainings left on subscription",
		},
		{
			name: "weekday outside day scope",
			mutate: func(sub *model.Subscription, _ *model.TrainingSession, _ *model.Profile) {
				sub.DaysOfWeek = []string{"tue", "thu"}
			},
			mode:    ModeManual,
			wantWhy: "session weekday not covered by subscription",
		},
		{
			name: "weekday inside day scope",
			mutate: func(sub *model.Subscription, _ *model.TrainingSession, _ *model.Profile) {
				sub.DaysOfWeek = []string{"mon", "wed"}
			},
			mode: ModeManual,
			want: true,
		},
		{
			name: "month outside month scope",
			mutate: func(sub *model.Subscription, _ *model.TrainingSession, _ *model.Profile) {
				sub.Months = []string{"2024-2"}
			},
			mode:    ModeManual,
			wantWhy: "session month not covered by subscription",
		},
		{
			name: "month inside month scope",
			mutate: func(sub *model.Subscription, _ *model.TrainingSession, _ *model.Profile) {
				sub.Months = []string{"2024-1", "2024-2"}
			},
			mode: ModeManual,
			want: true,
		},
		{
			name: "manual admits higher level user",
			mutate: func(_ *model.Subscription, _ *model.TrainingSession, p *model.Profile) {
				p.Level = 3
			},
			mode: ModeManual,
			want: true,
		},
		{
			name: "manual rejects lower level user",
			mutate: func(_ *model.Subscription, _ *model.TrainingSession, p *model.Profile) {
				p.Level = 1
			},
			mode:    ModeManual,
			wantWhy: "user level below session level",
		},
		{
			name: "auto requires exact level",
			mutate: func(_ *model.Subscription, _ *model.TrainingSession, p *model.Profile) {
				p.Level = 3
			},
			mode:    ModeAuto,
			wantWhy: "user level does not match session level",
		},
		{
			name: "gender scope mismatch",
			mutate: func(_ *model.Subscription, s *model.TrainingSession, _ *model.Profile) {
				s.Gender = model.GenderMale
			},
			mode:    ModeManual,
			wantWhy: "session gender scope does not admit user",
		},
		{
			name: "gender scope match",
			mutate: func(_ *model.Subscription, s *model.TrainingSession, _ *model.Profile) {
				s.Gender = model.GenderFemale
			},
			mode: ModeManual,
			want: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub, session, profile := baseSub(), baseSession(), baseProfile()
			tc.mutate(sub, session, profile)
			ok, why := Evaluate(sub, session, profile, tc.mode)
			if ok != tc.want {
				t.Fatalf("Evaluate() = %v (%q), want %v", ok, why, tc.want)
			}
			if why != tc.wantWhy {
				t.Errorf("reason = %q, want %q", why, tc.wantWhy)
			}
		})
	}
}

func TestDayToken(t *testing.T) {
	if got := DayToken(date(2024, time.January, 8, 18)); got != "mon" {
		t.Errorf("DayToken = %q, want mon", got)
	}
	if got := DayToken(date(2024, time.January, 14, 9)); got != "sun" {
		t.Errorf("DayToken = %q, want sun", got)
	}
}

func TestMonthToken(t *testing.T) {
	if got := MonthToken(date(2024, time.January, 8, 18)); got != "2024-1" {
		t.Errorf("MonthToken = %q, want 2024-1", got)
	}
	if got := MonthToken(date(2024, time.November, 1, 0)); got != "2024-11" {
		t.Errorf("MonthToken = %q, want 2024-11", got)
	}
}

func TestParseDays(t *testing.T) {
	got, err := ParseDays(" Mon, WED ,fri ")
	if err != nil {
		t.Fatalf("ParseDays: %v", err)
	}
	if want := []string{"mon", "wed", "fri"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ParseDays = %v, want %v", got, want)
	}

	if got, err := ParseDays(""); err != nil || got != nil {
		t.Errorf("ParseDays(empty) = %v, %v; want nil, nil", got, err)
	}

	if _, err := ParseDays("mon,funday"); !errors.Is(err, ErrInvalidScope) {
		t.Errorf("ParseDays(bad) err = %v, want ErrInvalidScope", err)
	}
}

func TestParseMonths(t *testing.T) {
	got, err := ParseMonths("2024-1, 2024-12")
	if err != nil {
		t.Fatalf("ParseMonths: %v", err)
	}
	if want := []string{"2024-1", "2024-12"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ParseMonths = %v, want %v", got, want)
	}

	if got, err := ParseMonths(""); err != nil || got != nil {
		t.Errorf("ParseMonths(empty) = %v, %v; want nil, nil", got, err)
	}

	for _, bad := range []string{"2024-13", "2024-0", "january"} {
		if _, err := ParseMonths(bad); !errors.Is(err, ErrInvalidScope) {
			t.Errorf("ParseMonths(%q) err = %v, want ErrInvalidScope", bad, err)
		}
	}
}
