// Package eligibility decides whether a subscription may be consumed
// for a training session. Evaluation is a pure predicate over the
// subscription, the session and the user's profile; it performs no
// I/O and mutates nothing, which is what allows the enrollment
// coordinator to call it inside transactions and the tests to cover
// every rule in isolation.
package eligibility

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"trainbook/internal/model"
)

// Mode selects the level rule. Manual enrollment admits users at or
// above the session level; automatic matching (bulk enroll after
// payment) requires an exact level match.
type Mode int

const (
	ModeManual Mode = iota
	ModeAuto
)

// ErrInvalidScope reports a malformed day-of-week or month scoping
// string on a subscription.
var ErrInvalidScope = errors.New("invalid scoping value")

var validDays = map[string]bool{
	"mon": true, "tue": true, "wed": true, "thu": true,
	"fri": true, "sat": true, "sun": true,
}

// DayToken returns the three-letter lower-case weekday token for a
// timestamp, e.g. "mon".
func DayToken(t time.Time) string {
	return strings.ToLower(t.UTC().Weekday().String()[:3])
}

// MonthToken returns the "YYYY-M" token for a timestamp, e.g.
// "2024-1". The month is not zero-padded.
func MonthToken(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("%d-%d", u.Year(), int(u.Month()))
}

// ParseDays validates and normalizes a comma-separated day-of-week
// scoping string ("mon,wed"). An empty string yields nil, meaning
// unrestricted. Unknown day names return ErrInvalidScope.
func ParseDays(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		d := strings.ToLower(strings.TrimSpace(p))
		if !validDays[d] {
			return nil, fmt.Errorf("%w: day %q", ErrInvalidScope, p)
		}
		out = append(out, d)
	}
	return out, nil
}

// ParseMonths validates and normalizes a comma-separated month scoping
// string ("2024-1,2024-2"). An empty string yields nil, meaning
// unrestricted. Tokens must parse as "YYYY-M" with a month in 1..12.
func ParseMonths(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		tok := strings.TrimSpace(p)
		var year, month int
		if n, err := fmt.Sscanf(tok, "%d-%d", &year, &month); n != 2 || err != nil {
			return nil, fmt.Errorf("%w: month %q", ErrInvalidScope, p)
		}
		if year < 1 || month < 1 || month > 12 {
			return nil, fmt.Errorf("%w: month %q", ErrInvalidScope, p)
		}
		out = append(out, fmt.Sprintf("%d-%d", year, month))
	}
	return out, nil
}

// sameOrAfterDate / sameOrBeforeDate compare calendar dates in UTC,
// ignoring time of day; subscription windows are date-granular.
func sameOrAfterDate(t, bound time.Time) bool {
	ty, tm, td := t.UTC().Date()
	by, bm, bd := bound.UTC().Date()
	return time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC).
		Compare(time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)) >= 0
}

func sameOrBeforeDate(t, bound time.Time) bool {
	ty, tm, td := t.UTC().Date()
	by, bm, bd := bound.UTC().Date()
	return time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC).
		Compare(time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)) <= 0
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Evaluate reports whether the subscription may pay for a seat in the
// session, and when it may not, the first failing rule as a
// human-readable reason. All rules must hold:
//
//  1. the subscription is paid,
//  2. the session date falls inside the validity window,
//  3. at least one training credit remains,
//  4. the session weekday is in the day scoping set (empty set = any),
//  5. the session month is in the month scoping set (empty set = any),
//  6. the user level matches the session level (exact in ModeAuto,
//     at-or-above in ModeManual),
//  7. the session gender scope admits the user.
func Evaluate(sub *model.Subscription, session *model.TrainingSession, profile *model.Profile, mode Mode) (bool, string) {
	if !sub.IsPaid {
		return false, "subscription is not paid"
	}
	if !sameOrAfterDate(session.StartsAt, sub.StartDate) || !sameOrBeforeDate(session.StartsAt, sub.EndDate) {
		return false, "session date outside subscription validity window"
	}
	if sub.TrainingsLeft <= 0 {
		return false, "no trainings left on subscription"
	}
	if len(sub.DaysOfWeek) > 0 && !contains(sub.DaysOfWeek, DayToken(session.StartsAt)) {
		return false, "session weekday not covered by subscription"
	}
	if len(sub.Months) > 0 && !contains(sub.Months, MonthToken(session.StartsAt)) {
		return false, "session month not covered by subscription"
	}
	switch mode {
	case ModeAuto:
		if profile.Level != session.Level {
			return false, "user level does not match session level"
		}
	default:
		if profile.Level < session.Level {
			return false, "user level below session level"
		}
	}
	if session.Gender != model.GenderAny && session.Gender != profile.Gender {
		return false, "session gender scope does not admit user"
	}
	return true, ""
}
