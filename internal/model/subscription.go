package model

import "time"

// Client types distinguish adult and child subscription pricing.
const (
	ClientAdult = "adult"
	ClientChild = "child"
)

// Subscription is a purchased, time-boxed right to consume a bounded
// number of session seats, as stored in `subscriptions`.
//
// Invariants: TrainingsLeft never goes negative (guarded by a
// conditional decrement); IsPaid flips false to true at most once per
// PaymentID (guarded by a check-and-set plus the UNIQUE payment_id
// index); a credit is consumed only atomically with the enrollment it
// pays for.
//
// DaysOfWeek holds three-letter lower-case day names ("mon","wed");
// Months holds "YYYY-M" tokens ("2024-1").  Empty sets mean
// unrestricted, not match-nothing.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – owning user.
//  VenueID       – optional venue scoping (nullable).
//  TrainerID     – optional trainer scoping (nullable).
//  Type          – commercial label ("standard", "premium", ...).
//  StartDate     – first day of validity (inclusive).
//  EndDate       – last day of validity (inclusive).
//  TrainingsLeft – remaining session credits, >= 0.
//  PriceCents    – purchase price in minor units.
//  PaymentID     – gateway payment identifier, unique once set (nullable).
//  IsPaid        – set exactly once by the payment event handler.
//  Confirmed     – set by explicit user action before a session deadline.
//  DaysOfWeek    – day-of-week scoping set (nil/empty = unrestricted).
//  Months        – month scoping set (nil/empty = unrestricted).
//  ClientType    – ClientAdult, ClientChild or empty.
type Subscription struct {
	ID            uint64    // subscriptions.id
	UserID        uint64    // subscriptions.user_id
	VenueID       *uint64   // subscriptions.venue_id (nullable)
	TrainerID     *uint64   // subscriptions.trainer_id (nullable)
	Type          string    // subscriptions.type
	StartDate     time.Time // subscriptions.start_date
	EndDate       time.Time // subscriptions.end_date
	TrainingsLeft int       // subscriptions.trainings_left
	PriceCents    uint32    // subscriptions.price_cents
	PaymentID     *string   // subscriptions.payment_id (nullable, unique)
	IsPaid        bool      // subscriptions.is_paid
	Confirmed     bool      // subscriptions.confirmed
	DaysOfWeek    []string  // subscriptions.days_of_week (CSV column)
	Months        []string  // subscriptions.months (CSV column)
	ClientType    string    // subscriptions.client_type
	CreatedAt     time.Time // subscriptions.created_at
	UpdatedAt     time.Time // subscriptions.updated_at
}
