// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking coordinator and handlers to distinguish between failure
// scenarios without inspecting SQL errors. For example, ErrSessionFull
// tells the coordinator to redirect the caller to the reserve list,
// while ErrNoCreditsLeft aborts the enclosing transaction so a seat is
// never taken without the credit that pays for it.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state, such as deleting a venue that still has scheduled
// sessions. Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrSessionNotFound indicates that a training session was not located.
var ErrSessionNotFound = errors.New("session not found")

// ErrSubscriptionNotFound indicates that no subscription matched the
// given identifier or payment reference.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// ErrAlreadyEnrolled is returned when the user already occupies a
// participant seat in the session.
var ErrAlreadyEnrolled = errors.New("already enrolled")

// ErrNotEnrolled is returned when an unenroll targets a user who is
// not a participant of the session.
var ErrNotEnrolled = errors.New("not enrolled")

// ErrSessionFull signals that the capacity-guarded seat take found no
// free seat. It is not a hard failure: callers redirect the user to
// the reserve list.
var ErrSessionFull = errors.New("session full")

// ErrNoCreditsLeft signals that the conditional decrement of
// trainings_left matched no row, i.e. the subscription has no credits.
var ErrNoCreditsLeft = errors.New("no trainings left")

// ErrAlreadyConfirmed is returned when a subscription confirmation is
// repeated.
var ErrAlreadyConfirmed = errors.New("already confirmed")

// ErrVenueNotFound indicates that a venue was not located.
var ErrVenueNotFound = errors.New("venue not found")

// ErrTrainerNotFound indicates that a trainer was not located.
var ErrTrainerNotFound = errors.New("trainer not found")
