package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"trainbook/internal/booking"
	"trainbook/internal/repository"
)

// EnrollmentHandler exposes the enrollment lifecycle on a session:
// enroll (or waitlist), unenroll and attendance confirmation.
type EnrollmentHandler struct {
	Booking *booking.Service
}

func NewEnrollmentHandler(b *booking.Service) *EnrollmentHandler {
	return &EnrollmentHandler{Booking: b}
}

// enrollmentError maps coordinator errors onto HTTP responses shared by
// all three endpoints.
func enrollmentError(c echo.Context, err error) error {
	var ne *booking.NotEligibleError
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	case errors.Is(err, repository.ErrAlreadyEnrolled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already enrolled"})
	case errors.Is(err, repository.ErrNotEnrolled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "not enrolled"})
	case errors.Is(err, booking.ErrSessionStarted):
		return c.JSON(http.StatusConflict, echo.Map{"error": "session has already started"})
	case errors.Is(err, repository.ErrAlreadyConfirmed):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "already confirmed"})
	case errors.Is(err, booking.ErrDeadlinePassed):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "unenroll deadline has passed"})
	case errors.As(err, &ne):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not eligible", "reason": ne.Reason})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "enrollment operation failed"})
	}
}

// Enroll takes a seat in the session or joins the waitlist when full.
func (h *EnrollmentHandler) Enroll(c echo.Context) error {
	sessionID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	status, err := h.Booking.Enroll(ctx, sessionID, userID)
	if err != nil {
		return enrollmentError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": status})
}

// Unenroll releases the caller's seat (or waitlist spot) and triggers
// promotion.
func (h *EnrollmentHandler) Unenroll(c echo.Context) error {
	sessionID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Booking.Unenroll(ctx, sessionID, userID); err != nil {
		return enrollmentError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "unenrolled"})
}

// Confirm marks the caller's attendance as confirmed.
func (h *EnrollmentHandler) Confirm(c echo.Context) error {
	sessionID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Booking.Confirm(ctx, sessionID, userID); err != nil {
		return enrollmentError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "confirmed"})
}
