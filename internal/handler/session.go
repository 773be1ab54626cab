package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"trainbook/internal/model"
	"trainbook/internal/recurrence"
	"trainbook/internal/repository"
)

// SessionHandler exposes session scheduling and browsing.
type SessionHandler struct {
	Sessions *repository.SessionRepo
	Venues   *repository.VenueRepo
	Trainers *repository.TrainerRepo
	Gen      *recurrence.Generator
}

func NewSessionHandler(s *repository.SessionRepo, v *repository.VenueRepo, t *repository.TrainerRepo, g *recurrence.Generator) *SessionHandler {
	return &SessionHandler{Sessions: s, Venues: v, Trainers: t, Gen: g}
}

type sessionReq struct {
	VenueID           uint64  `json:"venue_id"`
	TrainerID         uint64  `json:"trainer_id"`
	StartsAt          string  `json:"starts_at"` // RFC3339
	Level             int     `json:"level"`
	Gender            string  `json:"gender"` // any | male | female
	Intensity         *int    `json:"intensity"`
	MaxParticipants   int     `json:"max_participants"`
	UnenrollDeadline  *string `json:"unenroll_deadline"` // RFC3339
	IsRecurring       bool    `json:"is_recurring"`
	RecurrenceEndDate *string `json:"recurrence_end_date"` // YYYY-MM-DD
}

// Create schedules a session. A recurring template is expanded into
// weekly instances immediately; the response reports how many were
// generated.
func (h *SessionHandler) Create(c echo.Context) error {
	var req sessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.VenueID == 0 || req.TrainerID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "venue_id/trainer_id required"})
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
	}
	startsAt = startsAt.UTC()
	if req.MaxParticipants < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_participants must be >= 1"})
	}
	gender := strings.ToLower(strings.TrimSpace(req.Gender))
	if gender == "" {
		gender = model.GenderAny
	}
	if gender != model.GenderAny && gender != model.GenderMale && gender != model.GenderFemale {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "gender must be any, male or female"})
	}
	if req.Level < 1 {
		req.Level = 1
	}

	s := &model.TrainingSession{
		VenueID:         req.VenueID,
		TrainerID:       req.TrainerID,
		StartsAt:        startsAt,
		Level:           req.Level,
		Gender:          gender,
		Intensity:       req.Intensity,
		MaxParticipants: req.MaxParticipants,
		IsRecurring:     req.IsRecurring,
	}
	if req.UnenrollDeadline != nil {
		d, err := time.Parse(time.RFC3339, *req.UnenrollDeadline)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unenroll_deadline must be RFC3339"})
		}
		if !d.Before(startsAt) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unenroll_deadline must precede starts_at"})
		}
		d = d.UTC()
		s.UnenrollDeadline = &d
	}
	if req.IsRecurring {
		if req.RecurrenceEndDate == nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "recurrence_end_date required for recurring sessions"})
		}
		end, ok := parseDate(*req.RecurrenceEndDate)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "recurrence_end_date must be YYYY-MM-DD"})
		}
		y, m, d := startsAt.Date()
		if end.Before(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "recurrence_end_date must not precede starts_at"})
		}
		s.RecurrenceEndDate = &end
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Venues.GetByID(ctx, req.VenueID); err != nil {
		if err == repository.ErrVenueNotFound {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown venue"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load venue failed"})
	}
	if _, err := h.Trainers.GetByID(ctx, req.TrainerID); err != nil {
		if err == repository.ErrTrainerNotFound {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown trainer"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load trainer failed"})
	}

	if err := h.Sessions.Create(ctx, s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create session failed"})
	}

	instances := 0
	if s.IsRecurring {
		instances, err = h.Gen.ExpandTemplate(ctx, s)
		if err != nil {
			// The template itself is committed; report it with a
			// partial-expansion warning rather than failing the call.
			return c.JSON(http.StatusCreated, echo.Map{
				"session":           toSessionView(s),
				"instances_created": instances,
				"warning":           "series expansion incomplete",
			})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"session":           toSessionView(s),
		"instances_created": instances,
	})
}

// List returns upcoming sessions, optionally from a given date
// (?from=YYYY-MM-DD) instead of now.
func (h *SessionHandler) List(c echo.Context) error {
	from := time.Now().UTC()
	if raw := strings.TrimSpace(c.QueryParam("from")); raw != "" {
		d, ok := parseDate(raw)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be YYYY-MM-DD"})
		}
		from = d
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	sessions, err := h.Sessions.UpcomingSessions(ctx, from)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list sessions failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": toSessionViews(sessions)})
}

// Get returns one session together with its participant user IDs.
func (h *SessionHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrSessionNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load session failed"})
	}
	participants, err := h.Sessions.Participants(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load participants failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"session":      toSessionView(s),
		"participants": participants,
	})
}

// Delete cancels a session and clears its enrollment state.
func (h *SessionHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	switch err := h.Sessions.Delete(ctx, id); err {
	case nil:
		return c.NoContent(http.StatusNoContent)
	case repository.ErrSessionNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete session failed"})
	}
}
