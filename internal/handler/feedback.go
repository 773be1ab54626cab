package handler

import (
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"trainbook/internal/model"
	"trainbook/internal/repository"
)

// FeedbackHandler lets participants rate sessions they attended.
type FeedbackHandler struct {
	Feedback *repository.FeedbackRepo
	Sessions *repository.SessionRepo
	Users    *repository.UserRepo
}

func NewFeedbackHandler(f *repository.FeedbackRepo, s *repository.SessionRepo, u *repository.UserRepo) *FeedbackHandler {
	return &FeedbackHandler{Feedback: f, Sessions: s, Users: u}
}

type feedbackReq struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Create records the caller's rating of a session. Only participants
// may rate, and only once.
func (h *FeedbackHandler) Create(c echo.Context) error {
	sessionID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req feedbackReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Rating < 1 || req.Rating > 5 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rating must be 1..5"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Sessions.GetByID(ctx, sessionID); err != nil {
		if err == repository.ErrSessionNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load session failed"})
	}
	enrolled, err := h.Sessions.IsParticipant(ctx, sessionID, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check participant failed"})
	}
	if !enrolled {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only participants may leave feedback"})
	}

	f := &model.SessionFeedback{
		SessionID: sessionID,
		UserID:    userID,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
	}
	if err := h.Feedback.Create(ctx, f); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "feedback already left"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create feedback failed"})
	}
	// A rating is the attendance signal: bump the lifetime counters.
	if err := h.Users.RecordAttendance(ctx, userID); err != nil {
		log.Printf("feedback: record attendance for user %d: %v", userID, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"feedback": toFeedbackView(f)})
}

// ListBySession returns all feedback for a session.
func (h *FeedbackHandler) ListBySession(c echo.Context) error {
	sessionID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	list, err := h.Feedback.ListBySession(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list feedback failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"feedback": toFeedbackViews(list)})
}
