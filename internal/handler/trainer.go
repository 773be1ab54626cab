package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"trainbook/internal/model"
	"trainbook/internal/repository"
)

// TrainerHandler exposes trainer browsing and administration.
type TrainerHandler struct {
	Trainers *repository.TrainerRepo
	Users    *repository.UserRepo
}

func NewTrainerHandler(t *repository.TrainerRepo, u *repository.UserRepo) *TrainerHandler {
	return &TrainerHandler{Trainers: t, Users: u}
}

type trainerReq struct {
	UserID          uint64 `json:"user_id"`
	ExperienceYears int    `json:"experience_years"`
	Bio             string `json:"bio"`
	PayoutAccountID string `json:"payout_account_id"`
}

// List returns all trainers.
func (h *TrainerHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	trainers, err := h.Trainers.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list trainers failed"})
	}
	out := make([]trainerView, 0, len(trainers))
	for i := range trainers {
		out = append(out, toTrainerView(&trainers[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"trainers": out})
}

// Get returns one trainer by ID.
func (h *TrainerHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trainer id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Trainers.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrTrainerNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "trainer not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load trainer failed"})
	}
	return c.JSON(http.StatusOK, toTrainerView(t))
}

// Create attaches a trainer profile, including the payout account for
// split payments, to an existing TRAINER user (admin only).
func (h *TrainerHandler) Create(c echo.Context) error {
	var req trainerReq
	if err := c.Bind(&req); err != nil || req.UserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, req.UserID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if u.Role != model.RoleTrainer {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user does not have the TRAINER role"})
	}

	t := &model.Trainer{
		UserID:          req.UserID,
		ExperienceYears: req.ExperienceYears,
		Bio:             strings.TrimSpace(req.Bio),
		PayoutAccountID: strings.TrimSpace(req.PayoutAccountID),
	}
	if err := h.Trainers.Create(ctx, t); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "trainer profile already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create trainer failed"})
	}
	return c.JSON(http.StatusCreated, toTrainerView(t))
}
