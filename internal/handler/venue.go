package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"trainbook/internal/model"
	"trainbook/internal/repository"
)

// VenueHandler exposes venue browsing and administration.
type VenueHandler struct {
	Venues *repository.VenueRepo
}

func NewVenueHandler(v *repository.VenueRepo) *VenueHandler {
	return &VenueHandler{Venues: v}
}

type venueReq struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	MetroStation string `json:"metro_station"`
	District     string `json:"district"`
	Description  string `json:"description"`
	Level        int    `json:"level"`
}

// List returns all venues.
func (h *VenueHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	venues, err := h.Venues.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list venues failed"})
	}
	out := make([]venueView, 0, len(venues))
	for i := range venues {
		out = append(out, toVenueView(&venues[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"venues": out})
}

// Get returns one venue by ID.
func (h *VenueHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	v, err := h.Venues.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrVenueNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "venue not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load venue failed"})
	}
	return c.JSON(http.StatusOK, toVenueView(v))
}

// Create registers a new venue (admin only).
func (h *VenueHandler) Create(c echo.Context) error {
	var req venueReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Address = strings.TrimSpace(req.Address)
	if req.Name == "" || req.Address == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/address required"})
	}
	if req.Level < 1 {
		req.Level = 1
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	v := &model.Venue{
		Name:         req.Name,
		Address:      req.Address,
		MetroStation: strings.TrimSpace(req.MetroStation),
		District:     strings.TrimSpace(req.District),
		Description:  strings.TrimSpace(req.Description),
		Level:        req.Level,
	}
	if err := h.Venues.Create(ctx, v); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create venue failed"})
	}
	return c.JSON(http.StatusCreated, toVenueView(v))
}

// Delete removes a venue without scheduled sessions (admin only).
func (h *VenueHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	switch err := h.Venues.Delete(ctx, id); err {
	case nil:
		return c.NoContent(http.StatusNoContent)
	case repository.ErrVenueNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "venue not found"})
	case repository.ErrConflict:
		return c.JSON(http.StatusConflict, echo.Map{"error": "venue has scheduled sessions"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete venue failed"})
	}
}
