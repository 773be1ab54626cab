package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"trainbook/internal/reconciler"
	"trainbook/internal/recurrence"
)

// OpsHandler exposes the maintenance sweeps to the scheduler (admin
// only): weekly series backfill and the confirmation reconciliation.
// Both are idempotent, so an overlapping or repeated trigger is safe.
type OpsHandler struct {
	Gen *recurrence.Generator
	Rec *reconciler.Reconciler
}

func NewOpsHandler(gen *recurrence.Generator, rec *reconciler.Reconciler) *OpsHandler {
	return &OpsHandler{Gen: gen, Rec: rec}
}

// Backfill rolls every active recurring series one week forward.
func (h *OpsHandler) Backfill(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	created, err := h.Gen.Backfill(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "backfill failed", "created": created})
	}
	return c.JSON(http.StatusOK, echo.Map{"created": created})
}

// Reconcile runs the confirmation sweep: reminders and overdue
// removals.
func (h *OpsHandler) Reconcile(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	stats, err := h.Rec.Sweep(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reconcile failed", "stats": stats})
	}
	return c.JSON(http.StatusOK, stats)
}
