package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"trainbook/internal/booking"
	"trainbook/internal/payment"
	"trainbook/internal/repository"
)

// WebhookHandler receives payment gateway callbacks. Applying an event
// runs inside one database transaction: the paid transition and the
// bulk auto-enroll it triggers commit or roll back as a unit, so a
// crash mid-way leaves the subscription unpaid and the gateway retries.
type WebhookHandler struct {
	DB   *sql.DB
	Pub  booking.Publisher
	Lock payment.EventLock
}

func NewWebhookHandler(db *sql.DB, pub booking.Publisher, lock payment.EventLock) *WebhookHandler {
	return &WebhookHandler{DB: db, Pub: pub, Lock: lock}
}

type webhookReq struct {
	Event  string `json:"event"`
	Object struct {
		ID string `json:"id"`
	} `json:"object"`
}

var outcomeNames = map[payment.Outcome]string{
	payment.OutcomeIgnored:     "ignored",
	payment.OutcomeApplied:     "applied",
	payment.OutcomeAlreadyPaid: "already_paid",
}

// Receive applies one gateway event delivery.
func (h *WebhookHandler) Receive(c echo.Context) error {
	var req webhookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Event = strings.TrimSpace(req.Event)
	req.Object.ID = strings.TrimSpace(req.Object.ID)
	if req.Event == "" || req.Object.ID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event and object.id required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin transaction failed"})
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	// All stores share the transaction; the booking coordinator built
	// over them performs auto-enroll in the same unit as MarkPaid.
	subs := repository.NewSubscriptionRepo(tx)
	sessions := repository.NewSessionRepo(tx)
	users := repository.NewUserRepo(tx)
	notes := repository.NewNotificationRepo(tx)
	enroller := booking.NewService(sessions, subs, users, notes, h.Pub)

	outcome, err := payment.NewHandler(subs, enroller, notes, h.Pub, h.Lock).
		ApplyEvent(ctx, req.Event, req.Object.ID)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown payment"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "apply event failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{"outcome": outcomeNames[outcome]})
}
