package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"trainbook/internal/booking"
	"trainbook/internal/eligibility"
	"trainbook/internal/model"
	"trainbook/internal/payment"
	"trainbook/internal/queue"
	"trainbook/internal/repository"
)

// SubscriptionHandler exposes subscription browsing and purchase. The
// purchase flow registers a split payment with the gateway first; the
// subscription row is written only once a payment identifier exists,
// so the later webhook always finds its target.
type SubscriptionHandler struct {
	Subs     *repository.SubscriptionRepo
	Trainers *repository.TrainerRepo
	Venues   *repository.VenueRepo
	Notes    *repository.NotificationRepo
	Gateway  *payment.Gateway
	Pub      booking.Publisher
}

func NewSubscriptionHandler(
	subs *repository.SubscriptionRepo,
	trainers *repository.TrainerRepo,
	venues *repository.VenueRepo,
	notes *repository.NotificationRepo,
	gw *payment.Gateway,
	pub booking.Publisher,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		Subs: subs, Trainers: trainers, Venues: venues,
		Notes: notes, Gateway: gw, Pub: pub,
	}
}

type purchaseReq struct {
	Type       string  `json:"type"`
	VenueID    *uint64 `json:"venue_id"`
	TrainerID  *uint64 `json:"trainer_id"`
	StartDate  string  `json:"start_date"` // YYYY-MM-DD
	EndDate    string  `json:"end_date"`   // YYYY-MM-DD
	Trainings  int     `json:"trainings"`
	PriceCents uint32  `json:"price_cents"`
	DaysOfWeek string  `json:"days_of_week"` // "mon,wed"
	Months     string  `json:"months"`       // "2024-1,2024-2"
	ClientType string  `json:"client_type"`  // adult | child
}

// List returns the caller's subscriptions, newest first.
func (h *SubscriptionHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	subs, err := h.Subs.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list subscriptions failed"})
	}
	out := make([]subscriptionView, 0, len(subs))
	for i := range subs {
		out = append(out, toSubscriptionView(&subs[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"subscriptions": out})
}

// Purchase validates the requested subscription, registers a split
// payment with the gateway and stores the unpaid subscription carrying
// the payment identifier. The client finishes payment at the returned
// confirmation URL; the webhook flips the paid flag later.
func (h *SubscriptionHandler) Purchase(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req purchaseReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	start, ok := parseDate(req.StartDate)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date must be YYYY-MM-DD"})
	}
	end, ok := parseDate(req.EndDate)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must be YYYY-MM-DD"})
	}
	if end.Before(start) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must not precede start_date"})
	}
	if req.Trainings < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "trainings must be >= 1"})
	}
	if req.PriceCents == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price_cents must be > 0"})
	}
	days, err := eligibility.ParseDays(req.DaysOfWeek)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	months, err := eligibility.ParseMonths(req.Months)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	clientType := strings.ToLower(strings.TrimSpace(req.ClientType))
	if clientType != "" && clientType != model.ClientAdult && clientType != model.ClientChild {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "client_type must be adult or child"})
	}
	subType := strings.TrimSpace(req.Type)
	if subType == "" {
		subType = "standard"
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	payoutAccountID := ""
	if req.TrainerID != nil {
		t, err := h.Trainers.GetByID(ctx, *req.TrainerID)
		if err != nil {
			if err == repository.ErrTrainerNotFound {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown trainer"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load trainer failed"})
		}
		payoutAccountID = t.PayoutAccountID
	}
	if req.VenueID != nil {
		if _, err := h.Venues.GetByID(ctx, *req.VenueID); err != nil {
			if err == repository.ErrVenueNotFound {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown venue"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load venue failed"})
		}
	}

	description := fmt.Sprintf("Subscription %s: %d trainings, %s to %s",
		subType, req.Trainings, start.Format("2006-01-02"), end.Format("2006-01-02"))
	pay, err := h.Gateway.CreateSplitPayment(ctx, req.PriceCents, description, payoutAccountID)
	if err != nil {
		if errors.Is(err, payment.ErrGatewayFailure) {
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment gateway unavailable"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create payment failed"})
	}

	sub := &model.Subscription{
		UserID:        userID,
		VenueID:       req.VenueID,
		TrainerID:     req.TrainerID,
		Type:          subType,
		StartDate:     start,
		EndDate:       end,
		TrainingsLeft: req.Trainings,
		PriceCents:    req.PriceCents,
		PaymentID:     &pay.ID,
		DaysOfWeek:    days,
		Months:        months,
		ClientType:    clientType,
	}
	if err := h.Subs.Create(ctx, sub); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create subscription failed"})
	}

	h.notifyCreated(ctx, sub)

	return c.JSON(http.StatusCreated, echo.Map{
		"subscription":     toSubscriptionView(sub),
		"confirmation_url": pay.ConfirmationURL,
	})
}

// notifyCreated records the purchase notification; failures are logged
// only, the purchase itself already succeeded.
func (h *SubscriptionHandler) notifyCreated(ctx context.Context, sub *model.Subscription) {
	n := &model.Notification{
		UserID:  sub.UserID,
		Type:    model.NotifySubscriptionCreated,
		Message: fmt.Sprintf("Subscription %d created; complete the payment to activate it.", sub.ID),
	}
	inserted, err := h.Notes.Create(ctx, n)
	if err != nil {
		log.Printf("subscription: store created notification for user %d: %v", sub.UserID, err)
		return
	}
	if !inserted || h.Pub == nil {
		return
	}
	ev := queue.NotificationEvent{
		UserID:     sub.UserID,
		Type:       model.NotifySubscriptionCreated,
		Message:    n.Message,
		OccurredAt: time.Now().UTC(),
	}
	if err := h.Pub.Publish(ctx, ev); err != nil {
		log.Printf("subscription: publish created event for user %d: %v", sub.UserID, err)
	}
}
