package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"trainbook/internal/model"
	"trainbook/internal/queue"
)

// EventSucceeded is the only webhook event type that changes state;
// everything else is acknowledged and ignored.
const EventSucceeded = "payment.succeeded"

// Outcome classifies what applying a webhook event did.
type Outcome int

const (
	// OutcomeIgnored: the event type is not actionable.
	OutcomeIgnored Outcome = iota
	// OutcomeApplied: this delivery flipped the subscription to paid.
	OutcomeApplied
	// OutcomeAlreadyPaid: a duplicate delivery; the subscription was
	// paid before.
	OutcomeAlreadyPaid
)

// SubscriptionMarker performs the check-and-set paid transition.
type SubscriptionMarker interface {
	MarkPaid(ctx context.Context, paymentID string) (*model.Subscription, bool, error)
}

// Enroller bulk-enrolls the owner of a freshly paid subscription.
type Enroller interface {
	AutoEnroll(ctx context.Context, sub *model.Subscription) (int, error)
}

// NotificationStore records the payment notification.
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) (bool, error)
}

// Publisher pushes the payment event onto the message queue; may be
// nil.
type Publisher interface {
	Publish(ctx context.Context, ev queue.NotificationEvent) error
}

// EventLock serializes concurrent deliveries of the same payment
// event. May be nil; the database check-and-set stays correct without
// it, the lock only avoids wasted work.
type EventLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string)
}

// Handler applies payment webhook events. The stores it holds are
// expected to be bound to one transaction by the caller, so the paid
// transition and the bulk auto-enroll commit or roll back together.
type Handler struct {
	subs     SubscriptionMarker
	enroller Enroller
	notes    NotificationStore
	pub      Publisher
	lock     EventLock
}

func NewHandler(subs SubscriptionMarker, enroller Enroller, notes NotificationStore, pub Publisher, lock EventLock) *Handler {
	return &Handler{subs: subs, enroller: enroller, notes: notes, pub: pub, lock: lock}
}

// ApplyEvent processes one webhook delivery. Only payment.succeeded is
// actionable; an unknown payment identifier surfaces the store's
// not-found error; a redelivery for an already paid subscription is a
// no-op reported as OutcomeAlreadyPaid. On the first successful
// delivery the subscription turns paid and its owner is bulk-enrolled
// into matching upcoming sessions.
func (h *Handler) ApplyEvent(ctx context.Context, eventType, paymentID string) (Outcome, error) {
	if eventType != EventSucceeded {
		return OutcomeIgnored, nil
	}
	if h.lock != nil {
		key := "payment:event:" + paymentID
		ok, err := h.lock.Acquire(ctx, key, time.Minute)
		if err != nil {
			log.Printf("payment: acquire event lock for %s: %v", paymentID, err)
		} else if !ok {
			return OutcomeAlreadyPaid, nil
		} else {
			defer h.lock.Release(ctx, key)
		}
	}

	sub, applied, err := h.subs.MarkPaid(ctx, paymentID)
	if err != nil {
		return OutcomeIgnored, err
	}
	if !applied {
		return OutcomeAlreadyPaid, nil
	}
	sub.IsPaid = true

	enrolled, err := h.enroller.AutoEnroll(ctx, sub)
	if err != nil {
		return OutcomeApplied, err
	}
	h.notify(ctx, sub, enrolled)
	return OutcomeApplied, nil
}

func (h *Handler) notify(ctx context.Context, sub *model.Subscription, enrolled int) {
	n := &model.Notification{
		UserID: sub.UserID,
		Type:   model.NotifySubscriptionPaid,
		Message: fmt.Sprintf("Subscription %d is paid; you were enrolled into %d upcoming sessions.",
			sub.ID, enrolled),
	}
	inserted, err := h.notes.Create(ctx, n)
	if err != nil {
		log.Printf("payment: store paid notification for user %d: %v", sub.UserID, err)
		return
	}
	if !inserted || h.pub == nil {
		return
	}
	ev := queue.NotificationEvent{
		UserID:     sub.UserID,
		Type:       n.Type,
		Message:    n.Message,
		OccurredAt: time.Now().UTC(),
	}
	if err := h.pub.Publish(ctx, ev); err != nil {
		log.Printf("payment: publish paid event for user %d: %v", sub.UserID, err)
	}
}

// RedisLock is the EventLock used in production: SETNX with a TTL per
// payment identifier.
type RedisLock struct {
	client *redis.Client
}

func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{client: client}
}

func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	return ok, nil
}

func (l *RedisLock) Release(ctx context.Context, key string) {
	if err := l.client.Del(ctx, key).Err(); err != nil {
		log.Printf("payment: release event lock %s: %v", key, err)
	}
}
