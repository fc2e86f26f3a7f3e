// Package reconcile brings order and inventory state in line with payment
// reality as reported by asynchronous gateway events. Delivery is
// at-least-once, so everything here must tolerate duplicates.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/chronoshop/storefront/internal/kafka"
	"github.com/chronoshop/storefront/internal/orders"
	"github.com/chronoshop/storefront/internal/payment"
	"github.com/chronoshop/storefront/internal/redisx"
)

type OrderStore interface {
	// Both transitions return applied=false for a duplicate delivery that
	// found the order already out of PENDING, with no inventory effect.
	FinalizePaid(ctx context.Context, paymentIntentID string) (*orders.Order, bool, error)
	ReleaseFailed(ctx context.Context, paymentIntentID string) (*orders.Order, bool, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// StatusCache is the fast-path state the reconciler keeps next to the DB:
// event-id dedup marks and the order-status entries served by
// GET /api/orders/{id}. A cached status must never outlive the transition
// that invalidated it.
type StatusCache interface {
	SeenEvent(ctx context.Context, eventID string) (bool, error)
	MarkEvent(ctx context.Context, eventID string) error
	SetStatus(ctx context.Context, orderID string, st orders.Status, ps orders.PaymentStatus) error
}

// RedisCache implements StatusCache on the shared Redis key scheme. SetStatus
// writes the same JSON shape the checkout handler caches on reads.
type RedisCache struct {
	Client *redis.Client
}

func (c *RedisCache) SeenEvent(ctx context.Context, eventID string) (bool, error) {
	return redisx.Exists(ctx, c.Client, fmt.Sprintf(redisx.KeyDedup, "reconcile", eventID))
}

func (c *RedisCache) MarkEvent(ctx context.Context, eventID string) error {
	return c.Client.Set(ctx, fmt.Sprintf(redisx.KeyDedup, "reconcile", eventID), "1", redisx.TTLDedup).Err()
}

func (c *RedisCache) SetStatus(ctx context.Context, orderID string, st orders.Status, ps orders.PaymentStatus) error {
	body, err := json.Marshal(map[string]string{
		"status":         string(st),
		"payment_status": string(ps),
	})
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderID), body, redisx.TTLStatusCache).Err()
}

type Service struct {
	Orders            OrderStore
	Cache             StatusCache // optional; nil disables dedup and status refresh
	ProducerPaid      Publisher   // order.paid
	ProducerCancelled Publisher   // order.cancelled
	ServiceName       string
}

// HandleEvent dispatches one verified gateway event. The caller has already
// checked the signature; this layer owns idempotency and state transitions.
// A missing order is not an error: the event may belong to another
// environment or a purged order, and failing would only trigger gateway
// retries.
func (s *Service) HandleEvent(ctx context.Context, ev *payment.Event) error {
	if s.Cache != nil {
		if seen, _ := s.Cache.SeenEvent(ctx, ev.ID); seen {
			log.Debug().Str("event_id", ev.ID).Msg("duplicate webhook event, skipping")
			return nil
		}
	}

	var err error
	switch ev.Type {
	case payment.EventPaymentSucceeded:
		err = s.handleSucceeded(ctx, ev)
	case payment.EventPaymentFailed:
		err = s.handleTerminated(ctx, ev, "PAYMENT_FAILED")
	case payment.EventPaymentCanceled:
		err = s.handleTerminated(ctx, ev, "PAYMENT_CANCELED")
	default:
		log.Info().Str("event_type", ev.Type).Str("event_id", ev.ID).
			Msg("unhandled webhook event type")
		return nil
	}
	if err != nil {
		return err
	}

	// Marked only after success so a transient failure stays retryable. The
	// conditional transition remains the source of truth either way.
	if s.Cache != nil {
		_ = s.Cache.MarkEvent(ctx, ev.ID)
	}
	return nil
}

func (s *Service) handleSucceeded(ctx context.Context, ev *payment.Event) error {
	intentID := ev.Data.Object.ID
	o, applied, err := s.Orders.FinalizePaid(ctx, intentID)
	if errors.Is(err, orders.ErrOrderNotFound) {
		log.Warn().Str("payment_intent_id", intentID).Msg("no order for succeeded payment")
		return nil
	}
	if err != nil {
		return fmt.Errorf("finalize paid order: %w", err)
	}
	if !applied {
		log.Debug().Str("order_id", o.ID).Msg("payment success already applied")
		return nil
	}

	log.Info().Str("order_id", o.ID).Str("order_number", o.OrderNumber).
		Msg("payment succeeded, order processing")

	if s.Cache != nil {
		_ = s.Cache.SetStatus(ctx, o.ID, o.Status, o.PaymentStatus)
	}

	s.publish(s.ProducerPaid, orders.EventOrderPaid, o, kafkax.MustMarshal(orders.OrderPaidPayload{
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		Email:           o.Email,
		Total:           o.Total.String(),
		PaymentIntentID: o.PaymentIntentID,
	}))
	return nil
}

func (s *Service) handleTerminated(ctx context.Context, ev *payment.Event, reason string) error {
	intentID := ev.Data.Object.ID
	o, applied, err := s.Orders.ReleaseFailed(ctx, intentID)
	if errors.Is(err, orders.ErrOrderNotFound) {
		log.Warn().Str("payment_intent_id", intentID).Str("reason", reason).
			Msg("no order for terminated payment")
		return nil
	}
	if err != nil {
		return fmt.Errorf("release failed order: %w", err)
	}
	if !applied {
		log.Debug().Str("order_id", o.ID).Msg("payment failure already applied")
		return nil
	}

	log.Info().Str("order_id", o.ID).Str("order_number", o.OrderNumber).
		Str("reason", reason).Msg("payment terminated, reservation released")

	if s.Cache != nil {
		_ = s.Cache.SetStatus(ctx, o.ID, o.Status, o.PaymentStatus)
	}

	s.publish(s.ProducerCancelled, orders.EventOrderCancelled, o, kafkax.MustMarshal(orders.OrderCancelledPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Email:       o.Email,
		Reason:      reason,
	}))
	return nil
}

func (s *Service) publish(p Publisher, eventType string, o *orders.Order, payload []byte) {
	if p == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: o.ID,
		Payload:       payload,
	}
	p.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
