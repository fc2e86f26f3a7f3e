package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/chronoshop/storefront/internal/kafka"
	"github.com/chronoshop/storefront/internal/orders"
	"github.com/chronoshop/storefront/internal/redisx"
)

// Notifier sends the order confirmation to the customer. Production wires an
// email provider; tests wire a recorder.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, email, orderNumber, total string) error
}

// LogNotifier is the default sink until a mail provider is configured. The
// confirmation still shows up in the structured log stream.
type LogNotifier struct{}

func (LogNotifier) SendOrderConfirmation(_ context.Context, email, orderNumber, total string) error {
	log.Info().
		Str("email", email).
		Str("order_number", orderNumber).
		Str("total", total).
		Msg("order confirmation sent")
	return nil
}

type Receipt struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Email       string    `json:"email"`
	Total       string    `json:"total"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// ReceiptStore tracks which events and orders have already been fulfilled.
type ReceiptStore interface {
	SeenEvent(ctx context.Context, eventID string) (bool, error)
	MarkEvent(ctx context.Context, eventID string) error
	HasReceipt(ctx context.Context, orderID string) (bool, error)
	PutReceipt(ctx context.Context, r Receipt) error
}

// RedisReceipts keeps receipts and dedup marks in Redis under the shared key
// scheme. Receipts outlive dedup marks so support can look an order up well
// after the event stream has moved on.
type RedisReceipts struct {
	Client *redis.Client
}

func (s *RedisReceipts) SeenEvent(ctx context.Context, eventID string) (bool, error) {
	return redisx.Exists(ctx, s.Client, fmt.Sprintf(redisx.KeyDedup, "fulfillment", eventID))
}

func (s *RedisReceipts) MarkEvent(ctx context.Context, eventID string) error {
	return s.Client.Set(ctx, fmt.Sprintf(redisx.KeyDedup, "fulfillment", eventID), "1", redisx.TTLDedup).Err()
}

func (s *RedisReceipts) HasReceipt(ctx context.Context, orderID string) (bool, error) {
	return redisx.Exists(ctx, s.Client, fmt.Sprintf(redisx.KeyReceipt, orderID))
}

func (s *RedisReceipts) PutReceipt(ctx context.Context, r Receipt) error {
	return s.Client.Set(ctx, fmt.Sprintf(redisx.KeyReceipt, r.OrderID), kafkax.MustMarshal(r), redisx.TTLReceipt).Err()
}

// Service consumes the paid-order stream and records a fulfillment receipt
// for each order exactly once. Kafka delivers at-least-once, so redeliveries
// are screened twice: the event-id dedup mark first, then the receipt itself
// as the second line.
type Service struct {
	Receipts    ReceiptStore
	Notifier    Notifier
	ServiceName string
}

// HandleOrderPaid is mounted as the consumer handler for order.paid.
func (s *Service) HandleOrderPaid(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderPaid {
		return nil
	}

	if seen, _ := s.Receipts.SeenEvent(ctx, env.EventID); seen {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderPaidPayload](env.Payload)
	if err != nil {
		return err
	}

	if has, _ := s.Receipts.HasReceipt(ctx, p.OrderID); has {
		_ = s.Receipts.MarkEvent(ctx, env.EventID)
		return nil
	}

	if err := s.Notifier.SendOrderConfirmation(ctx, p.Email, p.OrderNumber, p.Total); err != nil {
		// no dedup mark, so the redelivery retries the send
		return err
	}

	if err := s.Receipts.PutReceipt(ctx, Receipt{
		OrderID:     p.OrderID,
		OrderNumber: p.OrderNumber,
		Email:       p.Email,
		Total:       p.Total,
		ConfirmedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}
	_ = s.Receipts.MarkEvent(ctx, env.EventID)

	log.Info().
		Str("order_id", p.OrderID).
		Str("order_number", p.OrderNumber).
		Str("trace_id", env.TraceID).
		Msg("order fulfillment confirmed")
	return nil
}
