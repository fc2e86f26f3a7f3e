// Package checkout turns a submitted cart into a durable order backed by a
// real payment intent and a real inventory reservation, using only
// server-trusted data.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/chronoshop/storefront/internal/catalog"
	kafkax "github.com/chronoshop/storefront/internal/kafka"
	"github.com/chronoshop/storefront/internal/orders"
	"github.com/chronoshop/storefront/internal/payment"
	"github.com/chronoshop/storefront/internal/pricing"
)

type Catalog interface {
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
}

type OrderStore interface {
	CreateWithReservation(ctx context.Context, o *orders.Order) error
}

type Gateway interface {
	CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error)
	CancelIntent(ctx context.Context, intentID string) error
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type ItemInput struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

// Request carries no prices. Whatever the client showed the shopper is
// advisory; every amount is re-derived from the catalog here.
type Request struct {
	Items           []ItemInput     `json:"items"`
	Email           string          `json:"email"`
	ShippingAddress *orders.Address `json:"shipping_address"`
	BillingAddress  *orders.Address `json:"billing_address,omitempty"`
	PromoCode       string          `json:"promo_code,omitempty"`
	UserID          *string         `json:"-"`
	TraceID         string          `json:"-"`
}

type Result struct {
	ClientSecret string          `json:"client_secret"`
	OrderID      string          `json:"order_id"`
	OrderNumber  string          `json:"order_number"`
	Total        decimal.Decimal `json:"total"`
}

type Service struct {
	Catalog  Catalog
	Orders   OrderStore
	Gateway  Gateway
	Producer Publisher // order.created stream; nil disables publishing
	Service  string
}

// PlaceOrder validates the cart against live catalog state, creates a payment
// intent for the authoritative total, and persists the order with its
// inventory reservation in one transaction. Any failure aborts the whole call
// with no partial side effects; the only compensating action is canceling an
// already-created intent when the later persistence step fails.
func (s *Service) PlaceOrder(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	items := make([]orders.OrderItem, 0, len(req.Items))
	for _, in := range req.Items {
		p, err := s.Catalog.GetProduct(ctx, in.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return nil, &NotFoundError{ProductID: in.ProductID}
			}
			return nil, fmt.Errorf("load product %s: %w", in.ProductID, err)
		}
		if available := p.Inventory.Available(); in.Quantity > available {
			return nil, &orders.InsufficientStockError{
				ProductID: p.ID,
				Requested: in.Quantity,
				Available: available,
			}
		}

		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(in.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		items = append(items, orders.OrderItem{
			ProductID: p.ID,
			VariantID: in.VariantID,
			Quantity:  in.Quantity,
			Price:     p.Price,
			Total:     lineTotal,
		})
	}

	totals := pricing.Compute(subtotal, req.PromoCode)
	orderNumber := orders.NewOrderNumber()

	billing := req.ShippingAddress
	if req.BillingAddress != nil {
		billing = req.BillingAddress
	}

	intent, err := s.Gateway.CreateIntent(ctx, payment.IntentRequest{
		AmountMinor: pricing.MinorUnits(totals.Total),
		Currency:    "usd",
		OrderNumber: orderNumber,
		Email:       req.Email,
		ItemCount:   len(req.Items),
		Description: "Luxury Watch Store - Order " + orderNumber,
		Shipping:    *req.ShippingAddress,
	})
	if err != nil {
		log.Error().Err(err).Str("order_number", orderNumber).Msg("payment intent creation failed")
		return nil, err
	}

	o := &orders.Order{
		OrderNumber:     orderNumber,
		UserID:          req.UserID,
		Email:           req.Email,
		Status:          orders.StatusPending,
		PaymentStatus:   orders.PaymentPending,
		Subtotal:        totals.Subtotal,
		Discount:        totals.Discount,
		Tax:             totals.Tax,
		Shipping:        totals.Shipping,
		Total:           totals.Total,
		PaymentIntentID: intent.ID,
		ShippingAddress: *req.ShippingAddress,
		BillingAddress:  *billing,
		Items:           items,
	}

	if err := s.Orders.CreateWithReservation(ctx, o); err != nil {
		// The intent exists but the order does not. Cancel it so no orphaned
		// charge can complete.
		if cancelErr := s.Gateway.CancelIntent(ctx, intent.ID); cancelErr != nil {
			log.Error().Err(cancelErr).Str("payment_intent_id", intent.ID).
				Msg("failed to cancel intent after order persistence failure")
		}
		return nil, err
	}

	log.Info().Str("order_id", o.ID).Str("order_number", orderNumber).
		Str("total", totals.Total.String()).Msg("order placed")

	s.publishCreated(o, req.TraceID)

	return &Result{
		ClientSecret: intent.ClientSecret,
		OrderID:      o.ID,
		OrderNumber:  o.OrderNumber,
		Total:        totals.Total,
	}, nil
}

func validate(req Request) error {
	if len(req.Items) == 0 {
		return &ValidationError{Reason: "no items in cart"}
	}
	if req.Email == "" {
		return &ValidationError{Reason: "email is required"}
	}
	if req.ShippingAddress == nil {
		return &ValidationError{Reason: "shipping address is required"}
	}
	for _, it := range req.Items {
		if it.ProductID == "" {
			return &ValidationError{Reason: "item product id is required"}
		}
		if it.Quantity <= 0 {
			return &ValidationError{Reason: fmt.Sprintf("invalid quantity for product %s", it.ProductID)}
		}
	}
	return nil
}

func (s *Service) publishCreated(o *orders.Order, traceID string) {
	if s.Producer == nil {
		return
	}
	itemQty := make([]orders.ItemQty, 0, len(o.Items))
	for _, it := range o.Items {
		itemQty = append(itemQty, orders.ItemQty{ProductID: it.ProductID, VariantID: it.VariantID, Qty: it.Quantity})
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Service,
		TraceID:       traceID,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(orders.OrderCreatedPayload{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			Email:       o.Email,
			Items:       itemQty,
			Total:       o.Total.String(),
		}),
	}
	s.Producer.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
