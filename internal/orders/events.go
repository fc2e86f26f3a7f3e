package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderPaid      = "OrderPaid"
	EventOrderCancelled = "OrderCancelled"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // one of the consts above
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g. "storefront-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type ItemQty struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Qty       int    `json:"qty"`
}

type OrderCreatedPayload struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Email       string    `json:"email"`
	Items       []ItemQty `json:"items"`
	Total       string    `json:"total"` // decimal string
}

type OrderPaidPayload struct {
	OrderID         string `json:"order_id"`
	OrderNumber     string `json:"order_number"`
	Email           string `json:"email"`
	Total           string `json:"total"`
	PaymentIntentID string `json:"payment_intent_id"`
}

type OrderCancelledPayload struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Email       string `json:"email"`
	Reason      string `json:"reason"` // PAYMENT_FAILED | PAYMENT_CANCELED
}
