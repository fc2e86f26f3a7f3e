// Package payment talks to the external payment gateway: creating and
// canceling payment intents over its HTTP API, and verifying the signed
// webhook events it delivers back.
package payment

import (
	"fmt"

	"github.com/chronoshop/storefront/internal/orders"
)

// IntentRequest describes the pending charge to register with the gateway
// before the shopper completes payment. OrderNumber and ItemCount travel as
// metadata for support traceability; the shipping address feeds the gateway's
// fraud scoring.
type IntentRequest struct {
	AmountMinor int64
	Currency    string
	OrderNumber string
	Email       string
	ItemCount   int
	Description string
	Shipping    orders.Address
}

// Intent is the gateway's representation of the pending charge. ClientSecret
// is handed to the frontend to drive the payment UI.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// GatewayError covers failed intent calls. It is logged server-side and
// surfaced to shoppers generically.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway error (status %d): %s", e.StatusCode, e.Message)
}
