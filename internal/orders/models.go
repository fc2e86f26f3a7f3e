package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Address is snapshotted onto the order at checkout time. Later edits to a
// user's saved addresses must not change what an order ships to.
type Address struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Company    string `json:"company,omitempty"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

type Order struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	// UserID is nil for guest checkout.
	UserID          *string         `json:"user_id,omitempty"`
	Email           string          `json:"email"`
	Status          Status          `json:"status"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Discount        decimal.Decimal `json:"discount"`
	Tax             decimal.Decimal `json:"tax"`
	Shipping        decimal.Decimal `json:"shipping"`
	Total           decimal.Decimal `json:"total"`
	PaymentIntentID string          `json:"payment_intent_id"`
	ShippingAddress Address         `json:"shipping_address"`
	BillingAddress  Address         `json:"billing_address"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem captures quantity and the price at time of purchase. The price is
// never recomputed from the catalog after the order exists.
type OrderItem struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
}
