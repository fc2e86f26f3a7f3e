package catalog

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	StatusActive   ProductStatus = "ACTIVE"
	StatusDraft    ProductStatus = "DRAFT"
	StatusArchived ProductStatus = "ARCHIVED"
)

type Product struct {
	ID           string           `json:"id"`
	Slug         string           `json:"slug"`
	Name         string           `json:"name"`
	SKU          string           `json:"sku"`
	Brand        string           `json:"brand,omitempty"`
	CategoryID   string           `json:"category_id"`
	Price        decimal.Decimal  `json:"price"`
	ComparePrice *decimal.Decimal `json:"compare_price,omitempty"`
	CostPrice    *decimal.Decimal `json:"-"`
	Featured     bool             `json:"featured"`
	Status       ProductStatus    `json:"status"`
	// Specifications is a display-only blob (movement, case size, ...). It is
	// never interpreted by the checkout path.
	Specifications json.RawMessage `json:"specifications,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Inventory      *Inventory      `json:"inventory,omitempty"`
}

type Inventory struct {
	ProductID     string `json:"product_id"`
	Quantity      int    `json:"quantity"`
	Reserved      int    `json:"reserved"`
	LowStockAlert int    `json:"low_stock_alert"`
}

// Available is the sellable count shown to shoppers: on-hand stock minus holds
// against unconfirmed orders.
func (i *Inventory) Available() int {
	if i == nil {
		return 0
	}
	return i.Quantity - i.Reserved
}

type Category struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
}
