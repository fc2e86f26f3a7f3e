// Package cart holds one shopper's selections and computes advisory totals
// for display. Nothing here is trusted at checkout: the orchestrator
// re-derives prices and availability from the catalog.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/chronoshop/storefront/internal/catalog"
	"github.com/chronoshop/storefront/internal/pricing"
)

type Item struct {
	ID        string          `json:"id"` // product id, or "{product}-{variant}"
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	// MaxQuantity is the stock snapshot known when the item was added. It caps
	// the line locally; the server re-checks real availability.
	MaxQuantity int `json:"max_quantity"`
}

// Cart is an explicit value owned by the session, not a global store. Single
// owner, single writer.
type Cart struct {
	Items     []Item `json:"items"`
	PromoCode string `json:"promo_code,omitempty"`
}

func itemID(productID, variantID string) string {
	if variantID == "" {
		return productID
	}
	return productID + "-" + variantID
}

// AddItem merges into an existing line for the same product+variant, else
// appends a new one. Quantity is clamped to the locally known stock.
func (c *Cart) AddItem(p *catalog.Product, quantity int, variantID string) {
	if quantity < 1 {
		quantity = 1
	}
	max := p.Inventory.Available()
	if max < 1 {
		max = 1
	}

	id := itemID(p.ID, variantID)
	for i := range c.Items {
		if c.Items[i].ID == id {
			q := c.Items[i].Quantity + quantity
			if q > max {
				q = max
			}
			c.Items[i].Quantity = q
			c.Items[i].MaxQuantity = max
			return
		}
	}

	if quantity > max {
		quantity = max
	}
	c.Items = append(c.Items, Item{
		ID:          id,
		ProductID:   p.ID,
		VariantID:   variantID,
		Quantity:    quantity,
		Name:        p.Name,
		Price:       p.Price,
		MaxQuantity: max,
	})
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (c *Cart) UpdateQuantity(id string, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(id)
		return
	}
	for i := range c.Items {
		if c.Items[i].ID == id {
			if c.Items[i].MaxQuantity > 0 && quantity > c.Items[i].MaxQuantity {
				quantity = c.Items[i].MaxQuantity
			}
			c.Items[i].Quantity = quantity
			return
		}
	}
}

func (c *Cart) RemoveItem(id string) {
	out := c.Items[:0]
	for _, it := range c.Items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	c.Items = out
}

func (c *Cart) Clear() {
	c.Items = nil
	c.PromoCode = ""
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

// Totals computes the advisory breakdown shown before checkout.
func (c *Cart) Totals() pricing.Totals {
	return pricing.Compute(c.Subtotal(), c.PromoCode)
}
