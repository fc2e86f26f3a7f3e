package cart_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/chronoshop/storefront/internal/cart"
	"github.com/chronoshop/storefront/internal/catalog"
)

func watch(id, name string, price string, available int) *catalog.Product {
	p, err := decimal.NewFromString(price)
	if err != nil {
		panic(err)
	}
	return &catalog.Product{
		ID:        id,
		Name:      name,
		Price:     p,
		Inventory: &catalog.Inventory{ProductID: id, Quantity: available},
	}
}

func TestAddItemMergesSameProductVariant(t *testing.T) {
	var c cart.Cart
	sub := watch("prod-1", "Submariner", "8950.00", 12)

	c.AddItem(sub, 1, "")
	c.AddItem(sub, 2, "")

	assert.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, 3, c.ItemCount())
}

func TestAddItemVariantsAreSeparateLines(t *testing.T) {
	var c cart.Cart
	sub := watch("prod-1", "Submariner", "8950.00", 12)

	c.AddItem(sub, 1, "black-dial")
	c.AddItem(sub, 1, "green-dial")

	assert.Len(t, c.Items, 2)
	assert.Equal(t, "prod-1-black-dial", c.Items[0].ID)
	assert.Equal(t, "prod-1-green-dial", c.Items[1].ID)
}

func TestAddItemCapsAtKnownStock(t *testing.T) {
	var c cart.Cart
	rare := watch("prod-2", "Daytona", "34500.00", 2)

	c.AddItem(rare, 5, "")
	assert.Equal(t, 2, c.Items[0].Quantity)

	c.AddItem(rare, 1, "")
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestUpdateQuantity(t *testing.T) {
	var c cart.Cart
	sub := watch("prod-1", "Submariner", "8950.00", 12)
	c.AddItem(sub, 1, "")

	c.UpdateQuantity("prod-1", 4)
	assert.Equal(t, 4, c.Items[0].Quantity)

	c.UpdateQuantity("prod-1", 0)
	assert.Empty(t, c.Items)
}

func TestRemoveAndClear(t *testing.T) {
	var c cart.Cart
	c.AddItem(watch("prod-1", "Submariner", "8950.00", 12), 1, "")
	c.AddItem(watch("prod-2", "Speedmaster", "6350.00", 4), 1, "")
	c.PromoCode = "WELCOME10"

	c.RemoveItem("prod-1")
	assert.Len(t, c.Items, 1)
	assert.Equal(t, "prod-2", c.Items[0].ID)

	c.Clear()
	assert.Empty(t, c.Items)
	assert.Empty(t, c.PromoCode)
}

func TestTotalsAreAdvisoryBreakdown(t *testing.T) {
	var c cart.Cart
	c.AddItem(watch("prod-1", "Submariner", "8950.00", 12), 1, "")

	got := c.Totals()
	assert.True(t, decimal.RequireFromString("8950.00").Equal(got.Subtotal))
	assert.True(t, decimal.RequireFromString("716.00").Equal(got.Tax))
	assert.True(t, got.Shipping.IsZero())
	assert.True(t, decimal.RequireFromString("9666.00").Equal(got.Total))

	c.PromoCode = "WELCOME10"
	got = c.Totals()
	assert.True(t, decimal.RequireFromString("8699.40").Equal(got.Total))
}
