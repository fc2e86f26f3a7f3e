package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/chronoshop/storefront/internal/pricing"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name      string
		subtotal  string
		promoCode string
		discount  string
		tax       string
		shipping  string
		total     string
	}{
		{
			name:     "single_watch_free_shipping",
			subtotal: "8950.00",
			discount: "0",
			tax:      "716.00",
			shipping: "0",
			total:    "9666.00",
		},
		{
			name:      "welcome10_applied",
			subtotal:  "8950.00",
			promoCode: "WELCOME10",
			discount:  "895.00",
			tax:       "644.40",
			shipping:  "0",
			total:     "8699.40",
		},
		{
			name:     "below_threshold_pays_flat_fee",
			subtotal: "450.00",
			discount: "0",
			tax:      "36.00",
			shipping: "50",
			total:    "536.00",
		},
		{
			name:     "threshold_boundary_ships_free",
			subtotal: "1000.00",
			discount: "0",
			tax:      "80.00",
			shipping: "0",
			total:    "1080.00",
		},
		{
			name:      "discount_can_drop_below_threshold",
			subtotal:  "1050.00",
			promoCode: "WELCOME10",
			discount:  "105.00",
			tax:       "75.60",
			shipping:  "50",
			total:     "1070.60",
		},
		{
			name:      "unknown_promo_silently_ignored",
			subtotal:  "8950.00",
			promoCode: "SUMMER50",
			discount:  "0",
			tax:       "716.00",
			shipping:  "0",
			total:     "9666.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pricing.Compute(dec(tt.subtotal), tt.promoCode)
			assert.True(t, dec(tt.discount).Equal(got.Discount), "discount: want %s got %s", tt.discount, got.Discount)
			assert.True(t, dec(tt.tax).Equal(got.Tax), "tax: want %s got %s", tt.tax, got.Tax)
			assert.True(t, dec(tt.shipping).Equal(got.Shipping), "shipping: want %s got %s", tt.shipping, got.Shipping)
			assert.True(t, dec(tt.total).Equal(got.Total), "total: want %s got %s", tt.total, got.Total)
		})
	}
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(966600), pricing.MinorUnits(dec("9666.00")))
	assert.Equal(t, int64(869940), pricing.MinorUnits(dec("8699.40")))
	assert.Equal(t, int64(100), pricing.MinorUnits(dec("0.999")))
}
