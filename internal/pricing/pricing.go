package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Pricing policy for the storefront. The rates are business constants, not
// deployment configuration: the frontend mirrors them for advisory cart
// totals, so changing them is a coordinated release.
var (
	TaxRate               = decimal.NewFromFloat(0.08)
	FreeShippingThreshold = decimal.NewFromInt(1000)
	FlatShippingFee       = decimal.NewFromInt(50)
	welcomeDiscountRate   = decimal.NewFromFloat(0.10)
)

const PromoWelcome10 = "WELCOME10"

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// Discount returns the promo reduction for a subtotal. Unrecognized codes are
// ignored, not rejected: a stale code in a shopper's clipboard should not fail
// a checkout.
func Discount(subtotal decimal.Decimal, promoCode string) decimal.Decimal {
	if strings.TrimSpace(promoCode) == PromoWelcome10 {
		return subtotal.Mul(welcomeDiscountRate).Round(2)
	}
	return decimal.Zero
}

// Compute derives the full monetary breakdown from a subtotal: promo discount,
// 8% tax on the discounted amount, free shipping at or above the threshold.
func Compute(subtotal decimal.Decimal, promoCode string) Totals {
	discount := Discount(subtotal, promoCode)
	discounted := subtotal.Sub(discount)

	tax := discounted.Mul(TaxRate).Round(2)
	shipping := FlatShippingFee
	if discounted.GreaterThanOrEqual(FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Shipping: shipping,
		Total:    discounted.Add(tax).Add(shipping),
	}
}

// MinorUnits converts an amount to integer cents for the payment gateway.
func MinorUnits(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
