// Package pricing computes cart totals. Everything here is pure: inputs are
// passed in explicitly and nothing is rounded until a caller asks for a
// presentation value.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pos/internal/domain/coupon"
	"github.com/xenking/kart-pos/internal/domain/customer"
	"github.com/xenking/kart-pos/internal/domain/loyalty"
)

// DefaultTaxRate is the flat tax rate applied when none is configured.
var DefaultTaxRate = decimal.RequireFromString("0.10")

// Line is one priced cart line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Discounts are the computed coupon and loyalty amounts for a cart.
type Discounts struct {
	Coupon  decimal.Decimal
	Loyalty decimal.Decimal
}

// Policy carries the configuration pricing depends on.
type Policy struct {
	TaxRate decimal.Decimal
	Loyalty loyalty.Settings
}

// DefaultPolicy returns the default tax rate and loyalty settings.
func DefaultPolicy() Policy {
	return Policy{TaxRate: DefaultTaxRate, Loyalty: loyalty.DefaultSettings()}
}

// Totals is the full price breakdown of a cart at full precision.
type Totals struct {
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	ManualDiscount  decimal.Decimal
	CouponDiscount  decimal.Decimal
	LoyaltyDiscount decimal.Decimal
	TotalDiscount   decimal.Decimal
	Total           decimal.Decimal
}

// Due is the amount to settle, rounded to cents.
func (t Totals) Due() decimal.Decimal {
	return t.Total.Round(2)
}

// Rounded returns a copy with every field rounded to cents for display.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal:        t.Subtotal.Round(2),
		Tax:             t.Tax.Round(2),
		ManualDiscount:  t.ManualDiscount.Round(2),
		CouponDiscount:  t.CouponDiscount.Round(2),
		LoyaltyDiscount: t.LoyaltyDiscount.Round(2),
		TotalDiscount:   t.TotalDiscount.Round(2),
		Total:           t.Total.Round(2),
	}
}

// Subtotal returns the sum of unit price times quantity across all lines.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Resolve computes the coupon and loyalty discounts for the given lines.
// A nil coupon or customer contributes nothing. Coupon minimum purchase and
// expiry are not checked.
func Resolve(lines []Line, c *coupon.Coupon, cust *customer.Customer, settings loyalty.Settings) Discounts {
	d := Discounts{Coupon: decimal.Zero, Loyalty: decimal.Zero}
	if c != nil {
		d.Coupon = c.Discount(Subtotal(lines))
	}
	if cust != nil {
		d.Loyalty = settings.Discount(cust.Points)
	}
	return d
}

// Price computes the totals for the given lines:
//
//	tax   = subtotal * taxRate
//	total = max(0, subtotal + tax - (manual + coupon + loyalty))
//
// The manual discount is used as given, including negative values.
func Price(lines []Line, manual decimal.Decimal, d Discounts, taxRate decimal.Decimal) Totals {
	subtotal := Subtotal(lines)
	tax := subtotal.Mul(taxRate)
	totalDiscount := manual.Add(d.Coupon).Add(d.Loyalty)

	total := subtotal.Add(tax).Sub(totalDiscount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		Subtotal:        subtotal,
		Tax:             tax,
		ManualDiscount:  manual,
		CouponDiscount:  d.Coupon,
		LoyaltyDiscount: d.Loyalty,
		TotalDiscount:   totalDiscount,
		Total:           total,
	}
}
