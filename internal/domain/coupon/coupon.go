package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported coupon discount strategies.
type Kind string

const (
	// KindPercentage discounts a fraction of the subtotal (0.10 is 10%).
	KindPercentage Kind = "percentage"
	// KindFixed discounts a flat amount.
	KindFixed Kind = "fixed"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindPercentage || k == KindFixed
}

// ErrNotFound is returned when no coupon matches the entered code.
var ErrNotFound = errors.New("coupon not found")

// Coupon is a discount rule identified by its code.
//
// MinPurchase and ExpiryDate are carried for display but are not enforced
// when the coupon is applied.
type Coupon struct {
	ID          int64
	Code        string
	Kind        Kind
	Value       decimal.Decimal
	MinPurchase decimal.Decimal
	ExpiryDate  *time.Time
	Active      bool
}

// Discount returns the amount this coupon takes off the given subtotal.
// Percentage coupons are not capped and fixed coupons are not limited to the
// subtotal; the pricing floor handles overshoot.
func (c *Coupon) Discount(subtotal decimal.Decimal) decimal.Decimal {
	switch c.Kind {
	case KindPercentage:
		return subtotal.Mul(c.Value)
	case KindFixed:
		return c.Value
	default:
		return decimal.Zero
	}
}

// Repository provides access to the coupon directory.
type Repository interface {
	List(ctx context.Context) ([]Coupon, error)
}
