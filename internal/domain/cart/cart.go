// Package cart implements the in-memory register cart.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pos/internal/domain/coupon"
	"github.com/xenking/kart-pos/internal/domain/customer"
	"github.com/xenking/kart-pos/internal/domain/pricing"
	"github.com/xenking/kart-pos/internal/domain/product"
)

// Item is a cart line. UnitPrice is captured when the product is first added
// and never follows later catalog changes.
type Item struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// LineTotal returns UnitPrice * Quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Snapshot is a read-only copy of the cart together with its totals.
type Snapshot struct {
	Items          []Item
	Customer       *customer.Customer
	Coupon         *coupon.Coupon
	ManualDiscount decimal.Decimal
	Totals         pricing.Totals
}

// Cart holds the items, customer, coupon and manual discount of one checkout.
// Totals are recomputed on every read.
//
// A Cart is owned by a single checkout flow and is not safe for concurrent use.
type Cart struct {
	policy   pricing.Policy
	items    []Item
	customer *customer.Customer
	coupon   *coupon.Coupon
	manual   decimal.Decimal
}

// New returns an empty cart priced under the given policy.
func New(policy pricing.Policy) *Cart {
	return &Cart{policy: policy, manual: decimal.Zero}
}

// SetPolicy replaces the pricing policy, e.g. after loyalty settings reload.
func (c *Cart) SetPolicy(p pricing.Policy) {
	c.policy = p
}

// Policy returns the current pricing policy.
func (c *Cart) Policy() pricing.Policy {
	return c.policy
}

// AddItem increments the quantity of an existing line for p, or appends a new
// line with quantity 1 at p's current price.
func (c *Cart) AddItem(p product.Product) {
	if i := c.index(p.ID); i >= 0 {
		c.items[i].Quantity++
		return
	}
	c.items = append(c.items, Item{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  1,
	})
}

// RemoveItem deletes the line for productID regardless of its quantity.
func (c *Cart) RemoveItem(productID int64) {
	i := c.index(productID)
	if i < 0 {
		return
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
}

// UpdateQuantity adds delta to the line's quantity, clamping at 1.
func (c *Cart) UpdateQuantity(productID int64, delta int) {
	i := c.index(productID)
	if i < 0 {
		return
	}
	c.items[i].Quantity = max(1, c.items[i].Quantity+delta)
}

// SetManualDiscount replaces the manual discount. The amount is not validated.
func (c *Cart) SetManualDiscount(amount decimal.Decimal) {
	c.manual = amount
}

// SetCustomer selects a customer, or clears the selection when cust is nil.
func (c *Cart) SetCustomer(cust *customer.Customer) {
	if cust == nil {
		c.customer = nil
		return
	}
	cp := *cust
	c.customer = &cp
}

// ApplyCoupon applies cp, replacing any coupon already applied.
func (c *Cart) ApplyCoupon(cp coupon.Coupon) {
	c.coupon = &cp
}

// RemoveCoupon drops the applied coupon.
func (c *Cart) RemoveCoupon() {
	c.coupon = nil
}

// Clear empties the cart and resets the coupon, manual discount and the
// selected customer.
func (c *Cart) Clear() {
	c.items = nil
	c.coupon = nil
	c.customer = nil
	c.manual = decimal.Zero
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []Item {
	return append([]Item(nil), c.items...)
}

// Customer returns the selected customer or nil.
func (c *Cart) Customer() *customer.Customer {
	if c.customer == nil {
		return nil
	}
	cp := *c.customer
	return &cp
}

// Coupon returns the applied coupon or nil.
func (c *Cart) Coupon() *coupon.Coupon {
	if c.coupon == nil {
		return nil
	}
	cp := *c.coupon
	return &cp
}

// ManualDiscount returns the manual discount.
func (c *Cart) ManualDiscount() decimal.Decimal {
	return c.manual
}

// Totals prices the cart under the current policy.
func (c *Cart) Totals() pricing.Totals {
	lines := c.lines()
	d := pricing.Resolve(lines, c.coupon, c.customer, c.policy.Loyalty)
	return pricing.Price(lines, c.manual, d, c.policy.TaxRate)
}

// Snapshot returns a copy of the cart state with freshly computed totals.
func (c *Cart) Snapshot() Snapshot {
	return Snapshot{
		Items:          c.Items(),
		Customer:       c.Customer(),
		Coupon:         c.Coupon(),
		ManualDiscount: c.manual,
		Totals:         c.Totals(),
	}
}

func (c *Cart) lines() []pricing.Line {
	lines := make([]pricing.Line, len(c.items))
	for i, it := range c.items {
		lines[i] = pricing.Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity}
	}
	return lines
}

func (c *Cart) index(productID int64) int {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}
