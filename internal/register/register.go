// Package register runs one point-of-sale register: reference data, the cart,
// checkout and the register session.
package register

import (
	"context"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/kart-pos/internal/domain/cart"
	"github.com/xenking/kart-pos/internal/domain/checkout"
	"github.com/xenking/kart-pos/internal/domain/customer"
	"github.com/xenking/kart-pos/internal/domain/order"
	"github.com/xenking/kart-pos/internal/domain/pricing"
	"github.com/xenking/kart-pos/internal/domain/product"
	"github.com/xenking/kart-pos/internal/domain/session"
)

// ErrInvalidCash is returned for a negative closing cash count.
var ErrInvalidCash = errors.New("closing cash must not be negative")

// CustomerCreator registers customers with the order service.
type CustomerCreator interface {
	CreateCustomer(ctx context.Context, nc customer.NewCustomer) (*customer.Customer, error)
}

// Deps holds the collaborators of a Register.
type Deps struct {
	References *References
	Customers  CustomerCreator
	Sessions   session.Repository
	Orders     order.Repository
}

// Register owns the cart and checkout flow of one till.
type Register struct {
	refs      *References
	customers CustomerCreator
	orders    order.Repository
	sessions  *session.Manager
	checkout  *checkout.Coordinator
	taxRate   decimal.Decimal
}

// New creates a Register pricing with the given tax rate.
func New(taxRate decimal.Decimal, deps Deps, tp trace.TracerProvider, mp metric.MeterProvider) (*Register, error) {
	manager := session.NewManager(deps.Sessions, tp)

	policy := pricing.Policy{TaxRate: taxRate, Loyalty: deps.References.Current().Loyalty}
	co, err := checkout.New(cart.New(policy), manager, deps.Orders, tp, mp)
	if err != nil {
		return nil, errors.Wrap(err, "create checkout")
	}

	return &Register{
		refs:      deps.References,
		customers: deps.Customers,
		orders:    deps.Orders,
		sessions:  manager,
		checkout:  co,
		taxRate:   taxRate,
	}, nil
}

// Checkout exposes the payment state machine.
func (r *Register) Checkout() *checkout.Coordinator {
	return r.checkout
}

// Load fetches reference data, from the shared cache when available.
func (r *Register) Load(ctx context.Context) error {
	if _, err := r.refs.Load(ctx); err != nil {
		return err
	}
	r.syncPolicy(ctx)
	return nil
}

// Refresh refetches reference data from the order service.
func (r *Register) Refresh(ctx context.Context) error {
	if _, err := r.refs.Refresh(ctx); err != nil {
		return err
	}
	r.syncPolicy(ctx)
	return nil
}

// syncPolicy reprices the cart with the loaded loyalty settings and the
// selected customer's current record. During a submission the update is
// deferred to the next cart edit.
func (r *Register) syncPolicy(ctx context.Context) {
	want := r.policy()
	stale := false
	r.checkout.View(func(c *cart.Cart) {
		_, changed := r.currentCustomer(c)
		stale = changed || !samePolicy(c.Policy(), want)
	})
	if !stale {
		return
	}
	if err := r.edit(func(*cart.Cart) error { return nil }); err != nil {
		zctx.From(ctx).Debug("Pricing policy update deferred", zap.Error(err))
	}
}

func (r *Register) policy() pricing.Policy {
	return pricing.Policy{TaxRate: r.taxRate, Loyalty: r.refs.Current().Loyalty}
}

// edit applies fn through the coordinator after bringing the cart's pricing
// policy up to date.
func (r *Register) edit(fn func(*cart.Cart) error) error {
	want := r.policy()
	return r.checkout.Edit(func(c *cart.Cart) error {
		if !samePolicy(c.Policy(), want) {
			c.SetPolicy(want)
		}
		if cust, changed := r.currentCustomer(c); changed {
			c.SetCustomer(cust)
		}
		return fn(c)
	})
}

// currentCustomer looks up the cart's customer in the loaded directory and
// reports whether the record differs from the cart's copy. A customer missing
// from the directory keeps the cart's copy.
func (r *Register) currentCustomer(c *cart.Cart) (*customer.Customer, bool) {
	selected := c.Customer()
	if selected == nil {
		return nil, false
	}
	customers := r.refs.Current().Customers
	i := slices.IndexFunc(customers, func(cust customer.Customer) bool { return cust.ID == selected.ID })
	if i < 0 || customers[i] == *selected {
		return selected, false
	}
	return &customers[i], true
}

func samePolicy(a, b pricing.Policy) bool {
	return a.TaxRate.Equal(b.TaxRate) &&
		a.Loyalty.Enabled == b.Loyalty.Enabled &&
		a.Loyalty.PointsPerDollar.Equal(b.Loyalty.PointsPerDollar) &&
		a.Loyalty.RedemptionRate.Equal(b.Loyalty.RedemptionRate)
}

// ProductFilter narrows the catalog listing.
type ProductFilter struct {
	// Category matches case-insensitively. Empty means all.
	Category string
	// Query matches a case-insensitive substring of name, SKU or barcode.
	Query string
}

// Products lists the catalog matching f.
func (r *Register) Products(f ProductFilter) []product.Product {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	var out []product.Product
	for _, p := range r.refs.Current().Products {
		if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.SKU), q) &&
			!strings.Contains(strings.ToLower(p.Barcode), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Categories returns the distinct product categories, sorted.
func (r *Register) Categories() []string {
	var out []string
	for _, p := range r.refs.Current().Products {
		if p.Category != "" && !slices.Contains(out, p.Category) {
			out = append(out, p.Category)
		}
	}
	slices.Sort(out)
	return out
}

// Customers returns the customer directory.
func (r *Register) Customers() []customer.Customer {
	return r.refs.Current().Customers
}

// CreateCustomer registers a customer and selects it for the cart.
func (r *Register) CreateCustomer(ctx context.Context, nc customer.NewCustomer) (*customer.Customer, error) {
	c, err := r.customers.CreateCustomer(ctx, nc)
	if err != nil {
		return nil, errors.Wrap(err, "create customer")
	}
	r.refs.addCustomer(*c)

	if err := r.edit(func(ct *cart.Cart) error {
		ct.SetCustomer(c)
		return nil
	}); err != nil {
		return c, err
	}
	zctx.From(ctx).Info("Customer created", zap.Int64("customer_id", c.ID))
	return c, nil
}

// Cart returns a snapshot of the cart with its totals.
func (r *Register) Cart() cart.Snapshot {
	var s cart.Snapshot
	r.checkout.View(func(c *cart.Cart) { s = c.Snapshot() })
	return s
}

// AddItem adds one unit of a catalog product.
func (r *Register) AddItem(productID int64) error {
	i := slices.IndexFunc(r.refs.Current().Products, func(p product.Product) bool { return p.ID == productID })
	if i < 0 {
		return product.ErrNotFound
	}
	p := r.refs.Current().Products[i]
	return r.edit(func(c *cart.Cart) error {
		c.AddItem(p)
		return nil
	})
}

// UpdateQuantity changes a line's quantity by delta, never below one.
func (r *Register) UpdateQuantity(productID int64, delta int) error {
	return r.edit(func(c *cart.Cart) error {
		c.UpdateQuantity(productID, delta)
		return nil
	})
}

// RemoveItem drops a line.
func (r *Register) RemoveItem(productID int64) error {
	return r.edit(func(c *cart.Cart) error {
		c.RemoveItem(productID)
		return nil
	})
}

// SetManualDiscount sets the cashier's flat discount as given. A negative
// amount raises the total.
func (r *Register) SetManualDiscount(amount decimal.Decimal) error {
	return r.edit(func(c *cart.Cart) error {
		c.SetManualDiscount(amount)
		return nil
	})
}

// SelectCustomer attaches a directory customer to the cart, or detaches the
// current one when id is nil.
func (r *Register) SelectCustomer(id *int64) error {
	var selected *customer.Customer
	if id != nil {
		customers := r.refs.Current().Customers
		i := slices.IndexFunc(customers, func(c customer.Customer) bool { return c.ID == *id })
		if i < 0 {
			return customer.ErrNotFound
		}
		selected = &customers[i]
	}
	return r.edit(func(c *cart.Cart) error {
		c.SetCustomer(selected)
		return nil
	})
}

// ApplyCoupon attaches the coupon with exactly this code, replacing any
// coupon already applied.
func (r *Register) ApplyCoupon(code string) error {
	cp, err := r.refs.Coupons().Lookup(code)
	if err != nil {
		return err
	}
	return r.edit(func(c *cart.Cart) error {
		c.ApplyCoupon(*cp)
		return nil
	})
}

// RemoveCoupon detaches the coupon.
func (r *Register) RemoveCoupon() error {
	return r.edit(func(c *cart.Cart) error {
		c.RemoveCoupon()
		return nil
	})
}

// Clear empties the cart.
func (r *Register) Clear() error {
	return r.edit(func(c *cart.Cart) error {
		c.Clear()
		return nil
	})
}

// Order fetches an order for receipt display.
func (r *Register) Order(ctx context.Context, id int64) (*order.Order, error) {
	return r.orders.Get(ctx, id)
}

// Session returns the register's open session.
func (r *Register) Session(ctx context.Context) (*session.Session, error) {
	return r.sessions.Current(ctx)
}

// CloseSession closes the open session with the counted cash. It is refused
// while an order is being submitted.
func (r *Register) CloseSession(ctx context.Context, closingCash decimal.Decimal) (*session.Session, error) {
	if closingCash.IsNegative() {
		return nil, ErrInvalidCash
	}
	if r.checkout.Quote().State == checkout.StateSubmitting {
		return nil, checkout.ErrSubmitInProgress
	}
	return r.sessions.Close(ctx, closingCash)
}
