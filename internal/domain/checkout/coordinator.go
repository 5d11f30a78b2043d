// Package checkout coordinates payment and order submission for one register.
package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/kart-pos/internal/domain/cart"
	"github.com/xenking/kart-pos/internal/domain/order"
	"github.com/xenking/kart-pos/internal/domain/session"
)

// State is the externally visible checkout state.
//
// Selecting a method moves Idle straight to AwaitingTender (cash) or Ready
// (card). A cash checkout becomes Ready once the tender covers the amount due.
type State string

const (
	StateIdle           State = "idle"
	StateAwaitingTender State = "awaiting_tender"
	StateReady          State = "ready"
	StateSubmitting     State = "submitting"
	StateCompleted      State = "completed"
	StateFailed         State = "failed"
)

type phase int

const (
	phaseIdle phase = iota
	phaseSelected
	phaseSubmitting
	phaseCompleted
	phaseFailed
)

// SessionResolver finds or opens the register session orders belong to.
type SessionResolver interface {
	EnsureOpen(ctx context.Context) (*session.Session, error)
}

// OrderCreator submits orders to the order service.
type OrderCreator interface {
	Create(ctx context.Context, d order.Draft) (*order.Order, error)
}

// Quote describes the current payment position.
type Quote struct {
	State    State
	Method   order.PaymentMethod
	Due      decimal.Decimal
	Tendered decimal.Decimal
	// Change is tendered minus due when the tender covers the total, else zero.
	Change decimal.Decimal
	// Remaining is how much more cash is needed, zero once covered.
	Remaining decimal.Decimal
	CanSubmit bool
	LastOrder *order.Order
	LastError error
}

// Coordinator owns the cart for one register and drives the checkout state
// machine. Cart edits and payment changes are refused while a submission is
// in flight, so an order is never built from a cart that is still changing.
type Coordinator struct {
	sessions SessionResolver
	orders   OrderCreator
	newKey   func() string

	tracer      trace.Tracer
	submissions metric.Int64Counter
	duration    metric.Float64Histogram

	mu         sync.Mutex
	cart       *cart.Cart
	phase      phase
	method     order.PaymentMethod
	tendered   decimal.Decimal
	attemptKey string
	lastOrder  *order.Order
	lastErr    error
}

// New creates a Coordinator around an existing cart.
func New(
	c *cart.Cart,
	sessions SessionResolver,
	orders OrderCreator,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (*Coordinator, error) {
	meter := mp.Meter("kart-pos/checkout")

	submissions, err := meter.Int64Counter("pos.checkout.submissions",
		metric.WithDescription("Checkout submissions by payment method and outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create submissions counter")
	}
	duration, err := meter.Float64Histogram("pos.checkout.duration",
		metric.WithDescription("Time spent resolving the session and creating the order"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create duration histogram")
	}

	return &Coordinator{
		sessions:    sessions,
		orders:      orders,
		newKey:      func() string { return uuid.New().String() },
		tracer:      tp.Tracer("kart-pos/checkout"),
		submissions: submissions,
		duration:    duration,
		cart:        c,
		tendered:    decimal.Zero,
	}, nil
}

// Edit runs fn against the cart. Any edit starts a new checkout attempt. After
// a completed checkout the payment state returns to Idle; after a failed one
// the chosen method and tender are kept.
func (c *Coordinator) Edit(fn func(*cart.Cart) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == phaseSubmitting {
		return ErrSubmitInProgress
	}
	if err := fn(c.cart); err != nil {
		return err
	}

	c.attemptKey = ""
	switch c.phase {
	case phaseCompleted:
		c.resetPayment()
	case phaseFailed:
		c.phase = phaseSelected
		c.lastErr = nil
	}
	if c.cart.IsEmpty() {
		c.resetPayment()
	}
	return nil
}

// View runs fn with read access to the cart. It is allowed during submission.
func (c *Coordinator) View(fn func(*cart.Cart)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.cart)
}

// SelectMethod chooses the payment method. Changing the method resets any
// cash tendered.
func (c *Coordinator) SelectMethod(m order.PaymentMethod) error {
	if !m.Valid() {
		return ErrInvalidMethod
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == phaseSubmitting {
		return ErrSubmitInProgress
	}
	if c.cart.IsEmpty() {
		return ErrEmptyCart
	}
	if c.method != m {
		c.tendered = decimal.Zero
		c.attemptKey = ""
	}
	c.method = m
	c.phase = phaseSelected
	c.lastErr = nil
	return nil
}

// Tender records the cash handed over by the customer.
func (c *Coordinator) Tender(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidTender
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == phaseSubmitting {
		return ErrSubmitInProgress
	}
	if c.method != order.PaymentCash {
		return ErrTenderNotAccepted
	}
	c.tendered = amount
	return nil
}

// Reset abandons the payment and returns to Idle, keeping the cart.
func (c *Coordinator) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == phaseSubmitting {
		return ErrSubmitInProgress
	}
	c.resetPayment()
	c.lastOrder = nil
	return nil
}

// Quote reports the amount due, change and whether submission is allowed.
func (c *Coordinator) Quote() Quote {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quote()
}

// Submit resolves the register session and creates the order. On success the
// cart is cleared and the created order is returned. On failure nothing local
// changes and the same attempt can be submitted again.
func (c *Coordinator) Submit(ctx context.Context) (*order.Order, error) {
	c.mu.Lock()
	if err := c.canSubmit(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	draft := c.draft()
	method := c.method
	c.phase = phaseSubmitting
	c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "checkout.Submit", trace.WithAttributes(
		attribute.String("payment.method", string(method)),
		attribute.String("order.total", draft.TotalAmount.String()),
		attribute.Int("order.items", len(draft.Items)),
	))
	defer span.End()

	lg := zctx.From(ctx).With(
		zap.String("method", string(method)),
		zap.String("total", draft.TotalAmount.String()),
		zap.String("idempotency_key", draft.IdempotencyKey),
	)
	start := time.Now()

	o, err := c.submit(ctx, &draft)

	c.duration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("method", string(method))),
	)
	outcome := "completed"
	if err != nil {
		outcome = "failed"
	}
	c.submissions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", string(method)),
		attribute.String("outcome", outcome),
	))

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkout failed")
		lg.Warn("Checkout failed", zap.Error(err))

		c.phase = phaseFailed
		c.lastErr = err
		return nil, err
	}

	lg.Info("Checkout completed", zap.Int64("order_id", o.ID), zap.Int64("session_id", draft.SessionID))
	span.SetAttributes(attribute.Int64("order.id", o.ID))

	c.cart.Clear()
	c.resetPayment()
	c.phase = phaseCompleted
	c.lastOrder = o
	return o, nil
}

func (c *Coordinator) submit(ctx context.Context, draft *order.Draft) (*order.Order, error) {
	s, err := c.sessions.EnsureOpen(ctx)
	if err != nil {
		return nil, &SubmitError{Stage: StageSession, Err: err}
	}
	draft.SessionID = s.ID

	o, err := c.orders.Create(ctx, *draft)
	if err != nil {
		return nil, &SubmitError{Stage: StageOrder, Err: err}
	}
	return o, nil
}

// canSubmit must be called with c.mu held. Cash tender is checked against the
// total rounded to cents, the amount that is actually settled.
func (c *Coordinator) canSubmit() error {
	switch {
	case c.phase == phaseSubmitting:
		return ErrSubmitInProgress
	case c.cart.IsEmpty():
		return ErrEmptyCart
	case c.method == "" || (c.phase != phaseSelected && c.phase != phaseFailed):
		return ErrNoMethod
	case c.method == order.PaymentCash && c.tendered.LessThan(c.cart.Totals().Due()):
		return ErrInsufficientTender
	}
	return nil
}

// draft builds the order payload from the cart. The payment amount is the
// amount due, also for cash. Must be called with c.mu held.
func (c *Coordinator) draft() order.Draft {
	snap := c.cart.Snapshot()
	due := snap.Totals.Due()

	if c.attemptKey == "" {
		c.attemptKey = c.newKey()
	}

	items := make([]order.DraftItem, len(snap.Items))
	for i, it := range snap.Items {
		items[i] = order.DraftItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
	}

	var customerID *int64
	if snap.Customer != nil {
		id := snap.Customer.ID
		customerID = &id
	}

	return order.Draft{
		CustomerID:     customerID,
		TotalAmount:    due,
		Status:         order.StatusCompleted,
		Items:          items,
		Payments:       []order.Payment{{Method: c.method, Amount: due}},
		IdempotencyKey: c.attemptKey,
	}
}

// quote must be called with c.mu held.
func (c *Coordinator) quote() Quote {
	due := c.cart.Totals().Due()
	q := Quote{
		State:     c.state(due),
		Method:    c.method,
		Due:       due,
		Tendered:  c.tendered,
		Change:    decimal.Zero,
		Remaining: decimal.Zero,
		LastOrder: c.lastOrder,
		LastError: c.lastErr,
	}

	if c.method == order.PaymentCash {
		if c.tendered.GreaterThanOrEqual(due) {
			q.Change = c.tendered.Sub(due)
		} else {
			q.Remaining = due.Sub(c.tendered)
		}
	}
	q.CanSubmit = c.canSubmit() == nil
	return q
}

func (c *Coordinator) state(due decimal.Decimal) State {
	switch c.phase {
	case phaseSubmitting:
		return StateSubmitting
	case phaseCompleted:
		return StateCompleted
	case phaseFailed:
		return StateFailed
	case phaseSelected:
		if c.method == order.PaymentCash && c.tendered.LessThan(due) {
			return StateAwaitingTender
		}
		return StateReady
	default:
		return StateIdle
	}
}

func (c *Coordinator) resetPayment() {
	c.phase = phaseIdle
	c.method = ""
	c.tendered = decimal.Zero
	c.attemptKey = ""
	c.lastErr = nil
}
