package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/kart-pos/internal/domain/cart"
	"github.com/xenking/kart-pos/internal/domain/customer"
	"github.com/xenking/kart-pos/internal/domain/loyalty"
	"github.com/xenking/kart-pos/internal/domain/order"
	"github.com/xenking/kart-pos/internal/domain/pricing"
	"github.com/xenking/kart-pos/internal/domain/product"
	"github.com/xenking/kart-pos/internal/domain/session"
)

// --- Mock implementations ---

type mockSessions struct {
	mu    sync.Mutex
	id    int64
	err   error
	calls int
}

func (m *mockSessions) EnsureOpen(_ context.Context) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &session.Session{ID: m.id, Status: session.StatusOpen}, nil
}

type mockOrders struct {
	mu      sync.Mutex
	drafts  []order.Draft
	err     error
	release chan struct{}
	entered chan struct{}
}

func (m *mockOrders) Create(_ context.Context, d order.Draft) (*order.Order, error) {
	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.release != nil {
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts = append(m.drafts, d)
	if m.err != nil {
		return nil, m.err
	}
	return &order.Order{ID: int64(len(m.drafts)), SessionID: d.SessionID, TotalAmount: d.TotalAmount}, nil
}

func (m *mockOrders) last() order.Draft {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drafts[len(m.drafts)-1]
}

// --- Helpers ---

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestCoordinator(t *testing.T, sessions *mockSessions, orders *mockOrders) *Coordinator {
	t.Helper()
	c := cart.New(pricing.Policy{TaxRate: pricing.DefaultTaxRate})
	co, err := New(c, sessions, orders, tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	require.NoError(t, err)

	var n int
	co.newKey = func() string {
		n++
		return "attempt-" + string(rune('0'+n))
	}
	return co
}

// fillCart adds A (10.00 x2) and B (5.00 x1), a 27.50 total at 10% tax.
func fillCart(t *testing.T, co *Coordinator) {
	t.Helper()
	require.NoError(t, co.Edit(func(c *cart.Cart) error {
		a := product.Product{ID: 1, Name: "A", Price: dec("10.00")}
		c.AddItem(a)
		c.AddItem(a)
		c.AddItem(product.Product{ID: 2, Name: "B", Price: dec("5.00")})
		return nil
	}))
}

// --- Tests ---

func TestSubmit_Card(t *testing.T) {
	sessions := &mockSessions{id: 7}
	orders := &mockOrders{}
	co := newTestCoordinator(t, sessions, orders)
	fillCart(t, co)

	require.NoError(t, co.SelectMethod(order.PaymentCard))
	q := co.Quote()
	assert.Equal(t, StateReady, q.State)
	assert.True(t, q.CanSubmit)

	o, err := co.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), o.ID)

	d := orders.last()
	assert.Equal(t, int64(7), d.SessionID)
	assert.Nil(t, d.CustomerID)
	assert.Equal(t, order.StatusCompleted, d.Status)
	assert.True(t, dec("27.50").Equal(d.TotalAmount))
	require.Len(t, d.Items, 2)
	assert.Equal(t, order.DraftItem{ProductID: 1, Quantity: 2, UnitPrice: dec("10.00")}, d.Items[0])
	require.Len(t, d.Payments, 1)
	assert.Equal(t, order.PaymentCard, d.Payments[0].Method)
	assert.True(t, dec("27.50").Equal(d.Payments[0].Amount))

	q = co.Quote()
	assert.Equal(t, StateCompleted, q.State)
	assert.Equal(t, o, q.LastOrder)
	co.View(func(c *cart.Cart) { assert.True(t, c.IsEmpty()) })
}

func TestSubmit_CashRecordsTotalNotTender(t *testing.T) {
	orders := &mockOrders{}
	co := newTestCoordinator(t, &mockSessions{id: 1}, orders)
	fillCart(t, co)

	require.NoError(t, co.SelectMethod(order.PaymentCash))
	require.NoError(t, co.Tender(dec("50.00")))

	q := co.Quote()
	assert.True(t, dec("22.50").Equal(q.Change))
	assert.True(t, q.CanSubmit)

	_, err := co.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, dec("27.50").Equal(orders.last().Payments[0].Amount))
}

func TestTender_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		tendered  string
		state     State
		canSubmit bool
		change    string
		remaining string
	}{
		{name: "covers total with change", tendered: "30.00", state: StateReady, canSubmit: true, change: "10.00", remaining: "0"},
		{name: "exact amount", tendered: "20.00", state: StateReady, canSubmit: true, change: "0", remaining: "0"},
		{name: "short", tendered: "15.00", state: StateAwaitingTender, canSubmit: false, change: "0", remaining: "5.00"},
		{name: "nothing tendered", tendered: "0", state: StateAwaitingTender, canSubmit: false, change: "0", remaining: "20.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := &mockOrders{}
			co := newTestCoordinator(t, &mockSessions{id: 1}, orders)
			fillCart(t, co)
			// 27.50 less a 7.50 manual discount leaves 20.00 due.
			require.NoError(t, co.Edit(func(c *cart.Cart) error {
				c.SetManualDiscount(dec("7.50"))
				return nil
			}))

			require.NoError(t, co.SelectMethod(order.PaymentCash))
			require.NoError(t, co.Tender(dec(tt.tendered)))

			q := co.Quote()
			assert.Equal(t, tt.state, q.State)
			assert.Equal(t, tt.canSubmit, q.CanSubmit)
			assert.True(t, dec("20.00").Equal(q.Due))
			assert.True(t, dec(tt.change).Equal(q.Change), "change %s", q.Change)
			assert.True(t, dec(tt.remaining).Equal(q.Remaining), "remaining %s", q.Remaining)

			_, err := co.Submit(context.Background())
			if tt.canSubmit {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrInsufficientTender)
				assert.Empty(t, orders.drafts)
			}
		})
	}
}

func TestTender_ComparedWithCentTotal(t *testing.T) {
	tests := []struct {
		name     string
		tendered string
		wantErr  error
	}{
		{name: "cent total", tendered: "11.04"},
		{name: "one cent short", tendered: "11.03", wantErr: ErrInsufficientTender},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			co := newTestCoordinator(t, &mockSessions{id: 1}, &mockOrders{})
			// 10.04 + 1.004 tax is 11.044, settled as 11.04.
			require.NoError(t, co.Edit(func(c *cart.Cart) error {
				c.AddItem(product.Product{ID: 1, Name: "A", Price: dec("10.04")})
				return nil
			}))
			require.NoError(t, co.SelectMethod(order.PaymentCash))
			require.NoError(t, co.Tender(dec(tt.tendered)))

			_, err := co.Submit(context.Background())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSubmit_Preconditions(t *testing.T) {
	co := newTestCoordinator(t, &mockSessions{id: 1}, &mockOrders{})

	_, err := co.Submit(context.Background())
	require.ErrorIs(t, err, ErrEmptyCart)

	require.ErrorIs(t, co.SelectMethod(order.PaymentCard), ErrEmptyCart)

	fillCart(t, co)
	_, err = co.Submit(context.Background())
	require.ErrorIs(t, err, ErrNoMethod)

	require.ErrorIs(t, co.SelectMethod("CHEQUE"), ErrInvalidMethod)
	require.NoError(t, co.SelectMethod(order.PaymentCard))
	require.ErrorIs(t, co.Tender(dec("10")), ErrTenderNotAccepted)

	require.NoError(t, co.SelectMethod(order.PaymentCash))
	require.ErrorIs(t, co.Tender(dec("-1")), ErrInvalidTender)
}

func TestSubmit_SessionFailureLeavesStateIntact(t *testing.T) {
	sessions := &mockSessions{err: &session.ResolveError{
		Lookup: errors.New("lookup down"),
		Create: errors.New("create down"),
	}}
	orders := &mockOrders{}
	co := newTestCoordinator(t, sessions, orders)
	fillCart(t, co)
	require.NoError(t, co.Edit(func(c *cart.Cart) error {
		c.SetManualDiscount(dec("2.50"))
		return nil
	}))
	require.NoError(t, co.SelectMethod(order.PaymentCash))
	require.NoError(t, co.Tender(dec("30.00")))

	_, err := co.Submit(context.Background())

	var submitErr *SubmitError
	require.ErrorAs(t, err, &submitErr)
	assert.Equal(t, StageSession, submitErr.Stage)
	var resolveErr *session.ResolveError
	require.ErrorAs(t, err, &resolveErr)
	assert.Empty(t, orders.drafts, "no order call after session failure")

	q := co.Quote()
	assert.Equal(t, StateFailed, q.State)
	assert.Equal(t, err, q.LastError)
	assert.True(t, dec("30.00").Equal(q.Tendered))
	assert.True(t, q.CanSubmit, "retry allowed")
	co.View(func(c *cart.Cart) {
		assert.Len(t, c.Items(), 2)
		assert.True(t, dec("2.50").Equal(c.ManualDiscount()))
	})
}

func TestSubmit_OrderFailureThenRetryReusesKey(t *testing.T) {
	orders := &mockOrders{err: errors.New("502 bad gateway")}
	co := newTestCoordinator(t, &mockSessions{id: 3}, orders)
	fillCart(t, co)
	require.NoError(t, co.SelectMethod(order.PaymentCard))

	_, err := co.Submit(context.Background())
	var submitErr *SubmitError
	require.ErrorAs(t, err, &submitErr)
	assert.Equal(t, StageOrder, submitErr.Stage)
	co.View(func(c *cart.Cart) { assert.Len(t, c.Items(), 2) })

	orders.err = nil
	o, err := co.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, o)

	require.Len(t, orders.drafts, 2)
	assert.Equal(t, orders.drafts[0].IdempotencyKey, orders.drafts[1].IdempotencyKey)
	assert.NotEmpty(t, orders.drafts[0].IdempotencyKey)
}

func TestEdit_NewAttemptKey(t *testing.T) {
	orders := &mockOrders{err: errors.New("timeout")}
	co := newTestCoordinator(t, &mockSessions{id: 3}, orders)
	fillCart(t, co)
	require.NoError(t, co.SelectMethod(order.PaymentCard))

	_, err := co.Submit(context.Background())
	require.Error(t, err)

	require.NoError(t, co.Edit(func(c *cart.Cart) error {
		c.UpdateQuantity(2, 1)
		return nil
	}))
	assert.Equal(t, StateReady, co.Quote().State, "failed attempt returns to method selected on edit")

	orders.err = nil
	_, err = co.Submit(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, orders.drafts[0].IdempotencyKey, orders.drafts[1].IdempotencyKey)
}

func TestSubmit_RefusesConcurrentChanges(t *testing.T) {
	orders := &mockOrders{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	co := newTestCoordinator(t, &mockSessions{id: 1}, orders)
	fillCart(t, co)
	require.NoError(t, co.SelectMethod(order.PaymentCard))

	done := make(chan error, 1)
	go func() {
		_, err := co.Submit(context.Background())
		done <- err
	}()

	select {
	case <-orders.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("submission did not start")
	}

	assert.Equal(t, StateSubmitting, co.Quote().State)
	assert.False(t, co.Quote().CanSubmit)

	_, err := co.Submit(context.Background())
	require.ErrorIs(t, err, ErrSubmitInProgress)
	require.ErrorIs(t, co.Edit(func(*cart.Cart) error { return nil }), ErrSubmitInProgress)
	require.ErrorIs(t, co.SelectMethod(order.PaymentCash), ErrSubmitInProgress)
	require.ErrorIs(t, co.Reset(), ErrSubmitInProgress)

	// Reads stay available.
	co.View(func(c *cart.Cart) { assert.Len(t, c.Items(), 2) })

	close(orders.release)
	require.NoError(t, <-done)
	assert.Len(t, orders.drafts, 1)
}

func TestSubmit_WithCustomerAndLoyalty(t *testing.T) {
	orders := &mockOrders{}
	c := cart.New(pricing.Policy{
		TaxRate: pricing.DefaultTaxRate,
		Loyalty: loyalty.Settings{PointsPerDollar: dec("1"), Enabled: true},
	})
	co, err := New(c, &mockSessions{id: 2}, orders, tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	require.NoError(t, err)

	fillCart(t, co)
	require.NoError(t, co.Edit(func(c *cart.Cart) error {
		c.SetCustomer(&customer.Customer{ID: 42, Name: "Ada", Points: 100})
		return nil
	}))
	require.NoError(t, co.SelectMethod(order.PaymentCash))

	q := co.Quote()
	assert.True(t, q.Due.IsZero())
	assert.True(t, q.CanSubmit, "zero due needs no tender")

	_, err = co.Submit(context.Background())
	require.NoError(t, err)

	d := orders.last()
	require.NotNil(t, d.CustomerID)
	assert.Equal(t, int64(42), *d.CustomerID)
	assert.True(t, d.TotalAmount.IsZero())
	co.View(func(c *cart.Cart) { assert.Nil(t, c.Customer()) })
}

func TestReset(t *testing.T) {
	co := newTestCoordinator(t, &mockSessions{id: 1}, &mockOrders{})
	fillCart(t, co)
	require.NoError(t, co.SelectMethod(order.PaymentCash))
	require.NoError(t, co.Tender(dec("5")))

	require.NoError(t, co.Reset())

	q := co.Quote()
	assert.Equal(t, StateIdle, q.State)
	assert.Empty(t, q.Method)
	assert.True(t, q.Tendered.IsZero())
	co.View(func(c *cart.Cart) { assert.False(t, c.IsEmpty()) })
}

func TestEdit_EmptyingCartResetsPayment(t *testing.T) {
	co := newTestCoordinator(t, &mockSessions{id: 1}, &mockOrders{})
	fillCart(t, co)
	require.NoError(t, co.SelectMethod(order.PaymentCard))

	require.NoError(t, co.Edit(func(c *cart.Cart) error {
		c.Clear()
		return nil
	}))
	assert.Equal(t, StateIdle, co.Quote().State)
}

func TestEdit_PropagatesError(t *testing.T) {
	co := newTestCoordinator(t, &mockSessions{id: 1}, &mockOrders{})
	boom := errors.New("boom")
	require.ErrorIs(t, co.Edit(func(*cart.Cart) error { return boom }), boom)
}
