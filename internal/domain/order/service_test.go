package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-pos/internal/domain/product"
	"github.com/xenking/kart-pos/internal/domain/session"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID   map[int64]product.Product
	getErr error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []int64) ([]product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockSessionStore struct {
	sessions map[int64]*session.Session
}

func (m *mockSessionStore) Get(_ context.Context, id int64) (*session.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return s, nil
}

type mockOrderRepo struct {
	lastDraft *Draft
	err       error
}

func (m *mockOrderRepo) Create(_ context.Context, d Draft) (*Order, error) {
	m.lastDraft = &d
	if m.err != nil {
		return nil, m.err
	}
	return &Order{ID: 100, SessionID: d.SessionID, TotalAmount: d.TotalAmount, Status: d.Status}, nil
}

func (m *mockOrderRepo) Get(_ context.Context, id int64) (*Order, error) {
	if id != 100 {
		return nil, ErrNotFound
	}
	return &Order{ID: 100}, nil
}

// --- Helpers ---

func newProductRepo(ids ...int64) *mockProductRepo {
	byID := make(map[int64]product.Product, len(ids))
	for _, id := range ids {
		byID[id] = product.Product{ID: id, Name: "p", Price: decimal.NewFromInt(1)}
	}
	return &mockProductRepo{byID: byID}
}

func newSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: map[int64]*session.Session{
		1: {ID: 1, Status: session.StatusOpen},
		2: {ID: 2, Status: session.StatusClosed},
	}}
}

func validDraft() Draft {
	return Draft{
		SessionID:   1,
		TotalAmount: decimal.RequireFromString("27.50"),
		Items: []DraftItem{
			{ProductID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
			{ProductID: 2, Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
		},
		Payments: []Payment{{Method: PaymentCash, Amount: decimal.RequireFromString("27.50")}},
	}
}

// --- Tests ---

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *Draft)
		wantErr error
		wantAs  any
	}{
		{name: "valid", mutate: func(*Draft) {}},
		{name: "no items", mutate: func(d *Draft) { d.Items = nil }, wantErr: ErrEmptyItems},
		{name: "no payments", mutate: func(d *Draft) { d.Payments = nil }, wantErr: ErrNoPayments},
		{name: "negative total", mutate: func(d *Draft) { d.TotalAmount = decimal.NewFromInt(-1) }, wantErr: ErrNegativeTotal},
		{
			name:    "payment short of total",
			mutate:  func(d *Draft) { d.Payments[0].Amount = decimal.NewFromInt(20) },
			wantErr: ErrPaymentsMismatch,
		},
		{
			name:   "zero quantity",
			mutate: func(d *Draft) { d.Items[1].Quantity = 0 },
			wantAs: new(*InvalidQuantityError),
		},
		{
			name:   "unknown method",
			mutate: func(d *Draft) { d.Payments[0].Method = "cheque" },
			wantAs: new(*InvalidPaymentMethodError),
		},
		{
			name: "zero total settles with zero payment",
			mutate: func(d *Draft) {
				d.TotalAmount = decimal.Zero
				d.Payments[0].Amount = decimal.Zero
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)
			err := Validate(d)

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.wantAs != nil:
				require.ErrorAs(t, err, tt.wantAs)
			default:
				require.NoError(t, err)
			}
		})
	}
}

func TestPlace_Success(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := NewService(newProductRepo(1, 2), newSessionStore(), orders)

	o, err := svc.Place(context.Background(), validDraft())

	require.NoError(t, err)
	assert.Equal(t, int64(100), o.ID)
	require.NotNil(t, orders.lastDraft)
	assert.Equal(t, StatusCompleted, orders.lastDraft.Status, "empty status defaults to completed")
}

func TestPlace_ClosedSession(t *testing.T) {
	svc := NewService(newProductRepo(1, 2), newSessionStore(), &mockOrderRepo{})
	d := validDraft()
	d.SessionID = 2

	_, err := svc.Place(context.Background(), d)
	require.ErrorIs(t, err, ErrSessionNotOpen)
}

func TestPlace_UnknownSession(t *testing.T) {
	svc := NewService(newProductRepo(1, 2), newSessionStore(), &mockOrderRepo{})
	d := validDraft()
	d.SessionID = 9

	_, err := svc.Place(context.Background(), d)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestPlace_ProductNotFound(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := NewService(newProductRepo(1), newSessionStore(), orders)

	_, err := svc.Place(context.Background(), validDraft())

	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, int64(2), pnfErr.ProductID)
	assert.Nil(t, orders.lastDraft, "nothing is persisted")
}

func TestPlace_RepositoryError(t *testing.T) {
	svc := NewService(newProductRepo(1, 2), newSessionStore(), &mockOrderRepo{err: errors.New("db down")})

	_, err := svc.Place(context.Background(), validDraft())
	require.ErrorContains(t, err, "create order")
}

func TestPlace_ProductLookupError(t *testing.T) {
	products := newProductRepo(1, 2)
	products.getErr = errors.New("timeout")
	svc := NewService(products, newSessionStore(), &mockOrderRepo{})

	_, err := svc.Place(context.Background(), validDraft())
	require.ErrorContains(t, err, "get products")
}

func TestGet(t *testing.T) {
	svc := NewService(newProductRepo(), newSessionStore(), &mockOrderRepo{})

	o, err := svc.Get(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), o.ID)

	_, err = svc.Get(context.Background(), 1)
	require.ErrorIs(t, err, ErrNotFound)
}
