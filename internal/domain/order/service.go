package order

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pos/internal/domain/product"
	"github.com/xenking/kart-pos/internal/domain/session"
)

// Sentinel errors for draft validation.
var (
	ErrEmptyItems       = fmt.Errorf("items required")
	ErrNoPayments       = fmt.Errorf("at least one payment required")
	ErrNegativeTotal    = fmt.Errorf("total amount must not be negative")
	ErrSessionNotOpen   = fmt.Errorf("session is not open")
	ErrPaymentsMismatch = fmt.Errorf("payments do not add up to the total amount")
)

// ProductNotFoundError indicates a submitted product does not exist.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %d", e.ProductID)
}

// InvalidPaymentMethodError indicates an unknown payment method.
type InvalidPaymentMethodError struct {
	Method PaymentMethod
}

func (e *InvalidPaymentMethodError) Error() string {
	return fmt.Sprintf("invalid payment method %q", e.Method)
}

// SessionStore looks up sessions by id.
type SessionStore interface {
	Get(ctx context.Context, id int64) (*session.Session, error)
}

// Service validates and records orders on the order service side.
type Service struct {
	products product.Repository
	sessions SessionStore
	orders   Repository
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	sessions SessionStore,
	orders Repository,
) *Service {
	return &Service{
		products: products,
		sessions: sessions,
		orders:   orders,
	}
}

// Validate checks the shape of a draft without touching storage.
func Validate(d Draft) error {
	if len(d.Items) == 0 {
		return ErrEmptyItems
	}
	for _, item := range d.Items {
		if item.Quantity <= 0 {
			return &InvalidQuantityError{ProductID: item.ProductID}
		}
	}
	if d.TotalAmount.IsNegative() {
		return ErrNegativeTotal
	}
	if len(d.Payments) == 0 {
		return ErrNoPayments
	}

	paid := decimal.Zero
	for _, p := range d.Payments {
		if !p.Method.Valid() {
			return &InvalidPaymentMethodError{Method: p.Method}
		}
		paid = paid.Add(p.Amount)
	}
	if !paid.Round(2).Equal(d.TotalAmount.Round(2)) {
		return ErrPaymentsMismatch
	}
	return nil
}

// Place validates a draft, verifies the session is open and every product
// exists, then persists the order.
func (s *Service) Place(ctx context.Context, d Draft) (*Order, error) {
	if err := Validate(d); err != nil {
		return nil, err
	}
	if d.Status == "" {
		d.Status = StatusCompleted
	}

	sess, err := s.sessions.Get(ctx, d.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if !sess.IsOpen() {
		return nil, ErrSessionNotOpen
	}

	ids := make([]int64, len(d.Items))
	for i, item := range d.Items {
		ids[i] = item.ProductID
	}

	// Batch fetch all products in a single query.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	known := make(map[int64]struct{}, len(fetched))
	for _, p := range fetched {
		known[p.ID] = struct{}{}
	}
	for _, item := range d.Items {
		if _, ok := known[item.ProductID]; !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
	}

	o, err := s.orders.Create(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return o, nil
}

// Get returns an order for receipt display.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.orders.Get(ctx, id)
}
