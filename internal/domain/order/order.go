package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pos/internal/domain/customer"
)

// PaymentMethod is how an order was settled. Values are upper case on the wire.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "CASH"
	PaymentCard PaymentMethod = "CARD"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentCard
}

// Status is the order status recorded by the order service.
type Status string

// StatusCompleted marks a settled order.
const StatusCompleted Status = "COMPLETED"

// ErrNotFound is returned when an order id does not exist.
var ErrNotFound = errors.New("order not found")

// Draft is the payload submitted to create an order.
type Draft struct {
	SessionID   int64
	CustomerID  *int64
	TotalAmount decimal.Decimal
	Status      Status
	Items       []DraftItem
	Payments    []Payment
	// IdempotencyKey identifies one checkout attempt. Resubmitting a draft
	// with the same key returns the order created by the first submission.
	IdempotencyKey string
}

// DraftItem is one submitted line with the price captured in the cart.
type DraftItem struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// Payment records the settled amount. For cash this is the order total, not
// the amount tendered.
type Payment struct {
	Method PaymentMethod
	Amount decimal.Decimal
}

// Order is a persisted order as returned for receipts.
type Order struct {
	ID          int64
	SessionID   int64
	CustomerID  *int64
	Customer    *customer.Customer
	TotalAmount decimal.Decimal
	Status      Status
	Items       []Line
	Payments    []Payment
	CreatedAt   time.Time
}

// Line is a receipt line.
type Line struct {
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, d Draft) (*Order, error)
	Get(ctx context.Context, id int64) (*Order, error)
}
