package customer

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested customer does not exist.
var ErrNotFound = errors.New("customer not found")

// Customer is a directory entry with its loyalty point balance. The balance
// is owned by the directory; checkout never adjusts it.
type Customer struct {
	ID     int64
	Name   string
	Email  string
	Phone  string
	Points int64
}

// NewCustomer holds the fields accepted when registering a customer at the till.
type NewCustomer struct {
	Name  string
	Email string
	Phone string
}

// Repository provides access to the customer directory.
type Repository interface {
	List(ctx context.Context) ([]Customer, error)
	Create(ctx context.Context, c NewCustomer) (*Customer, error)
}
