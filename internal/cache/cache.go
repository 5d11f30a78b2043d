// Package cache shares the register reference data between terminals.
package cache

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-pos/internal/domain/coupon"
	"github.com/xenking/kart-pos/internal/domain/customer"
	"github.com/xenking/kart-pos/internal/domain/loyalty"
	"github.com/xenking/kart-pos/internal/domain/product"
)

// ErrCacheMiss is returned when no snapshot is stored under a key.
var ErrCacheMiss = errors.New("cache miss")

// Reference is the read-only data a register prices carts with.
type Reference struct {
	Products  []product.Product
	Coupons   []coupon.Coupon
	Customers []customer.Customer
	Loyalty   loyalty.Settings
	FetchedAt time.Time
}

// ReferenceCache stores reference snapshots.
type ReferenceCache interface {
	Get(ctx context.Context, key string) (*Reference, error)
	Set(ctx context.Context, key string, ref *Reference) error
	Delete(ctx context.Context, key string) error
}
