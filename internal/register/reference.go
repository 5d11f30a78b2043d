package register

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/xenking/kart-pos/internal/cache"
	"github.com/xenking/kart-pos/internal/domain/coupon"
	"github.com/xenking/kart-pos/internal/domain/customer"
	"github.com/xenking/kart-pos/internal/domain/loyalty"
	"github.com/xenking/kart-pos/internal/domain/product"
)

// Source fetches reference data from the order service.
type Source interface {
	Products(ctx context.Context) ([]product.Product, error)
	Coupons(ctx context.Context) ([]coupon.Coupon, error)
	Customers(ctx context.Context) ([]customer.Customer, error)
	LoyaltySettings(ctx context.Context) (loyalty.Settings, error)
}

// References holds the current reference snapshot. Concurrent loads share a
// single fetch, and a failed fetch keeps the previous snapshot.
type References struct {
	src      Source
	cache    cache.ReferenceCache
	cacheKey string
	now      func() time.Time

	sfg singleflight.Group

	mu      sync.RWMutex
	current *cache.Reference
	coupons *coupon.Directory
}

// NewReferences creates an empty store. rc may be nil to disable sharing
// snapshots between terminals.
func NewReferences(src Source, rc cache.ReferenceCache, cacheKey string) *References {
	r := &References{
		src:      src,
		cache:    rc,
		cacheKey: cacheKey,
		now:      time.Now,
	}
	r.set(&cache.Reference{Loyalty: loyalty.DefaultSettings()})
	return r
}

// Load populates the snapshot, preferring a shared cached copy.
func (r *References) Load(ctx context.Context) (*cache.Reference, error) {
	return r.load(ctx, true)
}

// Refresh refetches everything from the order service and republishes it.
func (r *References) Refresh(ctx context.Context) (*cache.Reference, error) {
	return r.load(ctx, false)
}

// Current returns the snapshot in use.
func (r *References) Current() *cache.Reference {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Coupons returns the coupon directory of the current snapshot.
func (r *References) Coupons() *coupon.Directory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.coupons
}

func (r *References) load(ctx context.Context, useCache bool) (*cache.Reference, error) {
	key := "refresh"
	if useCache {
		key = "load"
	}
	v, err, shared := r.sfg.Do(key, func() (interface{}, error) {
		// Joined callers share this load, so it must not end with the first
		// caller's request.
		ctx := context.WithoutCancel(ctx)
		if useCache && r.cache != nil {
			ref, err := r.cache.Get(ctx, r.cacheKey)
			switch {
			case err == nil:
				r.set(ref)
				return ref, nil
			case !errors.Is(err, cache.ErrCacheMiss):
				zctx.From(ctx).Warn("Reference cache read failed", zap.Error(err))
			}
		}

		ref, err := r.fetch(ctx)
		if err != nil {
			return nil, err
		}
		r.set(ref)

		if r.cache != nil {
			if err := r.cache.Set(ctx, r.cacheKey, ref); err != nil {
				zctx.From(ctx).Warn("Reference cache write failed", zap.Error(err))
			}
		}
		return ref, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		zctx.From(ctx).Debug("Joined in-flight reference load")
	}
	return v.(*cache.Reference), nil
}

// fetch loads all four resources in parallel. Loyalty settings are optional:
// when they cannot be read the previous settings stay in effect.
func (r *References) fetch(ctx context.Context) (*cache.Reference, error) {
	ref := &cache.Reference{FetchedAt: r.now()}
	var loyaltyErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if ref.Products, err = r.src.Products(gctx); err != nil {
			return errors.Wrap(err, "fetch products")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if ref.Coupons, err = r.src.Coupons(gctx); err != nil {
			return errors.Wrap(err, "fetch coupons")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if ref.Customers, err = r.src.Customers(gctx); err != nil {
			return errors.Wrap(err, "fetch customers")
		}
		return nil
	})
	g.Go(func() error {
		ref.Loyalty, loyaltyErr = r.src.LoyaltySettings(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if loyaltyErr != nil {
		zctx.From(ctx).Warn("Loyalty settings unavailable, keeping previous", zap.Error(loyaltyErr))
		ref.Loyalty = r.Current().Loyalty
	}

	zctx.From(ctx).Info("Reference data loaded",
		zap.Int("products", len(ref.Products)),
		zap.Int("coupons", len(ref.Coupons)),
		zap.Int("customers", len(ref.Customers)),
	)
	return ref, nil
}

func (r *References) set(ref *cache.Reference) {
	dir := coupon.NewDirectory(ref.Coupons)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = ref
	r.coupons = dir
}

// addCustomer appends a newly created customer to the current snapshot.
func (r *References) addCustomer(c customer.Customer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := *r.current
	next.Customers = append(append([]customer.Customer(nil), r.current.Customers...), c)
	r.current = &next
}
