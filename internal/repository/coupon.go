package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-pos/internal/domain/coupon"
)

const (
	couponColumns = `id, code, type, value, min_purchase, expiry_date, is_active`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY code`

	listCouponCodesSQL = `SELECT code FROM coupons`

	upsertCouponSQL = `INSERT INTO coupons (code, type, value, min_purchase, expiry_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO UPDATE SET
			type = EXCLUDED.type,
			value = EXCLUDED.value,
			min_purchase = EXCLUDED.min_purchase,
			expiry_date = EXCLUDED.expiry_date,
			is_active = EXCLUDED.is_active`
)

var couponCopyColumns = []string{"code", "type", "value", "min_purchase", "expiry_date", "is_active"}

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// List returns every coupon, active or not. Codes are matched by the register.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// Codes streams every stored coupon code to fn.
func (r *CouponRepository) Codes(ctx context.Context, fn func(code string)) error {
	rows, err := r.pool.Query(ctx, listCouponCodesSQL)
	if err != nil {
		return fmt.Errorf("listing coupon codes: %w", err)
	}
	var code string
	_, err = pgx.ForEachRow(rows, []any{&code}, func() error {
		fn(code)
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning coupon codes: %w", err)
	}
	return nil
}

// Upsert inserts a coupon or replaces the one with the same code.
func (r *CouponRepository) Upsert(ctx context.Context, c coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, upsertCouponSQL,
		c.Code, string(c.Kind), c.Value, c.MinPurchase, c.ExpiryDate, c.Active,
	)
	if err != nil {
		return fmt.Errorf("upserting coupon %q: %w", c.Code, err)
	}
	return nil
}

// CopyNew bulk-inserts coupons whose codes are not stored yet. A code that
// already exists fails the whole batch.
func (r *CouponRepository) CopyNew(ctx context.Context, coupons []coupon.Coupon) (int64, error) {
	n, err := r.pool.CopyFrom(ctx, pgx.Identifier{"coupons"}, couponCopyColumns,
		pgx.CopyFromSlice(len(coupons), func(i int) ([]any, error) {
			c := coupons[i]
			return []any{c.Code, string(c.Kind), c.Value, c.MinPurchase, c.ExpiryDate, c.Active}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copying %d coupons: %w", len(coupons), err)
	}
	return n, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c      coupon.Coupon
		kind   string
		expiry *time.Time
	)
	err := row.Scan(&c.ID, &c.Code, &kind, &c.Value, &c.MinPurchase, &expiry, &c.Active)
	c.Kind = coupon.Kind(kind)
	c.ExpiryDate = expiry
	return c, err
}
