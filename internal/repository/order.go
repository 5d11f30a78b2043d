package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-pos/internal/domain/customer"
	"github.com/xenking/kart-pos/internal/domain/order"
)

const (
	orderIDByKeySQL = `SELECT id FROM pos_orders WHERE idempotency_key = $1`

	insertOrderSQL = `INSERT INTO pos_orders (session_id, customer_id, total_amount, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id`

	getOrderSQL = `SELECT o.id, o.session_id, o.customer_id, o.total_amount, o.status, o.created_at,
			c.id, c.name, c.email, c.phone, c.points
		FROM pos_orders o
		LEFT JOIN customers c ON c.id = o.customer_id
		WHERE o.id = $1`

	getOrderItemsSQL = `SELECT i.product_id, p.name, i.quantity, i.unit_price, i.unit_price * i.quantity
		FROM pos_order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = $1
		ORDER BY i.id`

	getOrderPaymentsSQL = `SELECT method, amount FROM pos_payments WHERE order_id = $1 ORDER BY id`
)

var (
	orderItemColumns    = []string{"order_id", "product_id", "quantity", "unit_price"}
	orderPaymentColumns = []string{"order_id", "method", "amount"}
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order with its items and payments in one transaction.
// A draft whose idempotency key was already used resolves to the stored order.
func (r *OrderRepository) Create(ctx context.Context, d order.Draft) (*order.Order, error) {
	key := nullIfEmpty(d.IdempotencyKey)
	if key != nil {
		if id, ok, err := r.idByKey(ctx, *key); err != nil {
			return nil, err
		} else if ok {
			return r.Get(ctx, id)
		}
	}

	var id int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insertOrderSQL,
			d.SessionID, d.CustomerID, d.TotalAmount, string(d.Status), key,
		).Scan(&id)
		if err != nil {
			return err
		}

		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"pos_order_items"}, orderItemColumns,
			pgx.CopyFromSlice(len(d.Items), func(i int) ([]any, error) {
				it := d.Items[i]
				return []any{id, it.ProductID, it.Quantity, it.UnitPrice}, nil
			}),
		); err != nil {
			return fmt.Errorf("inserting items: %w", err)
		}

		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"pos_payments"}, orderPaymentColumns,
			pgx.CopyFromSlice(len(d.Payments), func(i int) ([]any, error) {
				p := d.Payments[i]
				return []any{id, string(p.Method), p.Amount}, nil
			}),
		); err != nil {
			return fmt.Errorf("inserting payments: %w", err)
		}
		return nil
	})
	if err != nil {
		// A concurrent request with the same key won the insert.
		if key != nil && errors.Is(err, pgx.ErrNoRows) {
			if existing, ok, lookupErr := r.idByKey(ctx, *key); lookupErr == nil && ok {
				return r.Get(ctx, existing)
			}
		}
		return nil, fmt.Errorf("creating order: %w", err)
	}

	return r.Get(ctx, id)
}

func (r *OrderRepository) idByKey(ctx context.Context, key string) (int64, bool, error) {
	var id int64
	err := r.pool.QueryRow(ctx, orderIDByKeySQL, key).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("finding order by idempotency key: %w", err)
	}
	return id, true, nil
}

// Get returns the order with its receipt lines, payments and customer.
func (r *OrderRepository) Get(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	rows, err = r.pool.Query(ctx, getOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting items of order %d: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(rows, scanOrderLine)
	if err != nil {
		return nil, fmt.Errorf("getting items of order %d: %w", id, err)
	}

	rows, err = r.pool.Query(ctx, getOrderPaymentsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting payments of order %d: %w", id, err)
	}
	o.Payments, err = pgx.CollectRows(rows, scanPayment)
	if err != nil {
		return nil, fmt.Errorf("getting payments of order %d: %w", id, err)
	}

	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o            order.Order
		status       string
		custID       *int64
		custName     *string
		email, phone *string
		points       *int64
	)
	err := row.Scan(&o.ID, &o.SessionID, &o.CustomerID, &o.TotalAmount, &status, &o.CreatedAt,
		&custID, &custName, &email, &phone, &points)
	o.Status = order.Status(status)
	if custID != nil {
		o.Customer = &customer.Customer{
			ID:    *custID,
			Name:  deref(custName),
			Email: deref(email),
			Phone: deref(phone),
		}
		if points != nil {
			o.Customer.Points = *points
		}
	}
	return o, err
}

func scanOrderLine(row pgx.CollectableRow) (order.Line, error) {
	var l order.Line
	err := row.Scan(&l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice, &l.Subtotal)
	return l, err
}

func scanPayment(row pgx.CollectableRow) (order.Payment, error) {
	var (
		p      order.Payment
		method string
	)
	err := row.Scan(&method, &p.Amount)
	p.Method = order.PaymentMethod(method)
	return p, err
}
