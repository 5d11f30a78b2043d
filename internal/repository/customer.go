package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-pos/internal/domain/customer"
)

const (
	customerColumns = `id, name, email, phone, points`

	listCustomersSQL = `SELECT ` + customerColumns + ` FROM customers ORDER BY name, id`

	getCustomerSQL = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	createCustomerSQL = `INSERT INTO customers (name, email, phone, points)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + customerColumns

	// Seeding is keyed by email; customers have no natural unique key.
	createCustomerIfAbsentSQL = `INSERT INTO customers (name, email, phone, points)
		SELECT $1, $2, $3, $4
		WHERE NOT EXISTS (SELECT 1 FROM customers WHERE email = $2)`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// List returns the customer directory ordered by name.
func (r *CustomerRepository) List(ctx context.Context) ([]customer.Customer, error) {
	rows, err := r.pool.Query(ctx, listCustomersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	return pgx.CollectRows(rows, scanCustomer)
}

// Get returns a single customer.
func (r *CustomerRepository) Get(ctx context.Context, id int64) (*customer.Customer, error) {
	rows, err := r.pool.Query(ctx, getCustomerSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting customer %d: %w", id, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer %d: %w", id, err)
	}
	return &c, nil
}

// Create registers a customer with a zero point balance.
func (r *CustomerRepository) Create(ctx context.Context, nc customer.NewCustomer) (*customer.Customer, error) {
	rows, err := r.pool.Query(ctx, createCustomerSQL, nc.Name, nullIfEmpty(nc.Email), nullIfEmpty(nc.Phone), 0)
	if err != nil {
		return nil, fmt.Errorf("creating customer %q: %w", nc.Name, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		return nil, fmt.Errorf("creating customer %q: %w", nc.Name, err)
	}
	return &c, nil
}

// CreateIfAbsent inserts c unless a customer with the same email exists.
// It reports whether a row was inserted.
func (r *CustomerRepository) CreateIfAbsent(ctx context.Context, c customer.Customer) (bool, error) {
	tag, err := r.pool.Exec(ctx, createCustomerIfAbsentSQL, c.Name, nullIfEmpty(c.Email), nullIfEmpty(c.Phone), c.Points)
	if err != nil {
		return false, fmt.Errorf("seeding customer %q: %w", c.Name, err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanCustomer(row pgx.CollectableRow) (customer.Customer, error) {
	var (
		c            customer.Customer
		email, phone *string
	)
	err := row.Scan(&c.ID, &c.Name, &email, &phone, &c.Points)
	c.Email = deref(email)
	c.Phone = deref(phone)
	return c, err
}
