package backend

import (
	"bytes"
	"context"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pos/internal/domain/coupon"
	"github.com/xenking/kart-pos/internal/domain/customer"
	"github.com/xenking/kart-pos/internal/domain/loyalty"
	"github.com/xenking/kart-pos/internal/domain/order"
	"github.com/xenking/kart-pos/internal/domain/product"
	"github.com/xenking/kart-pos/internal/domain/session"
	"github.com/xenking/kart-pos/internal/wire"
)

// Products fetches the catalog.
func (c *Client) Products(ctx context.Context) ([]product.Product, error) {
	data, err := c.do(ctx, request{method: http.MethodGet, path: "/products"})
	if err != nil {
		return nil, err
	}
	return wire.DecodeProducts(data)
}

// Coupons fetches the coupon directory.
func (c *Client) Coupons(ctx context.Context) ([]coupon.Coupon, error) {
	data, err := c.do(ctx, request{method: http.MethodGet, path: "/coupons"})
	if err != nil {
		return nil, err
	}
	return wire.DecodeCoupons(data)
}

// Customers fetches the customer directory.
func (c *Client) Customers(ctx context.Context) ([]customer.Customer, error) {
	data, err := c.do(ctx, request{method: http.MethodGet, path: "/crm/customers"})
	if err != nil {
		return nil, err
	}
	return wire.DecodeCustomers(data)
}

// CreateCustomer registers a customer.
func (c *Client) CreateCustomer(ctx context.Context, nc customer.NewCustomer) (*customer.Customer, error) {
	data, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/crm/customers",
		body:   wire.EncodeNewCustomer(nc),
	})
	if err != nil {
		return nil, err
	}
	return wire.DecodeCustomer(data)
}

// LoyaltySettings fetches the loyalty program configuration.
func (c *Client) LoyaltySettings(ctx context.Context) (loyalty.Settings, error) {
	data, err := c.do(ctx, request{method: http.MethodGet, path: "/loyalty/settings"})
	if err != nil {
		return loyalty.Settings{}, err
	}
	return wire.DecodeLoyaltySettings(data)
}

// Sessions returns the session resource as a session.Repository.
func (c *Client) Sessions() session.Repository {
	return sessionResource{c: c}
}

type sessionResource struct {
	c *Client
}

// Active returns session.ErrNoActiveSession on 404 or an empty body.
func (r sessionResource) Active(ctx context.Context) (*session.Session, error) {
	data, err := r.c.do(ctx, request{method: http.MethodGet, path: "/pos/sessions/active"})
	if err != nil {
		return nil, mapStatus(err, http.StatusNotFound, session.ErrNoActiveSession)
	}
	if t := bytes.TrimSpace(data); len(t) == 0 || bytes.Equal(t, []byte("null")) {
		return nil, session.ErrNoActiveSession
	}
	return wire.DecodeSession(data)
}

func (r sessionResource) Open(ctx context.Context, openingCash decimal.Decimal) (*session.Session, error) {
	data, err := r.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/pos/sessions",
		body:   wire.EncodeCashAmount("opening_cash", openingCash),
	})
	if err != nil {
		return nil, err
	}
	return wire.DecodeSession(data)
}

func (r sessionResource) Close(ctx context.Context, id int64, closingCash decimal.Decimal) (*session.Session, error) {
	data, err := r.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/pos/sessions/" + strconv.FormatInt(id, 10) + "/close",
		body:   wire.EncodeCashAmount("closing_cash", closingCash),
	})
	if err != nil {
		err = mapStatus(err, http.StatusNotFound, session.ErrNotFound)
		return nil, mapStatus(err, http.StatusConflict, session.ErrAlreadyClosed)
	}
	return wire.DecodeSession(data)
}

// Orders returns the order resource as an order.Repository.
func (c *Client) Orders() order.Repository {
	return orderResource{c: c}
}

type orderResource struct {
	c *Client
}

// Create posts the draft. The idempotency key, when set, travels as a header
// so a retried attempt resolves to the order created first.
func (r orderResource) Create(ctx context.Context, d order.Draft) (*order.Order, error) {
	h := http.Header{}
	if d.IdempotencyKey != "" {
		h.Set(IdempotencyHeader, d.IdempotencyKey)
	}
	data, err := r.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/pos/orders",
		body:   wire.EncodeDraft(d),
		header: h,
	})
	if err != nil {
		return nil, err
	}
	o, err := wire.DecodeOrder(data)
	if err != nil {
		return nil, err
	}
	if o.ID == 0 {
		return nil, errors.New("order service returned no order id")
	}
	return o, nil
}

func (r orderResource) Get(ctx context.Context, id int64) (*order.Order, error) {
	data, err := r.c.do(ctx, request{
		method: http.MethodGet,
		path:   "/pos/orders/" + strconv.FormatInt(id, 10),
	})
	if err != nil {
		return nil, mapStatus(err, http.StatusNotFound, order.ErrNotFound)
	}
	return wire.DecodeOrder(data)
}
