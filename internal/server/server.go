// Package server exposes the order service resources consumed by registers.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pos/internal/domain/coupon"
	"github.com/xenking/kart-pos/internal/domain/customer"
	"github.com/xenking/kart-pos/internal/domain/loyalty"
	"github.com/xenking/kart-pos/internal/domain/order"
	"github.com/xenking/kart-pos/internal/domain/product"
	"github.com/xenking/kart-pos/internal/domain/session"
)

// RegisterHeader selects the register a session request applies to.
const RegisterHeader = "X-Register-ID"

// IdempotencyHeader carries the checkout attempt key on order creation.
const IdempotencyHeader = "Idempotency-Key"

// Sessions stores register sessions.
type Sessions interface {
	Active(ctx context.Context, registerID string) (*session.Session, error)
	Open(ctx context.Context, registerID string, openingCash decimal.Decimal) (*session.Session, bool, error)
	Close(ctx context.Context, id int64, closingCash decimal.Decimal) (*session.Session, error)
}

// Orders places and reads orders.
type Orders interface {
	Place(ctx context.Context, d order.Draft) (*order.Order, error)
	Get(ctx context.Context, id int64) (*order.Order, error)
}

// Deps holds the stores behind the API.
type Deps struct {
	Products  product.Repository
	Coupons   coupon.Repository
	Customers customer.Repository
	Loyalty   loyalty.Repository
	Sessions  Sessions
	Orders    Orders
	// Auth guards every route when set.
	Auth *Authenticator
}

// Config holds non-dependency settings.
type Config struct {
	// DefaultRegister is used when a request carries no register header.
	DefaultRegister string
}

// Server implements the order service HTTP API.
type Server struct {
	deps            Deps
	defaultRegister string
}

// New creates a Server.
func New(cfg Config, deps Deps) *Server {
	if cfg.DefaultRegister == "" {
		cfg.DefaultRegister = "default"
	}
	return &Server{deps: deps, defaultRegister: cfg.DefaultRegister}
}

// Routes returns the API router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	if s.deps.Auth != nil {
		r.Use(s.deps.Auth.Middleware)
	}

	r.Get("/products", s.listProducts)
	r.Get("/coupons", s.listCoupons)
	r.Get("/loyalty/settings", s.loyaltySettings)

	r.Route("/crm/customers", func(r chi.Router) {
		r.Get("/", s.listCustomers)
		r.Post("/", s.createCustomer)
	})

	r.Route("/pos", func(r chi.Router) {
		r.Get("/sessions/active", s.activeSession)
		r.Post("/sessions", s.openSession)
		r.Post("/sessions/{id}/close", s.closeSession)
		r.Post("/orders", s.createOrder)
		r.Get("/orders/{id}", s.getOrder)
	})

	return r
}

func (s *Server) registerID(r *http.Request) string {
	if id := r.Header.Get(RegisterHeader); id != "" {
		return id
	}
	return s.defaultRegister
}
