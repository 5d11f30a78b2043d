// Package handler exposes a register over HTTP for the terminal UI.
package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/xenking/kart-pos/internal/register"
)

// Handler serves the terminal API of one register.
type Handler struct {
	reg *register.Register
}

// New creates a Handler for reg.
func New(reg *register.Register) *Handler {
	return &Handler{reg: reg}
}

// Routes returns the terminal API mounted under /api.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/products", h.listProducts)
			r.Get("/categories", h.listCategories)
			r.Post("/refresh", h.refresh)
		})

		r.Get("/customers", h.listCustomers)
		r.Post("/customers", h.createCustomer)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.getCart)
			r.Delete("/", h.clearCart)
			r.Post("/items", h.addItem)
			r.Patch("/items/{productID}", h.updateQuantity)
			r.Delete("/items/{productID}", h.removeItem)
			r.Put("/discount", h.setDiscount)
			r.Put("/customer", h.selectCustomer)
			r.Post("/coupon", h.applyCoupon)
			r.Delete("/coupon", h.removeCoupon)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", h.getCheckout)
			r.Delete("/", h.resetCheckout)
			r.Post("/method", h.selectMethod)
			r.Put("/tender", h.tender)
			r.Post("/submit", h.submit)
		})

		r.Get("/orders/{id}", h.getOrder)

		r.Get("/session", h.getSession)
		r.Post("/session/close", h.closeSession)
	})

	return r
}
