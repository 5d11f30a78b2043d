package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-pos/internal/register"
	"github.com/xenking/kart-pos/internal/wire"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products := h.reg.Products(register.ProductFilter{
		Category: q.Get("category"),
		Query:    q.Get("q"),
	})
	writeJSON(w, http.StatusOK, wire.EncodeProducts(products))
}

func (h *Handler) listCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, encodeCategories(h.reg.Categories()))
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.reg.Refresh(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	zctx.From(r.Context()).Info("Reference data refreshed",
		zap.Int("products", len(h.reg.Products(register.ProductFilter{}))),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listCustomers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, wire.EncodeCustomers(h.reg.Customers()))
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	nc, err := wire.DecodeNewCustomer(body)
	if err != nil {
		writeError(w, r, badRequest(err))
		return
	}
	nc.Name = strings.TrimSpace(nc.Name)
	if nc.Name == "" {
		writeError(w, r, badRequest(errors.New("name is required")))
		return
	}

	c, err := h.reg.CreateCustomer(r.Context(), nc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wire.EncodeCustomer(c))
}

func (h *Handler) getCart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, encodeCart(h.reg.Cart()))
}

// respondCart answers a cart edit with the updated cart.
func (h *Handler) respondCart(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeCart(h.reg.Cart()))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.respondCart(w, r, h.reg.Clear())
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var productID int64
	if err := decodeObject(body, func(d *jx.Decoder, key string) error {
		if key != "product_id" {
			return d.Skip()
		}
		var err error
		productID, err = d.Int64()
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}
	if productID == 0 {
		writeError(w, r, badRequest(errors.New("product_id is required")))
		return
	}
	h.respondCart(w, r, h.reg.AddItem(productID))
}

func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := int64Param(r, "productID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var delta int
	if err := decodeObject(body, func(d *jx.Decoder, key string) error {
		if key != "delta" {
			return d.Skip()
		}
		var err error
		delta, err = d.Int()
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}
	h.respondCart(w, r, h.reg.UpdateQuantity(productID, delta))
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	productID, err := int64Param(r, "productID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondCart(w, r, h.reg.RemoveItem(productID))
}

func (h *Handler) setDiscount(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := wire.DecodeCashAmount(body, "amount")
	if err != nil {
		writeError(w, r, badRequest(err))
		return
	}
	h.respondCart(w, r, h.reg.SetManualDiscount(amount))
}

func (h *Handler) selectCustomer(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var id *int64
	if err := decodeObject(body, func(d *jx.Decoder, key string) error {
		if key != "customer_id" {
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		v, err := d.Int64()
		if err != nil {
			return err
		}
		id = &v
		return nil
	}); err != nil {
		writeError(w, r, err)
		return
	}
	h.respondCart(w, r, h.reg.SelectCustomer(id))
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var code string
	if err := decodeObject(body, func(d *jx.Decoder, key string) error {
		if key != "code" {
			return d.Skip()
		}
		var err error
		code, err = d.Str()
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}
	if code == "" {
		writeError(w, r, badRequest(errors.New("code is required")))
		return
	}
	h.respondCart(w, r, h.reg.ApplyCoupon(code))
}

func (h *Handler) removeCoupon(w http.ResponseWriter, r *http.Request) {
	h.respondCart(w, r, h.reg.RemoveCoupon())
}
