package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-pos/internal/domain/order"
	"github.com/xenking/kart-pos/internal/wire"
)

func (h *Handler) respondCheckout(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeCheckout(h.reg.Checkout().Quote(), h.reg.Cart()))
}

func (h *Handler) getCheckout(w http.ResponseWriter, r *http.Request) {
	h.respondCheckout(w, r, nil)
}

func (h *Handler) resetCheckout(w http.ResponseWriter, r *http.Request) {
	h.respondCheckout(w, r, h.reg.Checkout().Reset())
}

func (h *Handler) selectMethod(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var method string
	if err := decodeObject(body, func(d *jx.Decoder, key string) error {
		if key != "method" {
			return d.Skip()
		}
		var err error
		method, err = d.Str()
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}
	m := order.PaymentMethod(strings.ToUpper(strings.TrimSpace(method)))
	h.respondCheckout(w, r, h.reg.Checkout().SelectMethod(m))
}

func (h *Handler) tender(w http.ResponseWriter, r *http.Request) {
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
	h.respondCheckout(w, r, h.reg.Checkout().Tender(amount))
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	o, err := h.reg.Checkout().Submit(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wire.EncodeOrder(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.reg.Order(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.EncodeOrder(o))
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.reg.Session(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.EncodeSession(s))
}

func (h *Handler) closeSession(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cash, err := wire.DecodeCashAmount(body, "closing_cash")
	if err != nil {
		writeError(w, r, badRequest(err))
		return
	}
	s, err := h.reg.CloseSession(r.Context(), cash)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.EncodeSession(s))
}
