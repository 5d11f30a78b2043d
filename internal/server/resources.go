package server

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-pos/internal/wire"
)

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.deps.Products.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.EncodeProducts(products))
}

func (s *Server) listCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := s.deps.Coupons.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.EncodeCoupons(coupons))
}

func (s *Server) loyaltySettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.deps.Loyalty.Settings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.EncodeLoyaltySettings(settings))
}

func (s *Server) listCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := s.deps.Customers.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.EncodeCustomers(customers))
}

func (s *Server) createCustomer(w http.ResponseWriter, r *http.Request) {
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

	c, err := s.deps.Customers.Create(r.Context(), nc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wire.EncodeCustomer(c))
}

func (s *Server) activeSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Sessions.Active(r.Context(), s.registerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.EncodeSession(sess))
}

// openSession returns 201 for a new session and 200 when the register
// already had one open.
func (s *Server) openSession(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cash, err := wire.DecodeCashAmount(body, "opening_cash")
	if err != nil {
		writeError(w, r, badRequest(err))
		return
	}
	if cash.IsNegative() {
		writeError(w, r, badRequest(errors.New("opening_cash must not be negative")))
		return
	}

	register := s.registerID(r)
	sess, created, err := s.deps.Sessions.Open(r.Context(), register, cash)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		zctx.From(r.Context()).Info("Session opened",
			zap.Int64("session_id", sess.ID),
			zap.String("register_id", register),
		)
	}
	writeJSON(w, status, wire.EncodeSession(sess))
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
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

	sess, err := s.deps.Sessions.Close(r.Context(), id, cash)
	if err != nil {
		writeError(w, r, err)
		return
	}
	zctx.From(r.Context()).Info("Session closed", zap.Int64("session_id", sess.ID))
	writeJSON(w, http.StatusOK, wire.EncodeSession(sess))
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := wire.DecodeDraft(body)
	if err != nil {
		writeError(w, r, badRequest(err))
		return
	}
	d.IdempotencyKey = r.Header.Get(IdempotencyHeader)

	o, err := s.deps.Orders.Place(r.Context(), d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	zctx.From(r.Context()).Info("Order placed",
		zap.Int64("order_id", o.ID),
		zap.Int64("session_id", o.SessionID),
		zap.String("total", o.TotalAmount.StringFixed(2)),
	)
	writeJSON(w, http.StatusCreated, wire.EncodeOrder(o))
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := s.deps.Orders.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.EncodeOrder(o))
}
