package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-pos/internal/domain/auth"
	"github.com/xenking/kart-pos/internal/domain/customer"
	"github.com/xenking/kart-pos/internal/domain/order"
	"github.com/xenking/kart-pos/internal/domain/product"
	"github.com/xenking/kart-pos/internal/domain/session"
	"github.com/xenking/kart-pos/internal/wire"
)

const maxRequestBody = 1 << 20

// errBadRequest marks malformed input.
var errBadRequest = errors.New("bad request")

func badRequest(err error) error {
	return errors.Wrap(errBadRequest, err.Error())
}

func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return nil, badRequest(err)
	}
	return data, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, badRequest(errors.Errorf("invalid id %q", chi.URLParam(r, "id")))
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError maps domain errors to HTTP statuses. Unexpected errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, "internal server error"

	var (
		qtyErr     *order.InvalidQuantityError
		methodErr  *order.InvalidPaymentMethodError
		productErr *order.ProductNotFoundError
	)
	switch {
	case errors.Is(err, errBadRequest):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrKeyNotFound), errors.Is(err, errUnauthorized):
		status, msg = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, errForbidden):
		status, msg = http.StatusForbidden, "forbidden"
	case errors.Is(err, session.ErrNoActiveSession),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, customer.ErrNotFound),
		errors.Is(err, product.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, session.ErrAlreadyClosed):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrNoPayments),
		errors.Is(err, order.ErrNegativeTotal),
		errors.Is(err, order.ErrPaymentsMismatch),
		errors.Is(err, order.ErrSessionNotOpen),
		errors.As(err, &qtyErr),
		errors.As(err, &methodErr),
		errors.As(err, &productErr):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	default:
		zctx.From(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}

	writeJSON(w, status, wire.EncodeError(status, msg))
}
