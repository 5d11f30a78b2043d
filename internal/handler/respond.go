package handler

import (
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-pos/internal/backend"
	"github.com/xenking/kart-pos/internal/domain/checkout"
	"github.com/xenking/kart-pos/internal/domain/coupon"
	"github.com/xenking/kart-pos/internal/domain/customer"
	"github.com/xenking/kart-pos/internal/domain/order"
	"github.com/xenking/kart-pos/internal/domain/product"
	"github.com/xenking/kart-pos/internal/domain/session"
	"github.com/xenking/kart-pos/internal/register"
	"github.com/xenking/kart-pos/internal/wire"
)

const maxRequestBody = 64 << 10

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

// decodeObject walks the fields of a JSON object body.
func decodeObject(data []byte, fn func(d *jx.Decoder, key string) error) error {
	if err := jx.DecodeBytes(data).Obj(fn); err != nil {
		return badRequest(err)
	}
	return nil
}

func int64Param(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, badRequest(errors.Errorf("invalid %s %q", name, chi.URLParam(r, name)))
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError maps register errors to HTTP statuses. Failures talking to the
// order service are reported as 502.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, "internal server error"

	var (
		submitErr *checkout.SubmitError
		statusErr *backend.StatusError
		urlErr    *url.Error
	)
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, register.ErrInvalidCash),
		errors.Is(err, checkout.ErrInvalidTender),
		errors.Is(err, checkout.ErrInvalidMethod):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, checkout.ErrSubmitInProgress),
		errors.Is(err, session.ErrAlreadyClosed):
		status, msg = http.StatusConflict, err.Error()
	case errors.As(err, &submitErr):
		status, msg = http.StatusBadGateway, err.Error()
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, customer.ErrNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrNoActiveSession):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrNoMethod),
		errors.Is(err, checkout.ErrInsufficientTender),
		errors.Is(err, checkout.ErrTenderNotAccepted):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.As(err, &statusErr), errors.As(err, &urlErr):
		status, msg = http.StatusBadGateway, err.Error()
	}

	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeJSON(w, status, wire.EncodeError(status, msg))
}
