// Package backend is the REST client for the order service consumed by the
// register: catalog, coupons, customers, loyalty settings, sessions and orders.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/kart-pos/internal/wire"
	"github.com/xenking/kart-pos/pkg/httpmiddleware"
)

// RegisterHeader names the register a session request is made for.
const RegisterHeader = "X-Register-ID"

// IdempotencyHeader carries the checkout attempt key on order creation.
const IdempotencyHeader = "Idempotency-Key"

const maxBodySize = 8 << 20

// StatusError is returned when the order service answers with a non-2xx
// status. Err, when set, is the domain error the status was mapped to.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
	Err     error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithRegisterID sets the register the client opens sessions for.
func WithRegisterID(id string) Option {
	return func(c *Client) { c.registerID = id }
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithTelemetry instruments outgoing requests with the given providers.
func WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(c *Client) {
		c.http.Transport = otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithMeterProvider(mp),
		)
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client talks to the order service.
type Client struct {
	baseURL    string
	token      string
	registerID string
	http       *http.Client
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping checks that the service answers at all. Any HTTP response counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", http.NoBody)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "ping backend")
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

type request struct {
	method string
	path   string
	body   []byte
	header http.Header
}

func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	var body io.Reader = http.NoBody
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	for k, v := range r.header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.registerID != "" {
		req.Header.Set(RegisterHeader, c.registerID)
	}
	if id := httpmiddleware.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(httpmiddleware.RequestIDHeader, id)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", r.method, r.path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s %s", r.method, r.path)
	}

	zctx.From(ctx).Debug("Backend call",
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := wire.DecodeError(data)
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return nil, &StatusError{
			Method:  r.method,
			Path:    r.path,
			Code:    resp.StatusCode,
			Message: msg,
		}
	}
	return data, nil
}

// mapStatus attaches a domain error to a StatusError with the given code.
func mapStatus(err error, code int, target error) error {
	var se *StatusError
	if errors.As(err, &se) && se.Code == code {
		se.Err = target
	}
	return err
}
