package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) add(d time.Duration) { c.t = c.t.Add(d) }

func limited(cfg RateLimitConfig, c *fakeClock) http.Handler {
	l := newLimiter(cfg)
	l.now = c.now
	return rateLimit(cfg, l)(okHandler())
}

func hit(h http.Handler, remote string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.RemoteAddr = remote
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_Budget(t *testing.T) {
	clock := newFakeClock()
	h := limited(RateLimitConfig{Max: 3, Window: time.Minute}, clock)

	for i, want := range []string{"2", "1", "0"} {
		w := hit(h, "10.0.0.1:1000", nil)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, want, w.Header().Get("X-RateLimit-Remaining"))
	}

	w := hit(h, "10.0.0.1:1000", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, http.StatusTooManyRequests, body.Code)
	assert.Equal(t, "rate limit exceeded", body.Message)

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.2:1000", nil).Code, "other clients keep their budget")
}

func TestRateLimit_SlidingWindow(t *testing.T) {
	clock := newFakeClock()
	h := limited(RateLimitConfig{Max: 4, Window: time.Minute}, clock)

	for range 4 {
		require.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", nil).Code)
	}

	tests := []struct {
		name    string
		advance time.Duration
		want    int
	}{
		// A quarter into the next window 3 of the previous 4 still count.
		{name: "early next window", advance: 75 * time.Second, want: http.StatusOK},
		{name: "budget spent again", advance: 0, want: http.StatusTooManyRequests},
		// Halfway, the previous window weighs 2 plus 1 current.
		{name: "halfway", advance: 15 * time.Second, want: http.StatusOK},
		{name: "halfway full", advance: 0, want: http.StatusTooManyRequests},
		{name: "idle two windows", advance: 3 * time.Minute, want: http.StatusOK},
	}
	for _, tt := range tests {
		clock.add(tt.advance)
		assert.Equal(t, tt.want, hit(h, "10.0.0.1:1", nil).Code, tt.name)
	}
}

func TestRateLimit_Evict(t *testing.T) {
	clock := newFakeClock()
	cfg := RateLimitConfig{Max: 1, Window: time.Minute}
	l := newLimiter(cfg)
	l.now = clock.now
	h := rateLimit(cfg, l)(okHandler())

	hit(h, "10.0.0.1:1", nil)
	hit(h, "10.0.0.2:1", nil)
	clock.add(90 * time.Second)
	hit(h, "10.0.0.2:1", nil)
	clock.add(45 * time.Second)

	l.evict()
	assert.NotContains(t, l.keys, "10.0.0.1")
	assert.Contains(t, l.keys, "10.0.0.2")
}

func TestRateLimit_Skip(t *testing.T) {
	h := limited(RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		Skip:   SkipPaths("/livez", "/readyz"),
	}, newFakeClock())

	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
	assert.Equal(t, http.StatusOK, hit(h, "192.0.2.1:1", nil).Code, "probes did not spend the budget")
}

func TestRateLimit_HeaderKey(t *testing.T) {
	h := limited(RateLimitConfig{
		Max:     1,
		Window:  time.Minute,
		KeyFunc: HeaderKey("X-Register-ID"),
	}, newFakeClock())

	tests := []struct {
		name     string
		register string
		want     int
	}{
		{name: "first register", register: "front", want: http.StatusOK},
		{name: "first register again", register: "front", want: http.StatusTooManyRequests},
		{name: "second register same ip", register: "back", want: http.StatusOK},
		{name: "no header uses ip", register: "", want: http.StatusOK},
		{name: "no header again", register: "", want: http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		header := map[string]string{}
		if tt.register != "" {
			header["X-Register-ID"] = tt.register
		}
		assert.Equal(t, tt.want, hit(h, "10.1.1.1:4000", header).Code, tt.name)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		header map[string]string
		want   string
	}{
		{name: "remote addr", remote: "192.0.2.7:5000", want: "192.0.2.7"},
		{name: "remote without port", remote: "192.0.2.7", want: "192.0.2.7"},
		{name: "forwarded list", remote: "10.0.0.1:1", header: map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}, want: "203.0.113.50"},
		{name: "real ip", remote: "10.0.0.1:1", header: map[string]string{"X-Real-IP": "198.51.100.4"}, want: "198.51.100.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}
