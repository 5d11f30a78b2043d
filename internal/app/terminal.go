package app

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/kart-pos/internal/backend"
	"github.com/xenking/kart-pos/internal/cache"
	"github.com/xenking/kart-pos/internal/handler"
	"github.com/xenking/kart-pos/internal/register"
	"github.com/xenking/kart-pos/pkg/health"
)

// RunTerminal serves the register API until ctx is done.
func RunTerminal(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *TerminalConfig) error {
	tp, mp := m.TracerProvider(), m.MeterProvider()
	client := newBackendClient(cfg, tp, mp)

	hc := health.New()
	hc.AddReadinessCheck("order-service", 2*time.Second, health.PingCheck("order-service", client))

	var rc cache.ReferenceCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()

		redisCache := cache.NewRedisCache(rdb, cfg.Redis.TTL)
		hc.AddReadinessCheck("redis", time.Second, health.PingCheck("redis", redisCache))
		rc = redisCache
		lg.Info("Reference cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL))
	}

	reg, err := newRegister(cfg, client, rc, tp, mp)
	if err != nil {
		return err
	}

	// The terminal comes up with an empty catalog when the order service is
	// down; the cashier can refresh once it is back.
	if err := reg.Load(ctx); err != nil {
		lg.Warn("Initial reference load failed", zap.Error(err))
	}

	return serve(ctx, lg, m, service{
		name:         "pos-terminal",
		addr:         cfg.Addr,
		api:          handler.New(reg).Routes(),
		health:       hc,
		rateLimit:    cfg.RateLimit,
		cors:         cfg.CORS,
		allowHeaders: []string{"Content-Type"},
		graceful:     cfg.Graceful,
	})
}

func newBackendClient(cfg *TerminalConfig, tp trace.TracerProvider, mp metric.MeterProvider) *backend.Client {
	return backend.New(cfg.Backend.URL,
		backend.WithToken(cfg.Backend.Token),
		backend.WithRegisterID(cfg.RegisterID),
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithTelemetry(tp, mp),
	)
}

// newRegister assembles a register on top of the order service client.
// Snapshots are shared under the backend URL, so terminals of one store
// reuse each other's fetches.
func newRegister(
	cfg *TerminalConfig,
	client *backend.Client,
	rc cache.ReferenceCache,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (*register.Register, error) {
	taxRate, err := cfg.taxRate()
	if err != nil {
		return nil, err
	}

	refs := register.NewReferences(client, rc, cfg.Backend.URL)
	reg, err := register.New(taxRate, register.Deps{
		References: refs,
		Customers:  client,
		Sessions:   client.Sessions(),
		Orders:     client.Orders(),
	}, tp, mp)
	if err != nil {
		return nil, errors.Wrap(err, "create register")
	}
	return reg, nil
}
