package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xenking/kart-pos/internal/domain/order"
	"github.com/xenking/kart-pos/internal/repository"
	"github.com/xenking/kart-pos/internal/server"
	"github.com/xenking/kart-pos/pkg/health"
	"github.com/xenking/kart-pos/pkg/httpmiddleware"
)

// RunBackend serves the order service API until ctx is done.
func RunBackend(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *BackendConfig) error {
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	lg.Info("Database ready")

	if cfg.APIKeyPepper == "" {
		lg.Warn("API key pepper not set, order service is unauthenticated")
	}

	hc := health.New()
	hc.AddReadinessCheck("postgres", 2*time.Second, health.PingCheck("postgres", pool))

	return serve(ctx, lg, m, service{
		name:      "pos-backend",
		addr:      cfg.Addr,
		api:       newBackendAPI(pool, cfg),
		health:    hc,
		rateLimit: cfg.RateLimit,
		rateKey:   httpmiddleware.HeaderKey(server.RegisterHeader),
		cors:      cfg.CORS,
		allowHeaders: []string{
			"Content-Type", "Authorization", "X-API-Key",
			server.RegisterHeader, server.IdempotencyHeader,
		},
		graceful: cfg.Graceful,
	})
}

// newBackendAPI builds the order service routes over pool. Requests are
// authenticated only when a pepper is configured.
func newBackendAPI(pool *pgxpool.Pool, cfg *BackendConfig) http.Handler {
	products := repository.NewProductRepository(pool)
	sessions := repository.NewSessionRepository(pool)

	deps := server.Deps{
		Products:  products,
		Coupons:   repository.NewCouponRepository(pool),
		Customers: repository.NewCustomerRepository(pool),
		Loyalty:   repository.NewLoyaltyRepository(pool),
		Sessions:  sessions,
		Orders:    order.NewService(products, sessions, repository.NewOrderRepository(pool)),
	}
	if cfg.APIKeyPepper != "" {
		deps.Auth = server.NewAuthenticator(repository.NewAPIKeyRepository(pool), []byte(cfg.APIKeyPepper))
	}
	return server.New(server.Config{DefaultRegister: cfg.RegisterID}, deps).Routes()
}
