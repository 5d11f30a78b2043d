// Package app wires the terminal and order services.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-pos/pkg/health"
	"github.com/xenking/kart-pos/pkg/httpmiddleware"
)

// service is what serve needs to run one HTTP service.
type service struct {
	name         string
	addr         string
	api          http.Handler
	health       *health.Health
	rateLimit    RateLimitConfig
	rateKey      func(*http.Request) string
	cors         CORSConfig
	allowHeaders []string
	graceful     GracefulConfig
}

// serve runs s until ctx is done, then drains: readiness goes false first so
// load balancers stop routing, and in-flight requests get ShutdownTimeout.
func serve(ctx context.Context, lg *zap.Logger, m *app.Telemetry, s service) error {
	root := chi.NewRouter()
	s.health.Mount(root)
	root.Mount("/", s.api)
	routes := httpmiddleware.MakeRouteFinder(root)

	s.health.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	s.health.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second))
	s.health.Start(ctx, 10*time.Second)
	s.health.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              s.addr,
		Handler: httpmiddleware.Wrap(root,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     s.cors.Origins,
				AllowHeaders:     s.allowHeaders,
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
				AllowCredentials: s.cors.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:     s.rateLimit.Max,
				Window:  s.rateLimit.Window,
				KeyFunc: s.rateKey,
				Skip:    httpmiddleware.SkipPaths("/livez", "/readyz"),
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument(s.name, routes, m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(routes),
			httpmiddleware.Labeler(routes),
		),
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		s.health.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", s.graceful.ReadinessDelay))
		time.Sleep(s.graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", s.graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		s.health.Stop()
	}()

	lg.Info("Server listening", zap.String("service", s.name), zap.String("addr", s.addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
