// Command pos-backend runs the order service registers check out against.
package main

import (
	"context"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/xenking/kart-pos/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := appkg.LoadBackendConfig()
		if err != nil {
			return err
		}
		return appkg.RunBackend(ctx, lg, m, cfg)
	})
}
