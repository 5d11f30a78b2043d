// Command pos-terminal runs the register terminal API.
package main

import (
	"context"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/xenking/kart-pos/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := appkg.LoadTerminalConfig()
		if err != nil {
			return err
		}
		return appkg.RunTerminal(ctx, lg, m, cfg)
	})
}
