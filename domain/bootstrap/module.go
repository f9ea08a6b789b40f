package bootstrap

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/config"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/logger"
)

// Module seeds the cluster when the application starts
var Module = fx.Module("bootstrap",
	fx.Provide(NewSeeder),
	fx.Invoke(RegisterLifecycle),
)

// RegisterLifecycle runs the seeder on start. A store that is not reachable
// yet is logged rather than failing startup; health reports it.
func RegisterLifecycle(lc fx.Lifecycle, seeder *Seeder, cfg *config.Config, log *slog.Logger) {
	if !cfg.Bootstrap.Enabled {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := seeder.Seed(ctx); err != nil {
				log.Error("bootstrap failed", logger.Error(err))
			}
			return nil
		},
	})
}
