// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/recipehub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	n := timeouts.ConfigureFromEnv()
	cur := timeouts.Current()
	logger.Info("operation timeouts",
		zap.Int("overrides", n),
		zap.Duration("ping", cur.Ping),
		zap.Duration("short", cur.Short),
		zap.Duration("medium", cur.Medium),
		zap.Duration("long", cur.Long),
	)
	if len(appCfg.CORSAllowedOrigins) == 0 {
		logger.Info("CORS disabled (no allowed origins)")
	}
	return nil
}
