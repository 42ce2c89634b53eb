// Package providers contains dependency injection providers for the wallet.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/walletapp/wallet-core/internal/config"
	"github.com/walletapp/wallet-core/internal/logger"
)

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Debug("Starting wallet",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Database.DataPath,
	)

	return log, nil
}
