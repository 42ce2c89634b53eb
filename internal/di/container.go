// Package di provides dependency injection configuration for the wallet.
package di

import (
	"time"

	"github.com/samber/do/v2"

	"github.com/walletapp/wallet-core/internal/config"
	"github.com/walletapp/wallet-core/internal/di/providers"
	"github.com/walletapp/wallet-core/internal/domain"
	"github.com/walletapp/wallet-core/internal/logger"
	"github.com/walletapp/wallet-core/internal/service"
	"github.com/walletapp/wallet-core/internal/settings"
	"github.com/walletapp/wallet-core/internal/store/sqlite"
)

// NewContainer creates and configures the DI container with all providers.
// cfg is loaded by the caller because flag parsing also yields the command.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideDatabase)
	do.Provide(injector, providers.ProvideCardRepository)
	do.Provide(injector, providers.ProvideSettings)

	// Business services
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideCardService)

	return injector
}

// Bootstrap initializes all services. Opening the database here means a
// broken or too-new database fails the process before any command runs.
func Bootstrap(injector *do.RootScope) error {
	log := do.MustInvoke[*logger.Logger](injector)

	if _, err := do.Invoke[*sqlite.Manager](injector); err != nil {
		return err
	}
	store, err := do.Invoke[*settings.Store](injector)
	if err != nil {
		return err
	}
	_ = do.MustInvoke[*service.CardService](injector)

	return recordFirstLaunch(store, log)
}

// recordFirstLaunch stamps the first launch time once.
func recordFirstLaunch(store *settings.Store, log *logger.Logger) error {
	_, ok, err := store.Get(settings.KeyFirstLaunchAt)
	if err != nil || ok {
		return err
	}

	now := domain.Timestamp(time.Now())
	if err := store.Set(settings.KeyFirstLaunchAt, now); err != nil {
		return err
	}
	log.Info("First launch recorded", "at", now)
	return nil
}
