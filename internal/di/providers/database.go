package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/walletapp/wallet-core/internal/config"
	"github.com/walletapp/wallet-core/internal/logger"
	"github.com/walletapp/wallet-core/internal/settings"
	"github.com/walletapp/wallet-core/internal/store/sqlite"
)

// ProvideDatabase provides the database manager, opened and migrated.
// The manager implements do.ShutdownerWithError, so the container closes it.
func ProvideDatabase(i do.Injector) (*sqlite.Manager, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Database.DataPath, dataDirPerm); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	manager := sqlite.NewManager(sqlite.Options{
		Path:        filepath.Join(cfg.Database.DataPath, sqlite.DatabaseFileName),
		BusyTimeout: cfg.Database.BusyTimeout,
	}, log.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	if _, err := manager.Initialize(ctx); err != nil {
		return nil, err
	}

	return manager, nil
}

// ProvideCardRepository provides the card repository over the managed database.
func ProvideCardRepository(i do.Injector) (*sqlite.CardRepository, error) {
	manager := do.MustInvoke[*sqlite.Manager](i)
	return sqlite.NewCardRepository(manager), nil
}

// ProvideSettings provides the app settings store.
func ProvideSettings(i do.Injector) (*settings.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	opts := settings.Options{InMemory: cfg.Settings.InMemory}
	if !opts.InMemory {
		opts.Path = cfg.SettingsPath()
		if err := os.MkdirAll(opts.Path, dataDirPerm); err != nil {
			return nil, fmt.Errorf("create settings directory: %w", err)
		}
	}

	return settings.Open(opts, log.Logger)
}
