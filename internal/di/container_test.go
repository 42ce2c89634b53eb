package di

import (
	"context"
	"testing"
	"time"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletapp/wallet-core/internal/config"
	"github.com/walletapp/wallet-core/internal/service"
	"github.com/walletapp/wallet-core/internal/settings"
	"github.com/walletapp/wallet-core/internal/store/sqlite"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App:      config.AppConfig{Environment: "production"},
		Logger:   config.LoggerConfig{Level: "error"},
		Database: config.DatabaseConfig{DataPath: t.TempDir(), BusyTimeout: time.Second},
		Settings: config.SettingsConfig{InMemory: true},
	}
}

func TestBootstrap(t *testing.T) {
	injector := NewContainer(testConfig(t))
	t.Cleanup(func() { _ = injector.Shutdown() }) //nolint:errcheck // Test cleanup

	require.NoError(t, Bootstrap(injector))

	manager := do.MustInvoke[*sqlite.Manager](injector)
	assert.Equal(t, sqlite.StateReady, manager.State())

	store := do.MustInvoke[*settings.Store](injector)
	first, ok, err := store.Get(settings.KeyFirstLaunchAt)
	require.NoError(t, err)
	require.True(t, ok)

	// A second bootstrap keeps the original stamp.
	require.NoError(t, recordFirstLaunch(store, nil))
	again, _, err := store.Get(settings.KeyFirstLaunchAt)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	svc := do.MustInvoke[*service.CardService](injector)
	n, err := svc.CountCards(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBootstrap_SchemaTooNew(t *testing.T) {
	cfg := testConfig(t)

	// Leave a database behind that a newer build migrated.
	first := NewContainer(cfg)
	require.NoError(t, Bootstrap(first))
	db, err := do.MustInvoke[*sqlite.Manager](first).Get()
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	_ = first.Shutdown() //nolint:errcheck // Test cleanup

	second := NewContainer(cfg)
	t.Cleanup(func() { _ = second.Shutdown() }) //nolint:errcheck // Test cleanup

	assert.Error(t, Bootstrap(second))
}
