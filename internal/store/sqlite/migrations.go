package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/walletapp/wallet-core/internal/errors"
)

//go:embed schema.sql
var schemaSQL string

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Migration is one incremental schema step. Up must only touch what the
// step owns; applied steps are never edited, new ones are appended.
type Migration struct {
	Version int
	Name    string
	Up      func(ctx context.Context, tx *sql.Tx) error
}

// migrations is the ordered step list. The last Version is the target.
var migrations = []Migration{
	{Version: 1, Name: "create loyalty_cards", Up: migrateCreateLoyaltyCards},
}

func migrateCreateLoyaltyCards(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE loyalty_cards (
			id TEXT PRIMARY KEY NOT NULL,
			name TEXT NOT NULL,
			barcode TEXT NOT NULL,
			barcode_format TEXT NOT NULL,
			brand_id TEXT,
			color TEXT NOT NULL,
			is_favorite INTEGER NOT NULL DEFAULT 0,
			last_used_at TEXT,
			usage_count INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE INDEX idx_loyalty_cards_created_at ON loyalty_cards(created_at);
		CREATE INDEX idx_loyalty_cards_usage ON loyalty_cards(usage_count, last_used_at);
		CREATE INDEX idx_loyalty_cards_is_favorite ON loyalty_cards(is_favorite);`)
	return err
}

// GetVersion reads the schema version marker. A fresh database reports 0.
func GetVersion(ctx context.Context, q Querier) (int, error) {
	var version int
	if err := q.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return version, nil
}

// SetVersion persists the schema version marker.
func SetVersion(ctx context.Context, q Querier, version int) error {
	if version < 0 {
		return errors.Validationf("schema version must be >= 0, got %d", version)
	}
	// PRAGMA arguments cannot be bound, version is a checked int.
	if _, err := q.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("write user_version: %w", err)
	}
	return nil
}

// Migrator brings a database to the current schema version.
type Migrator struct {
	steps  []Migration
	schema string
	logger *slog.Logger
}

// NewMigrator creates a migrator for the wallet schema.
func NewMigrator(logger *slog.Logger) *Migrator {
	return newMigrator(migrations, schemaSQL, logger)
}

func newMigrator(steps []Migration, schema string, logger *slog.Logger) *Migrator {
	for i := 1; i < len(steps); i++ {
		if steps[i].Version <= steps[i-1].Version {
			panic(fmt.Sprintf("migration %d (%s) is out of order", steps[i].Version, steps[i].Name))
		}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Migrator{
		steps:  steps,
		schema: schema,
		logger: logger,
	}
}

// Target returns the schema version Run migrates to.
func (m *Migrator) Target() int {
	if len(m.steps) == 0 {
		return 0
	}
	return m.steps[len(m.steps)-1].Version
}

// Run migrates db to Target inside a single transaction.
// Fresh databases (version 0) get the full current schema in one batch
// and skip incremental replay. Running at the target version only
// rewrites the marker.
func (m *Migrator) Run(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	current, err := GetVersion(ctx, tx)
	if err != nil {
		return err
	}
	target := m.Target()

	switch {
	case current > target:
		return errors.ErrSchemaTooNew.WithDetails(map[string]int{
			"stored":    current,
			"supported": target,
		})

	case current == 0:
		if _, err := tx.ExecContext(ctx, m.schema); err != nil {
			return fmt.Errorf("exec schema: %w", err)
		}
		m.logger.Info("database schema created", "version", target)

	default:
		for _, step := range m.steps {
			if current >= step.Version {
				continue
			}
			m.logger.Info("applying migration",
				"version", step.Version,
				"name", step.Name,
			)
			if err := step.Up(ctx, tx); err != nil {
				return fmt.Errorf("migration %d (%s): %w", step.Version, step.Name, err)
			}
		}
	}

	if err := SetVersion(ctx, tx, target); err != nil {
		return err
	}
	return tx.Commit()
}
