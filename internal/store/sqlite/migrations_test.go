package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openRawDB opens a database without running any migration.
func openRawDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "raw.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func schemaObjects(t *testing.T, db *sql.DB) map[string]int {
	t.Helper()
	rows, err := db.Query(`SELECT name FROM sqlite_master
		WHERE type IN ('table', 'index') AND name NOT LIKE 'sqlite_%'`)
	require.NoError(t, err)
	defer rows.Close()

	objects := map[string]int{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		objects[name]++
	}
	require.NoError(t, rows.Err())
	return objects
}

func TestVersion_RoundTrip(t *testing.T) {
	db := openRawDB(t)
	ctx := context.Background()

	v, err := GetVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 0, v, "fresh database reports version 0")

	require.NoError(t, SetVersion(ctx, db, 7))
	v, err = GetVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	assert.Error(t, SetVersion(ctx, db, -1))
}

func TestRun_FreshInstall(t *testing.T) {
	db := openRawDB(t)
	ctx := context.Background()

	stepRan := false
	steps := []Migration{{
		Version: 1,
		Name:    "spy",
		Up: func(context.Context, *sql.Tx) error {
			stepRan = true
			return nil
		},
	}}

	m := newMigrator(steps, schemaSQL, testLogger())
	require.NoError(t, m.Run(ctx, db))

	assert.False(t, stepRan, "fresh install must not replay incremental steps")

	v, err := GetVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	objects := schemaObjects(t, db)
	for _, name := range []string{
		"loyalty_cards",
		"idx_loyalty_cards_created_at",
		"idx_loyalty_cards_usage",
		"idx_loyalty_cards_is_favorite",
	} {
		assert.Equal(t, 1, objects[name], name)
	}

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM loyalty_cards`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestRun_TwiceIsNoop(t *testing.T) {
	db := openRawDB(t)
	ctx := context.Background()
	m := NewMigrator(testLogger())

	require.NoError(t, m.Run(ctx, db))
	before := schemaObjects(t, db)

	require.NoError(t, m.Run(ctx, db))
	after := schemaObjects(t, db)

	assert.Equal(t, before, after)
	v, err := GetVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, m.Target(), v)
}

func TestRun_UpgradeAppliesOnlyNewerSteps(t *testing.T) {
	db := openRawDB(t)
	ctx := context.Background()

	var applied []int
	step := func(version int) Migration {
		return Migration{
			Version: version,
			Name:    "step",
			Up: func(context.Context, *sql.Tx) error {
				applied = append(applied, version)
				return nil
			},
		}
	}

	require.NoError(t, SetVersion(ctx, db, 2))

	m := newMigrator([]Migration{step(1), step(2), step(3), step(4)}, schemaSQL, testLogger())
	require.NoError(t, m.Run(ctx, db))

	assert.Equal(t, []int{3, 4}, applied)
	v, err := GetVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 4, v)
}

func TestRun_UpgradeFromV1Step(t *testing.T) {
	db := openRawDB(t)
	ctx := context.Background()

	// Simulate a database created by step 1 at an older build.
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, migrateCreateLoyaltyCards(ctx, tx))
	require.NoError(t, tx.Commit())
	require.NoError(t, SetVersion(ctx, db, 1))

	addNotes := Migration{
		Version: 2,
		Name:    "add notes",
		Up: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `ALTER TABLE loyalty_cards ADD COLUMN notes TEXT`)
			return err
		},
	}
	m := newMigrator(append(append([]Migration{}, migrations...), addNotes), schemaSQL, testLogger())
	require.NoError(t, m.Run(ctx, db))

	_, err = db.Exec(`UPDATE loyalty_cards SET notes = 'x'`)
	assert.NoError(t, err, "step 2 column should exist")
}

func TestRun_FailedStepRollsBack(t *testing.T) {
	db := openRawDB(t)
	ctx := context.Background()
	require.NoError(t, SetVersion(ctx, db, 1))

	boom := stderrors.New("boom")
	steps := []Migration{
		{Version: 1, Name: "initial", Up: migrateCreateLoyaltyCards},
		{Version: 2, Name: "creates table", Up: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `CREATE TABLE partial (id TEXT)`)
			return err
		}},
		{Version: 3, Name: "fails", Up: func(context.Context, *sql.Tx) error { return boom }},
	}

	err := newMigrator(steps, schemaSQL, testLogger()).Run(ctx, db)
	require.ErrorIs(t, err, boom)

	v, err := GetVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, v, "version must not move on failure")
	assert.NotContains(t, schemaObjects(t, db), "partial")
}

func TestRun_BadSchemaIsFatal(t *testing.T) {
	db := openRawDB(t)
	ctx := context.Background()

	m := newMigrator(migrations, "CREATE TABLE oops (", testLogger())
	assert.Error(t, m.Run(ctx, db))

	v, err := GetVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 0, v)
}

func TestNewMigrator_OutOfOrderPanics(t *testing.T) {
	noop := func(context.Context, *sql.Tx) error { return nil }
	assert.Panics(t, func() {
		newMigrator([]Migration{{Version: 2, Up: noop}, {Version: 1, Up: noop}}, schemaSQL, nil)
	})
}

func TestMigrations_TargetMatchesSchema(t *testing.T) {
	assert.Equal(t, 1, NewMigrator(nil).Target())
}
