package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/walletapp/wallet-core/internal/errors"

	_ "modernc.org/sqlite"
)

// DatabaseFileName is the fixed name of the wallet database inside the data directory.
const DatabaseFileName = "wallet.db"

// defaultBusyTimeout applies when Options.BusyTimeout is zero.
const defaultBusyTimeout = 5 * time.Second

const initializeKey = "initialize"

// State is the lifecycle state of a Manager.
type State int

// Manager lifecycle states.
const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures the database file and connection.
type Options struct {
	// Path is the database file path.
	Path string
	// BusyTimeout is how long a statement waits on a locked database.
	BusyTimeout time.Duration
}

// DBProvider hands out the open database handle.
type DBProvider interface {
	Get() (*sql.DB, error)
}

type fixedDB struct {
	db *sql.DB
}

func (f fixedDB) Get() (*sql.DB, error) { return f.db, nil }

// FixedDB returns a DBProvider that always yields db.
// Useful when a caller owns the connection, e.g. in tests.
func FixedDB(db *sql.DB) DBProvider {
	return fixedDB{db: db}
}

// Manager owns the single database connection of the process.
// Initialize opens and migrates it once; concurrent callers share the
// in-flight attempt, so only one physical open ever happens.
type Manager struct {
	opts     Options
	logger   *slog.Logger
	migrator *Migrator

	openDB func(dsn string) (*sql.DB, error)
	group  singleflight.Group

	mu    sync.RWMutex
	state State
	db    *sql.DB
}

// NewManager creates an uninitialized manager. Nothing is opened until Initialize.
func NewManager(opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = defaultBusyTimeout
	}
	return &Manager{
		opts:     opts,
		logger:   logger,
		migrator: NewMigrator(logger),
		openDB: func(dsn string) (*sql.DB, error) {
			return sql.Open("sqlite", dsn)
		},
	}
}

// Initialize opens the database, applies pragmas and runs migrations.
// It returns the existing handle when already ready. On failure the
// manager goes back to uninitialized so a later call can retry.
func (m *Manager) Initialize(ctx context.Context) (*sql.DB, error) {
	if db, err := m.Get(); err == nil {
		return db, nil
	}

	// The open outlives any single caller, so it must not be canceled by one.
	v, err, shared := m.group.Do(initializeKey, func() (any, error) {
		return m.initialize(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	if shared {
		m.logger.Debug("joined in-flight database initialization")
	}
	return v.(*sql.DB), nil
}

func (m *Manager) initialize(ctx context.Context) (*sql.DB, error) {
	m.mu.Lock()
	if m.state == StateReady {
		db := m.db
		m.mu.Unlock()
		return db, nil
	}
	m.state = StateInitializing
	m.mu.Unlock()

	start := time.Now()
	db, err := m.open(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.state = StateUninitialized
		m.logger.Error("database initialization failed", "path", m.opts.Path, "error", err)
		return nil, errors.Wrap(err, errors.CodeInitFailed, "initialize database")
	}

	m.db = db
	m.state = StateReady
	m.logger.Info("database ready",
		"path", m.opts.Path,
		"schema_version", m.migrator.Target(),
		"duration", time.Since(start),
	)
	return db, nil
}

// open performs the physical open. The handle is closed on any error.
func (m *Manager) open(ctx context.Context) (*sql.DB, error) {
	db, err := m.openDB(m.dsn())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One physical connection; every pragma below is per-connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	if err := m.migrator.Run(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// dsn builds the connection string. Pragmas go through the DSN so they
// are reapplied if the pool ever replaces the connection.
func (m *Manager) dsn() string {
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", m.opts.BusyTimeout.Milliseconds()))
	q.Set("_txlock", "immediate")
	return "file:" + m.opts.Path + "?" + q.Encode()
}

// Get returns the open handle, or errors.ErrNotInitialized unless the
// manager is ready.
func (m *Manager) Get() (*sql.DB, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateReady {
		return nil, errors.ErrNotInitialized
	}
	return m.db, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Close releases the handle. The manager can be initialized again afterwards.
// It does not interrupt an initialization already in flight.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		if m.state != StateInitializing {
			m.state = StateClosed
		}
		return nil
	}

	err := m.db.Close()
	m.db = nil
	m.state = StateClosed
	m.logger.Info("database closed", "path", m.opts.Path)
	return err
}

// Shutdown implements do.ShutdownerWithError.
func (m *Manager) Shutdown() error {
	return m.Close()
}

// ResetForTesting drops the handle without closing it. Tests only.
func (m *Manager) ResetForTesting() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.group.Forget(initializeKey)
	m.db = nil
	m.state = StateUninitialized
}

// nullableString returns a sql.NullString from a *string.
func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// stringPtr converts a nullable column back to a *string.
func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// boolToInt stores booleans as 0/1.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
