package kpisight

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	// SQLite driver using pure Go implementation
	_ "modernc.org/sqlite"
)

// SQLiteBaselineConfig configures the SQLite baseline store.
type SQLiteBaselineConfig struct {
	// Path to the SQLite database file
	Path string

	// JournalMode sets the SQLite journal mode (WAL, DELETE, TRUNCATE, etc.)
	JournalMode string

	// BusyTimeout is the timeout for acquiring locks in milliseconds
	BusyTimeout int

	// MaxConnections is the max number of database connections
	MaxConnections int
}

// DefaultSQLiteBaselineConfig returns default configuration.
func DefaultSQLiteBaselineConfig() SQLiteBaselineConfig {
	return SQLiteBaselineConfig{
		Path:           "kpisight.db",
		JournalMode:    "WAL",
		BusyTimeout:    5000,
		MaxConnections: 4,
	}
}

// SQLiteBaselineStore implements BaselineStore on SQLite, so baselines
// survive process restarts and stay inspectable with standard SQLite tools.
type SQLiteBaselineStore struct {
	db     *sql.DB
	config SQLiteBaselineConfig
	mu     sync.RWMutex
	closed bool

	insertStmt *sql.Stmt
	selectStmt *sql.Stmt
}

// NewSQLiteBaselineStore opens or creates the baseline database.
func NewSQLiteBaselineStore(config SQLiteBaselineConfig) (*SQLiteBaselineStore, error) {
	if config.Path == "" {
		config.Path = "kpisight.db"
	}
	if config.JournalMode == "" {
		config.JournalMode = "WAL"
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5000
	}
	if config.MaxConnections <= 0 {
		config.MaxConnections = 4
	}

	dsn := fmt.Sprintf("%s?_journal_mode=%s&_busy_timeout=%d",
		config.Path, config.JournalMode, config.BusyTimeout)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxConnections)
	db.SetMaxIdleConns(config.MaxConnections / 2)

	store := &SQLiteBaselineStore{
		db:     db,
		config: config,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return store, nil
}

func (s *SQLiteBaselineStore) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS baselines (
			key TEXT PRIMARY KEY,
			mean REAL NOT NULL,
			std REAL NOT NULL,
			count INTEGER NOT NULL,
			min REAL NOT NULL,
			max REAL NOT NULL,
			captured_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_baselines_captured ON baselines(captured_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *SQLiteBaselineStore) prepareStatements() error {
	var err error

	s.insertStmt, err = s.db.Prepare(`
		INSERT OR REPLACE INTO baselines (key, mean, std, count, min, max, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	s.selectStmt, err = s.db.Prepare(`
		SELECT mean, std, count, min, max, captured_at FROM baselines WHERE key = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare select statement: %w", err)
	}

	return nil
}

// Store writes a baseline summary, replacing any prior summary for the key.
func (s *SQLiteBaselineStore) Store(ctx context.Context, key string, summary BaselineSummary) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return errors.New("baseline store is closed")
	}
	s.mu.RUnlock()

	_, err := s.insertStmt.ExecContext(ctx, key,
		summary.Mean, summary.Std, summary.Count, summary.Min, summary.Max, summary.CapturedAt)
	if err != nil {
		return fmt.Errorf("failed to store baseline: %w", err)
	}
	return nil
}

// Retrieve reads the summary stored under the key. A missing key is reported
// through the boolean, not as an error.
func (s *SQLiteBaselineStore) Retrieve(ctx context.Context, key string) (BaselineSummary, bool, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return BaselineSummary{}, false, errors.New("baseline store is closed")
	}
	s.mu.RUnlock()

	var summary BaselineSummary
	err := s.selectStmt.QueryRowContext(ctx, key).Scan(
		&summary.Mean, &summary.Std, &summary.Count, &summary.Min, &summary.Max, &summary.CapturedAt)
	if err == sql.ErrNoRows {
		return BaselineSummary{}, false, nil
	}
	if err != nil {
		return BaselineSummary{}, false, fmt.Errorf("failed to retrieve baseline: %w", err)
	}
	return summary, true, nil
}

// Keys returns all baseline keys matching a prefix, in key order.
func (s *SQLiteBaselineStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, errors.New("baseline store is closed")
	}
	s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM baselines WHERE key LIKE ? ORDER BY key`, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list baselines: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close releases the prepared statements and the database handle.
func (s *SQLiteBaselineStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.insertStmt != nil {
		s.insertStmt.Close()
	}
	if s.selectStmt != nil {
		s.selectStmt.Close()
	}

	return s.db.Close()
}
