// Package state provides SQLite-based persistence for hivemind.
// It handles both global state (~/.local/share/hivemind/hivemind.db)
// and project-local state (.hivemind/state.db).
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// DB wraps an SQLite database connection with hivemind-specific
// operations.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// GlobalDBPath returns the path to the global hivemind database.
func GlobalDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "hivemind", "hivemind.db")
}

// ProjectDBPath returns the path to the project-local database.
func ProjectDBPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".hivemind", "state.db")
}

// Open opens an SQLite database at the given path.
// It creates the parent directories if they don't exist.
// WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &DB{conn: conn, path: path}, nil
}

// OpenGlobal opens the global hivemind database.
func OpenGlobal() (*DB, error) {
	return Open(GlobalDBPath())
}

// OpenProject opens the project-local database.
func OpenProject(projectRoot string) (*DB, error) {
	return Open(ProjectDBPath(projectRoot))
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Plans},
		{2, migrationV2Proposals},
		{3, migrationV3Conflicts},
		{4, migrationV4Snapshots},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Migration SQL statements

// Plan history is append-only: every save inserts a new revision, so
// the full decision trail of a task survives rebalancing and retries.
const migrationV1Plans = `
CREATE TABLE IF NOT EXISTS plan_history (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	plan_id TEXT NOT NULL,
	task_id TEXT NOT NULL,
	strategy TEXT NOT NULL,
	status TEXT NOT NULL,
	plan_json TEXT NOT NULL,
	saved_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_plan_history_task_id ON plan_history(task_id);
CREATE INDEX IF NOT EXISTS idx_plan_history_plan_id ON plan_history(plan_id);
`

const migrationV2Proposals = `
CREATE TABLE IF NOT EXISTS proposals (
	id TEXT PRIMARY KEY,
	topic TEXT NOT NULL,
	status TEXT NOT NULL,
	required REAL NOT NULL,
	participants INTEGER NOT NULL,
	approvals REAL NOT NULL DEFAULT 0.0,
	created_at DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_proposals_status ON proposals(status);
`

const migrationV3Conflicts = `
CREATE TABLE IF NOT EXISTS conflicts (
	id TEXT PRIMARY KEY,
	task_id TEXT NOT NULL,
	issue TEXT NOT NULL,
	outcome TEXT NOT NULL,
	resolution TEXT,
	parties TEXT NOT NULL,
	satisfaction TEXT NOT NULL DEFAULT '{}',
	resolved_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conflicts_task_id ON conflicts(task_id);
`

const migrationV4Snapshots = `
CREATE TABLE IF NOT EXISTS snapshots (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	taken_at DATETIME NOT NULL,
	throughput REAL NOT NULL,
	latency_ms INTEGER NOT NULL,
	quality REAL NOT NULL,
	efficiency REAL NOT NULL,
	error_rate REAL NOT NULL
);
`
