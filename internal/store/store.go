package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const currentVersion = 4

type Store struct {
	db  *sql.DB
	hub *hub
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Configure pragmas.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, hub: newHub()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// changed wakes every live query after a committed write.
func (s *Store) changed() {
	s.hub.broadcast()
}

// dataVersion reports SQLite's data_version, which moves when another
// connection commits.
func (s *Store) dataVersion() (int64, error) {
	var v int64
	err := s.db.QueryRow("PRAGMA data_version").Scan(&v)
	return v, err
}

func (s *Store) migrate() error {
	return s.migrateTo(currentVersion)
}

// migrateTo applies each pending step in its own transaction together with
// its user_version bump, so a failed step leaves the earlier ones recorded.
func (s *Store) migrateTo(target int) error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	steps := []func(*sql.Tx) error{migrateV1, migrateV2, migrateV3, migrateV4}
	for i := version; i < target; i++ {
		if err := s.migrateStep(i+1, steps[i]); err != nil {
			return fmt.Errorf("migrate to v%d: %w", i+1, err)
		}
	}
	return nil
}

func (s *Store) migrateStep(version int, step func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := step(tx); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return err
	}
	return tx.Commit()
}

func migrateV1(tx *sql.Tx) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS item_configuration (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		name          TEXT NOT NULL DEFAULT '',
		tracking_type TEXT NOT NULL DEFAULT 'ONE_TO_TEN',
		active        INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS item (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		date          TEXT NOT NULL,
		configuration INTEGER NOT NULL REFERENCES item_configuration(id) ON DELETE CASCADE,
		value         INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_item_configuration ON item(configuration);
	CREATE INDEX IF NOT EXISTS idx_item_date          ON item(date);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := tx.Exec(ddl)
	return err
}

func migrateV2(tx *sql.Tx) error {
	_, err := tx.Exec(`ALTER TABLE item ADD COLUMN comment TEXT`)
	return err
}

func migrateV3(tx *sql.Tx) error {
	// The trigger only fires when an UPDATE leaves last_modified untouched,
	// so explicit writes of the column win.
	const ddl = `
	ALTER TABLE item_configuration ADD COLUMN order_override INTEGER;
	ALTER TABLE item_configuration ADD COLUMN last_modified TEXT NOT NULL DEFAULT '1970-01-01T00:00:00.000Z';
	UPDATE item_configuration SET last_modified = strftime('%Y-%m-%dT%H:%M:%fZ','now');

	CREATE TRIGGER IF NOT EXISTS item_configuration_last_modified
	AFTER UPDATE ON item_configuration
	FOR EACH ROW WHEN NEW.last_modified = OLD.last_modified
	BEGIN
		UPDATE item_configuration
		SET last_modified = strftime('%Y-%m-%dT%H:%M:%fZ','now')
		WHERE id = NEW.id;
	END;
	`
	_, err := tx.Exec(ddl)
	return err
}

func migrateV4(tx *sql.Tx) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS work (
		id             TEXT PRIMARY KEY,
		token          TEXT NOT NULL,
		next_run       TEXT NOT NULL,
		period_seconds INTEGER NOT NULL,
		attempts       INTEGER NOT NULL DEFAULT 0,
		registered_at  TEXT NOT NULL
	);
	`
	_, err := tx.Exec(ddl)
	return err
}

// DefaultDBPath returns ~/.config/daytracker/daytracker.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "daytracker", "daytracker.db"), nil
}
