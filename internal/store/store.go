package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/notebook/internal/errs"
	"github.com/roach88/notebook/internal/serde"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial experiments table
// 1 - Added index on experiments.name
const currentSchemaVersion = 1

// busyTimeoutMillis is applied by the driver on every new connection, before
// any pragma runs, so concurrent openers wait instead of failing.
const busyTimeoutMillis = 5000

// SQLStore persists experiment records in a SQLite database.
type SQLStore struct {
	db    *sql.DB
	uri   string
	codec *serde.Codec
}

// OpenSQL creates or opens the database named by uri and ensures the
// experiments table exists. A nil codec means serde.Default().
//
// Accepted forms:
//   - sqlite:///relative/path.db
//   - sqlite:////absolute/path.db
//   - sqlite:///:memory: (or sqlite://)
//   - a bare file path
//
// This function is idempotent - safe to call multiple times.
func OpenSQL(uri string, codec *serde.Codec) (*SQLStore, error) {
	if codec == nil {
		codec = serde.Default()
	}

	path, err := sqlitePath(uri)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", withBusyTimeout(path))
	if err != nil {
		return nil, errs.Wrap(errs.Storage, "open database", err)
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.Storage, "connect to database", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	// This also keeps a :memory: database alive for the life of the handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.Storage, "apply pragmas", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.Storage, "apply schema", err)
	}

	return &SQLStore{db: db, uri: uri, codec: codec}, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// URI returns the connection string the store was opened with.
func (s *SQLStore) URI() string {
	return s.uri
}

// sqlitePath turns a connection string into a path the driver accepts.
func sqlitePath(uri string) (string, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		if uri == "" {
			return "", errs.New(errs.Storage, "open database", "empty connection string")
		}
		return uri, nil
	}

	// dialect+driver, e.g. sqlite+pysqlite
	dialect, _, _ := strings.Cut(strings.ToLower(scheme), "+")
	if dialect != "sqlite" && dialect != "sqlite3" {
		return "", errs.New(errs.Storage, "open database", "unsupported dialect %q", dialect)
	}

	// The host part is always empty; one slash separates it from the path.
	path := strings.TrimPrefix(rest, "/")
	if path == "" || strings.HasPrefix(path, "?") {
		path = ":memory:" + path
	}
	return path, nil
}

func withBusyTimeout(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_busy_timeout=%d", path, sep, busyTimeoutMillis)
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMillis),
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version >= currentSchemaVersion {
		return nil
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 indexes experiments by name for per-test lookups.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_experiments_name
		ON experiments(name)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *SQLStore) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
