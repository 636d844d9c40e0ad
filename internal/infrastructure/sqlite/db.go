// Package sqlite provides the durable registry store backed by SQLite.
//
// The database is opened through the pure-Go ncruces driver with WAL
// journaling, foreign keys, and a 5s busy timeout, and its schema is managed
// by embedded golang-migrate migrations. Before migrations touch an existing
// database file, a .bak copy is written next to it.
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"trackreg/internal/log"
	"trackreg/internal/runs/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB owns the SQLite connection and hands out repositories bound to it.
type DB struct {
	conn    *sql.DB
	runs    *runRepository
	imports *importRepository
}

// NewDB opens (creating if necessary) the registry database at the given
// path and brings its schema up to date. The parent directory is created
// with 0700 permissions, and an existing database file is copied to
// <path>.bak before migrations run.
func NewDB(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	if err := backupExisting(path); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		path,
	)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := runMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	log.Debug(log.CatDB, "Database opened", "path", path)

	return &DB{
		conn:    conn,
		runs:    newRunRepository(conn),
		imports: newImportRepository(conn),
	}, nil
}

// RunRepository returns the repository for run records.
func (db *DB) RunRepository() domain.RunRepository {
	return db.runs
}

// ImportRepository returns the repository for import batch audit records.
func (db *DB) ImportRepository() domain.ImportRepository {
	return db.imports
}

// Connection returns the underlying *sql.DB.
func (db *DB) Connection() *sql.DB {
	return db.conn
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// backupExisting copies the database file to <path>.bak.
// A missing file means a fresh database; nothing is copied.
func backupExisting(path string) error {
	src, err := os.Open(path) // #nosec G304 -- path is the user-configured database location
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening database for backup: %w", err)
	}
	defer func() { _ = src.Close() }()

	backupPath := path + ".bak"
	dst, err := os.OpenFile(backupPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600) // #nosec G304
	if err != nil {
		return fmt.Errorf("creating backup file: %w", err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("writing backup file: %w", err)
	}

	log.Debug(log.CatDB, "Pre-migration backup written", "path", backupPath)
	return nil
}

// runMigrations applies all pending embedded migrations.
func runMigrations(conn *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(conn, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("preparing migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("preparing migrations: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}
