package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations brings the ledger schema at dbPath up to date. It uses its own
// connection because closing the migrate instance closes the database too.
func RunMigrations(dbPath string) error {
	m, err := newMigrate(dbPath)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", err)
	}
	slog.Debug("Ledger schema ready", "version", version, "dirty", dirty)
	return nil
}

func newMigrate(dbPath string) (*migrate.Migrate, error) {
	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open migration database: %w", err)
	}

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		migrateDB.Close()
		return nil, fmt.Errorf("create sqlite driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		migrateDB.Close()
		return nil, fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		migrateDB.Close()
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}
