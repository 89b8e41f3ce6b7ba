package database

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/ferienplan-sync/migrations"
)

// Migrate applies all pending up migrations of the driver's dialect.
func Migrate(db *sqlx.DB, driver string) (err error) {
	var (
		src    fs.FS
		dir    string
		target database.Driver
	)

	switch driver {
	case DriverPostgres:
		src, dir = migrations.Postgres, "postgres"
		target, err = postgres.WithInstance(db.DB, &postgres.Config{})
	case DriverSQLite:
		src, dir = migrations.SQLite, "sqlite"
		target, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	source, err := iofs.New(src, dir)
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driver, target)
	if err != nil {
		return fmt.Errorf("migration setup: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up: %w", err)
	}
	return nil
}
