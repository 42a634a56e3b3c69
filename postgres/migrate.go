package postgres

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

type migrateOptions struct {
	version *uint
}

type MigrateOption func(opts *migrateOptions)

// WithVersion migrates the database to a specific migration version instead
// of the latest.
func WithVersion(version uint) MigrateOption {
	return func(opts *migrateOptions) {
		opts.version = &version
	}
}

// MigrateDatabase applies the embedded SQL migrations to the database.
func MigrateDatabase(pool *pgxpool.Pool, migrations embed.FS, opts ...MigrateOption) error {
	var mopts migrateOptions
	for _, opt := range opts {
		opt(&mopts)
	}

	sd, err := iofs.New(migrations, ".")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	defer sd.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	driver, err := migratepgx.WithInstance(db, new(migratepgx.Config))
	if err != nil {
		return err
	}
	defer driver.Close()

	m, err := migrate.NewWithInstance("iofs", sd, "postgres", driver)
	if err != nil {
		return err
	}

	if mopts.version != nil {
		err = m.Migrate(*mopts.version)
	} else {
		err = m.Up()
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}
