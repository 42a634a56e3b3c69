package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/rivulet-sh/rivulet/tx"
)

// DBTX is the subset of database/sql operations used by the repository.
// Both *sql.DB and *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var _ tx.Tx = (*Tx)(nil)

// Tx adapts *sql.Tx to the tx.Tx interface.
type Tx struct {
	*sql.Tx
}

func (t *Tx) Commit(_ context.Context) error { return t.Tx.Commit() }

func (t *Tx) Rollback(_ context.Context) error { return t.Tx.Rollback() }

// MigrateDatabase applies all up migrations from the provided filesystem to
// the database.
func MigrateDatabase(db *sql.DB, migrations embed.FS) error {
	sd, err := iofs.New(migrations, ".")
	if err != nil {
		return err
	}
	defer sd.Close()

	driver, err := migratesqlite.WithInstance(db, new(migratesqlite.Config))
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", sd, "sqlite", driver)
	if err != nil {
		return err
	}

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
