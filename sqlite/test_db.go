package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivulet-sh/rivulet/catalog"
	"github.com/rivulet-sh/rivulet/sqlite/migrations"
)

func NewTestCatalogStore(t *testing.T) *catalog.Store {
	t.Helper()
	return catalog.NewStore(NewCatalogRepository(NewTestDB(t)))
}

func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	db, err := Open(ctx, WithInMemory())
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, db.Close())
	})

	err = MigrateDatabase(db, migrations.FS)
	require.NoError(t, err)
	return db
}
