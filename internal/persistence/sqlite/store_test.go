package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/event-roster/internal/persistence"
	"github.com/example/event-roster/internal/persistence/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "roster.db")
	store, err := Open(dsn)
	require.NoError(t, err, "failed to open store")
	t.Cleanup(func() {
		_ = store.Close()
	})

	require.NoError(t, store.Migrate(context.Background()), "failed to migrate")
	return store
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) persistence.Store {
		return newTestStore(t)
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Migrate(ctx))

	var count int
	require.NoError(t, store.pool.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestDocumentsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "roster.db")

	store, err := Open(dsn)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Put(ctx, persistence.DirectoryCollection, "111", persistence.Document{"Name": "Ann"}))
	require.NoError(t, store.Close())

	reopened, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	require.NoError(t, reopened.Migrate(ctx))

	doc, err := reopened.Get(ctx, persistence.DirectoryCollection, "111")
	require.NoError(t, err)
	assert.Equal(t, "Ann", doc["Name"])
}

func TestErrorMapper(t *testing.T) {
	var mapper ErrorMapper

	assert.Nil(t, mapper.MapError(nil))
	assert.ErrorIs(t, mapper.MapError(persistence.ErrNotFound), persistence.ErrNotFound)
	assert.False(t, isRetryableError(mapper.MapError(assert.AnError)))
}
