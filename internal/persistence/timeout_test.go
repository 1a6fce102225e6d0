package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/event-roster/internal/persistence"
	"github.com/example/event-roster/internal/persistence/memory"
)

type blockingStore struct {
	persistence.Store
}

func (b blockingStore) Get(ctx context.Context, _, _ string) (persistence.Document, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b blockingStore) List(ctx context.Context, _ string) ([]persistence.Snapshot, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestWithTimeout(t *testing.T) {
	t.Run("expired call maps to ErrTimeout", func(t *testing.T) {
		store := persistence.WithTimeout(blockingStore{Store: memory.New()}, 10*time.Millisecond)

		_, err := store.Get(context.Background(), "userdetails", "111")
		require.Error(t, err)
		assert.ErrorIs(t, err, persistence.ErrTimeout)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		_, err = store.List(context.Background(), "userdetails")
		assert.ErrorIs(t, err, persistence.ErrTimeout)
	})

	t.Run("caller cancellation is not a timeout", func(t *testing.T) {
		store := persistence.WithTimeout(blockingStore{Store: memory.New()}, time.Minute)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := store.Get(ctx, "userdetails", "111")
		require.Error(t, err)
		assert.False(t, errors.Is(err, persistence.ErrTimeout))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("fast calls pass through", func(t *testing.T) {
		store := persistence.WithTimeout(memory.New(), time.Second)
		ctx := context.Background()

		require.NoError(t, store.Put(ctx, "userdetails", "111", persistence.Document{"Name": "Ann"}))
		doc, err := store.Get(ctx, "userdetails", "111")
		require.NoError(t, err)
		assert.Equal(t, "Ann", doc["Name"])

		_, err = store.Get(ctx, "userdetails", "missing")
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("non-positive timeout disables the decorator", func(t *testing.T) {
		inner := memory.New()
		assert.Same(t, inner, persistence.WithTimeout(inner, 0))
	})
}
