// Package storetest holds the behavioural suite every persistence.Store
// backend must pass.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/event-roster/internal/persistence"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) persistence.Store

// Run exercises the Store contract against the backend produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("get missing document", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(context.Background(), "userdetails", "111")
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("put replaces every field", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		require.NoError(t, store.Put(ctx, "userdetails", "111", persistence.Document{"Name": "Ann", "Category": "Gold"}))
		require.NoError(t, store.Put(ctx, "userdetails", "111", persistence.Document{"Name": "Ann B"}))

		doc, err := store.Get(ctx, "userdetails", "111")
		require.NoError(t, err)
		assert.Equal(t, persistence.Document{"Name": "Ann B"}, doc)
	})

	t.Run("keys with a path separator are rejected", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		err := store.Put(ctx, "userdetails", "12/34", persistence.Document{"Name": "Ann"})
		assert.ErrorIs(t, err, persistence.ErrInvalidKey)
		err = store.Merge(ctx, "userdetails", "12/34", persistence.Document{"Name": "Ann"})
		assert.ErrorIs(t, err, persistence.ErrInvalidKey)

		_, err = store.Get(ctx, "userdetails", "12")
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("numbers come back as float64", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		require.NoError(t, store.Put(ctx, "userdetails", "222", persistence.Document{"Mobile no": 222}))
		doc, err := store.Get(ctx, "userdetails", "222")
		require.NoError(t, err)
		assert.Equal(t, float64(222), doc["Mobile no"])
	})

	t.Run("merge keeps untouched fields", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		coll := persistence.RegistrationCollection("event-1")

		require.NoError(t, store.Merge(ctx, coll, "111", persistence.Document{"phoneNumber": "111", "registeredAt": "a"}))
		require.NoError(t, store.Append(ctx, coll, "111", "feedback", map[string]any{"custom": "hello"}))
		require.NoError(t, store.Merge(ctx, coll, "111", persistence.Document{"registeredAt": "b"}))

		doc, err := store.Get(ctx, coll, "111")
		require.NoError(t, err)
		assert.Equal(t, "111", doc["phoneNumber"])
		assert.Equal(t, "b", doc["registeredAt"])
		assert.Len(t, doc["feedback"], 1)
	})

	t.Run("append requires existing document", func(t *testing.T) {
		store := newStore(t)
		err := store.Append(context.Background(), "monthlymeet/e/registeredUsers", "999", "feedback", map[string]any{"custom": "x"})
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("append preserves order", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		coll := persistence.RegistrationCollection("event-1")

		require.NoError(t, store.Merge(ctx, coll, "111", persistence.Document{"phoneNumber": "111"}))
		for _, remark := range []string{"first", "second", "third"} {
			require.NoError(t, store.Append(ctx, coll, "111", "feedback", map[string]any{"custom": remark}))
		}

		doc, err := store.Get(ctx, coll, "111")
		require.NoError(t, err)
		items, ok := doc["feedback"].([]any)
		require.True(t, ok, "feedback should decode as []any, got %T", doc["feedback"])
		require.Len(t, items, 3)
		assert.Equal(t, "first", items[0].(map[string]any)["custom"])
		assert.Equal(t, "third", items[2].(map[string]any)["custom"])
	})

	t.Run("concurrent appends are not lost", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		coll := persistence.RegistrationCollection("event-1")
		require.NoError(t, store.Merge(ctx, coll, "111", persistence.Document{"phoneNumber": "111"}))

		const writers = 8
		var wg sync.WaitGroup
		errs := make([]error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = store.Append(ctx, coll, "111", "feedback", map[string]any{"custom": "x"})
			}(i)
		}
		wg.Wait()
		for _, err := range errs {
			require.NoError(t, err)
		}

		doc, err := store.Get(ctx, coll, "111")
		require.NoError(t, err)
		assert.Len(t, doc["feedback"], writers)
	})

	t.Run("delete", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		require.NoError(t, store.Put(ctx, "monthlymeet", "e1", persistence.Document{"name": "Meet"}))
		require.NoError(t, store.Delete(ctx, "monthlymeet", "e1"))

		_, err := store.Get(ctx, "monthlymeet", "e1")
		assert.ErrorIs(t, err, persistence.ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, "monthlymeet", "e1"), persistence.ErrNotFound)
	})

	t.Run("list is scoped to one collection and ordered by key", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		require.NoError(t, store.Put(ctx, "monthlymeet", "b", persistence.Document{"name": "B"}))
		require.NoError(t, store.Put(ctx, "monthlymeet", "a", persistence.Document{"name": "A"}))
		require.NoError(t, store.Merge(ctx, persistence.RegistrationCollection("a"), "111", persistence.Document{"phoneNumber": "111"}))

		snapshots, err := store.List(ctx, "monthlymeet")
		require.NoError(t, err)
		require.Len(t, snapshots, 2)
		assert.Equal(t, "a", snapshots[0].Key)
		assert.Equal(t, "b", snapshots[1].Key)

		empty, err := store.List(ctx, persistence.RegistrationCollection("missing"))
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("returned documents are copies", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		require.NoError(t, store.Put(ctx, "userdetails", "111", persistence.Document{"Name": "Ann"}))
		doc, err := store.Get(ctx, "userdetails", "111")
		require.NoError(t, err)
		doc["Name"] = "changed"

		again, err := store.Get(ctx, "userdetails", "111")
		require.NoError(t, err)
		assert.Equal(t, "Ann", again["Name"])
	})

	t.Run("cancelled context", func(t *testing.T) {
		store := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := store.Put(ctx, "userdetails", "111", persistence.Document{"Name": "Ann"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled), "unexpected error: %v", err)
	})
}
