package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryService_UpsertReplacesRecord(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	directory := newMemDirectory()
	svc := NewDirectoryService(directory, DefaultColumnMapping())

	_, err := svc.Upsert(ctx, "111", map[string]any{"Name": "Asha", "City": "Pune"})
	require.NoError(t, err)

	record, err := svc.Upsert(ctx, "111", map[string]any{"Name": "Asha R"})
	require.NoError(t, err)
	assert.Equal(t, "Asha R", record.Name)

	got, err := svc.Get(ctx, "111")
	require.NoError(t, err)
	assert.NotContains(t, got.Attributes, "City")
}

func TestDirectoryService_UpsertRequiresPhone(t *testing.T) {
	t.Parallel()

	svc := NewDirectoryService(newMemDirectory(), DefaultColumnMapping())
	_, err := svc.Upsert(context.Background(), " ", map[string]any{"Name": "x"})

	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestDirectoryService_ListAndDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	directory := newMemDirectory()
	directory.entries["333"] = map[string]any{"Name": "carol", "Category": "Gold"}
	directory.entries["111"] = map[string]any{"Name": "Bala", "Category": "Silver"}
	directory.entries["222"] = map[string]any{"Name": "asha", "Category": "Gold"}
	svc := NewDirectoryService(directory, DefaultColumnMapping())

	all, err := svc.List(ctx, DirectoryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"asha", "Bala", "carol"}, []string{all[0].Name, all[1].Name, all[2].Name})

	gold, err := svc.List(ctx, DirectoryFilter{Category: "GOLD"})
	require.NoError(t, err)
	assert.Len(t, gold, 2)

	require.NoError(t, svc.Delete(ctx, "222"))
	_, err = svc.Get(ctx, "222")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "222"), ErrNotFound)
}
