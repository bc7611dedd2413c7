package memory

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mshelf/internal/gateway"
	"github.com/xxxsen/mshelf/internal/model"
	appErr "github.com/xxxsen/mshelf/internal/pkg/errors"
)

func TestTable_InsertSelectOrder(t *testing.T) {
	ctx := context.Background()
	clock := int64(1000)
	table := NewTable[model.Note]([]string{"title", "content"}, WithClock(func() int64 {
		clock++
		return clock
	}))

	first, err := table.Insert(ctx, model.Note{UserID: "u1", Title: "first"})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.Equal(t, int64(1001), first.Ctime)
	_, err = table.Insert(ctx, model.Note{UserID: "u1", Title: "second"})
	require.NoError(t, err)
	_, err = table.Insert(ctx, model.Note{UserID: "u2", Title: "other owner"})
	require.NoError(t, err)

	items, err := table.Select(ctx, "u1", gateway.OrderByCtimeDesc)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "second", items[0].Title)
	require.Equal(t, "first", items[1].Title)

	asc, err := table.Select(ctx, "u1", gateway.OrderByCtimeAsc)
	require.NoError(t, err)
	require.Equal(t, "first", asc[0].Title)
}

func TestTable_SameCtimeKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	table := NewTable[model.Todo]([]string{"completed"}, WithClock(func() int64 { return 5 }))
	for _, text := range []string{"a", "b", "c"} {
		_, err := table.Insert(ctx, model.Todo{UserID: "u1", Text: text})
		require.NoError(t, err)
	}
	items, err := table.Select(ctx, "u1", "")
	require.NoError(t, err)
	require.Equal(t, "c", items[0].Text)
	require.Equal(t, "a", items[2].Text)
}

func TestTable_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	table := NewTable[model.Todo]([]string{"completed"})
	row, err := table.Insert(ctx, model.Todo{UserID: "u1", Text: "task"})
	require.NoError(t, err)

	require.NoError(t, table.Update(ctx, "u1", row.ID, gateway.Patch{"completed": true}))
	require.ErrorIs(t, table.Update(ctx, "u1", row.ID, gateway.Patch{"text": "x"}), appErr.ErrInvalid)
	require.ErrorIs(t, table.Update(ctx, "u2", row.ID, gateway.Patch{"completed": true}), appErr.ErrNotFound)

	items, err := table.Select(ctx, "u1", "")
	require.NoError(t, err)
	require.True(t, items[0].Completed)
	require.Equal(t, row.Ctime, items[0].Ctime)

	require.ErrorIs(t, table.Delete(ctx, "u2", row.ID), appErr.ErrNotFound)
	require.NoError(t, table.Delete(ctx, "u1", row.ID))
	require.Equal(t, 0, table.Len())
}

func TestTable_UniqueAndFaults(t *testing.T) {
	ctx := context.Background()
	table := NewTable[model.FileAsset](nil, WithUnique("storage_path"))
	_, err := table.Insert(ctx, model.FileAsset{UserID: "u1", StoragePath: "u1/a"})
	require.NoError(t, err)
	_, err = table.Insert(ctx, model.FileAsset{UserID: "u1", StoragePath: "u1/a"})
	require.ErrorIs(t, err, appErr.ErrConflict)

	boom := errors.New("boom")
	table.Fail(OpSelect, boom)
	_, err = table.Select(ctx, "u1", "")
	require.ErrorIs(t, err, boom)
	table.Heal(OpSelect)
	_, err = table.Select(ctx, "u1", "")
	require.NoError(t, err)
	require.Equal(t, 2, table.Calls(OpSelect))
}

func TestObjectStore(t *testing.T) {
	ctx := context.Background()
	store := NewObjectStore("https://cdn/")
	path, err := store.Put(ctx, "u1/x.png", bytes.NewReader([]byte("png")), 3, "image/png")
	require.NoError(t, err)
	require.True(t, store.Exists(path))

	signed, err := store.SignedURL(ctx, path, time.Hour)
	require.NoError(t, err)
	require.Equal(t, "memory://signed/u1/x.png?expires=3600", signed)

	public, err := store.PublicURL(ctx, path)
	require.NoError(t, err)
	require.Equal(t, "https://cdn/u1/x.png", public)

	require.NoError(t, store.Remove(ctx, path))
	require.False(t, store.Exists(path))
	_, err = store.SignedURL(ctx, path, time.Hour)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	private := NewObjectStore("")
	_, err = private.PublicURL(ctx, "u1/x.png")
	require.ErrorIs(t, err, appErr.ErrForbidden)
}
