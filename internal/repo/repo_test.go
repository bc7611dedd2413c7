package repo

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mshelf/internal/config"
	"github.com/xxxsen/mshelf/internal/db"
	"github.com/xxxsen/mshelf/internal/gateway"
	"github.com/xxxsen/mshelf/internal/model"
	appErr "github.com/xxxsen/mshelf/internal/pkg/errors"
	"github.com/xxxsen/mshelf/internal/pkg/idgen"
)

func TestTable_RejectsBeforeQuerying(t *testing.T) {
	ctx := context.Background()
	notes := NewNoteRepo(nil)
	_, err := notes.Select(ctx, "u1", "title asc")
	require.ErrorIs(t, err, appErr.ErrInvalid)

	err = notes.Update(ctx, "u1", "id", gateway.Patch{"user_id": "u2"})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = notes.Insert(ctx, model.Note{Title: "no owner"})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	files := NewFileRepo(nil)
	err = files.Update(ctx, "u1", "id", gateway.Patch{"filename": "x"})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	todos := NewTodoRepo(nil)
	err = todos.Update(ctx, "u1", "id", gateway.Patch{"text": "x"})
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("TEST_DB_PORT"))
	if port == 0 {
		port = 5432
	}
	conn, err := db.Open(config.DatabaseConfig{
		Host:     host,
		Port:     port,
		User:     os.Getenv("TEST_DB_USER"),
		Password: os.Getenv("TEST_DB_PASSWORD"),
		DBName:   os.Getenv("TEST_DB_NAME"),
	})
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations(conn))
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestNoteRepo_Postgres(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	owner := "test-" + idgen.NewID()
	repo := NewNoteRepo(conn)

	first, err := repo.Insert(ctx, model.Note{UserID: owner, Title: "first"})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.NotZero(t, first.Ctime)
	second, err := repo.Insert(ctx, model.Note{UserID: owner, Title: "second", Content: "body"})
	require.NoError(t, err)

	items, err := repo.Select(ctx, owner, gateway.OrderByCtimeDesc)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, second.ID, items[0].ID)

	require.NoError(t, repo.Update(ctx, owner, first.ID, gateway.Patch{"title": "renamed"}))
	require.ErrorIs(t, repo.Update(ctx, "someone-else", first.ID, gateway.Patch{"title": "x"}), appErr.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, owner, first.ID))
	require.NoError(t, repo.Delete(ctx, owner, second.ID))
	require.ErrorIs(t, repo.Delete(ctx, owner, second.ID), appErr.ErrNotFound)
}

func TestFileRepo_Postgres(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	owner := "test-" + idgen.NewID()
	repo := NewFileRepo(conn)

	asset := model.FileAsset{UserID: owner, Filename: "a.pdf", MimeType: "application/pdf", Size: 3, StoragePath: owner + "/1_a.pdf"}
	created, err := repo.Insert(ctx, asset)
	require.NoError(t, err)
	_, err = repo.Insert(ctx, asset)
	require.ErrorIs(t, err, appErr.ErrConflict)

	page, err := repo.ListAfter(ctx, "", 0)
	require.NoError(t, err)
	found := false
	for _, item := range page {
		if item.ID == created.ID {
			found = true
		}
	}
	require.True(t, found)
	require.NoError(t, repo.Delete(ctx, owner, created.ID))
}
