package organizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mshelf/internal/gateway/memory"
	"github.com/xxxsen/mshelf/internal/model"
	appErr "github.com/xxxsen/mshelf/internal/pkg/errors"
)

func TestCoordinator_CreateValidationNeverCallsGateway(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.ws.Notes.Coordinator.Create(env.ctx, NoteDraft{Title: "   ", Content: "body"})
	require.True(t, appErr.IsValidation(err))
	require.Equal(t, 0, env.notes.Calls(memory.OpInsert))
	require.Empty(t, env.notifier.Events(), "validation errors are not notified")

	_, err = env.ws.Todos.Coordinator.Create(env.ctx, TodoDraft{})
	require.True(t, appErr.IsValidation(err))
	require.Equal(t, 0, env.todos.Calls(memory.OpInsert))
}

func TestCoordinator_LinkCreation(t *testing.T) {
	env := newTestEnv(t)
	links := env.ws.Links

	_, err := links.Coordinator.Create(env.ctx, LinkDraft{URL: "https://example.com/old"})
	require.NoError(t, err)

	_, err = links.Coordinator.Create(env.ctx, LinkDraft{URL: "not-a-url"})
	require.True(t, appErr.IsValidation(err))
	require.Equal(t, 1, env.links.Calls(memory.OpInsert))

	_, err = links.Store.FetchAll(env.ctx)
	require.NoError(t, err)

	created, err := links.Coordinator.Create(env.ctx, LinkDraft{URL: " https://example.com/a ", Description: "a"})
	require.NoError(t, err)
	require.Equal(t, "https://example.com/a", created.URL)

	items, err := links.Store.FetchAll(env.ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "https://example.com/a", items[0].URL)
	require.Equal(t, 2, env.links.Calls(memory.OpSelect), "create invalidated the cached list")
}

func TestCoordinator_CreateRemoteFailureKeepsDraftAndCache(t *testing.T) {
	env := newTestEnv(t)
	notes := env.ws.Notes
	_, err := notes.Coordinator.Create(env.ctx, NoteDraft{Title: "existing"})
	require.NoError(t, err)
	_, err = notes.Store.FetchAll(env.ctx)
	require.NoError(t, err)

	require.NoError(t, notes.Session.StartNew(env.ctx))
	notes.Session.Update(func(d *NoteDraft) { d.Title = "draft title" })
	env.notes.Fail(memory.OpInsert, errors.New("503"))

	err = notes.Coordinator.Submit(env.ctx)
	require.True(t, appErr.IsRemote(err))
	snap := notes.Session.Snapshot()
	require.Equal(t, Creating, snap.State)
	require.Equal(t, "draft title", snap.Draft.Title)
	require.Len(t, env.notifier.Failures(), 1)

	items, err := notes.Store.FetchAll(env.ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 1, env.notes.Calls(memory.OpSelect), "failed create leaves the cache valid")

	env.notes.Heal(memory.OpInsert)
	require.NoError(t, notes.Coordinator.Submit(env.ctx))
	require.Equal(t, Idle, notes.Session.Snapshot().State)
}

func TestCoordinator_CreateClearsActiveSession(t *testing.T) {
	env := newTestEnv(t)
	notes := env.ws.Notes
	require.NoError(t, notes.Session.StartNew(env.ctx))
	notes.Session.Update(func(d *NoteDraft) { d.Title = "other" })

	_, err := notes.Coordinator.Create(env.ctx, NoteDraft{Title: "direct"})
	require.NoError(t, err)
	require.Equal(t, Idle, notes.Session.Snapshot().State)
}

func TestCoordinator_RequiresOwner(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.ws.Notes.Coordinator.Create(context.Background(), NoteDraft{Title: "x"})
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
	require.Equal(t, 0, env.notes.Calls(memory.OpInsert))
	require.Len(t, env.notifier.Failures(), 1)
}

func TestCoordinator_UpdateRequiresEditSession(t *testing.T) {
	env := newTestEnv(t)
	notes := env.ws.Notes
	note, err := notes.Coordinator.Create(env.ctx, NoteDraft{Title: "v1"})
	require.NoError(t, err)

	err = notes.Coordinator.Update(env.ctx, note.ID, NoteDraft{Title: "v2"})
	require.ErrorIs(t, err, appErr.ErrNotEditing)
	require.Equal(t, 0, env.notes.Calls(memory.OpUpdate))

	require.NoError(t, notes.Session.Edit(env.ctx, note))
	err = notes.Coordinator.Update(env.ctx, note.ID, NoteDraft{Title: ""})
	require.True(t, appErr.IsValidation(err))
	require.Equal(t, 0, env.notes.Calls(memory.OpUpdate))

	notes.Session.Update(func(d *NoteDraft) { d.Title = "v2" })
	require.NoError(t, notes.Coordinator.Submit(env.ctx))
	require.Equal(t, Idle, notes.Session.Snapshot().State)

	items, err := notes.Store.FetchAll(env.ctx)
	require.NoError(t, err)
	require.Equal(t, "v2", items[0].Title)
	require.Equal(t, note.Ctime, items[0].Ctime, "ctime never changes")
}

func TestCoordinator_UpdateRemoteFailureKeepsDraft(t *testing.T) {
	env := newTestEnv(t)
	links := env.ws.Links
	link, err := links.Coordinator.Create(env.ctx, LinkDraft{URL: "https://a.example"})
	require.NoError(t, err)
	require.NoError(t, links.Session.Edit(env.ctx, link))
	links.Session.Update(func(d *LinkDraft) { d.Description = "changed" })
	env.links.Fail(memory.OpUpdate, errors.New("timeout"))

	err = links.Coordinator.Submit(env.ctx)
	require.True(t, appErr.IsRemote(err))
	snap := links.Session.Snapshot()
	require.Equal(t, Editing, snap.State)
	require.Equal(t, link.ID, snap.TargetID)
	require.Equal(t, "changed", snap.Draft.Description)
}

func TestCoordinator_FilesAreImmutable(t *testing.T) {
	env := newTestEnv(t)
	err := env.ws.Files.Coordinator.Update(env.ctx, "id", FileDraft{})
	require.ErrorIs(t, err, appErr.ErrImmutable)
}

func TestCoordinator_DeleteNote(t *testing.T) {
	env := newTestEnv(t)
	notes := env.ws.Notes
	note, err := notes.Coordinator.Create(env.ctx, NoteDraft{Title: "gone soon"})
	require.NoError(t, err)
	require.NoError(t, notes.Session.Edit(env.ctx, note))

	require.NoError(t, notes.Coordinator.Delete(env.ctx, note))
	require.Equal(t, Idle, notes.Session.Snapshot().State)
	items, err := notes.Store.FetchAll(env.ctx)
	require.NoError(t, err)
	require.Empty(t, items)

	err = notes.Coordinator.Delete(env.ctx, note)
	require.True(t, appErr.IsRemote(err))
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func createFile(t *testing.T, env *testEnv, name, mime string) model.FileAsset {
	t.Helper()
	body := []byte("content of " + name)
	res := env.ws.Files
	if mime != "application/pdf" {
		res = env.ws.Media
	}
	asset, err := res.Coordinator.Create(env.ctx, FileDraft{Filename: name, MimeType: mime, Size: int64(len(body)), Body: bytes.NewReader(body)})
	require.NoError(t, err)
	return asset
}

func TestCoordinator_CreateFileUploadsBinaryFirst(t *testing.T) {
	env := newTestEnv(t)
	asset := createFile(t, env, "report 2024.pdf", "application/pdf")
	require.Regexp(t, `^owner-1/\d+_[0-9a-f]{12}_report_2024\.pdf$`, asset.StoragePath)
	require.True(t, env.objects.Exists(asset.StoragePath))
	require.Equal(t, "content of report 2024.pdf", string(env.objects.Bytes(asset.StoragePath)))

	env.objects.Fail(memory.OpPut, errors.New("bucket full"))
	_, err := env.ws.Files.Coordinator.Create(env.ctx, FileDraft{Filename: "b.pdf", MimeType: "application/pdf", Body: bytes.NewReader(nil)})
	require.True(t, appErr.IsRemote(err))
	require.Equal(t, 1, env.files.Calls(memory.OpInsert), "no metadata without a binary")
}

func TestCoordinator_CreateFileDiscardsBinaryWhenInsertFails(t *testing.T) {
	env := newTestEnv(t)
	env.files.Fail(memory.OpInsert, errors.New("db down"))
	_, err := env.ws.Files.Coordinator.Create(env.ctx, FileDraft{Filename: "a.pdf", MimeType: "application/pdf", Size: 1, Body: bytes.NewReader([]byte("x"))})
	require.True(t, appErr.IsRemote(err))
	require.Equal(t, 1, env.objects.Calls(memory.OpPut))
	require.Equal(t, 1, env.objects.Calls(memory.OpRemove))
}

func TestCoordinator_CreateFileKeepsBinaryOnPathConflict(t *testing.T) {
	env := newTestEnv(t)
	env.files.Fail(memory.OpInsert, fmt.Errorf("%w: duplicate storage_path", appErr.ErrConflict))
	_, err := env.ws.Files.Coordinator.Create(env.ctx, FileDraft{Filename: "a.pdf", MimeType: "application/pdf", Size: 1, Body: bytes.NewReader([]byte("x"))})
	require.True(t, appErr.IsRemote(err))
	require.Equal(t, 1, env.objects.Calls(memory.OpPut))
	require.Equal(t, 0, env.objects.Calls(memory.OpRemove), "the path belongs to the conflicting row")
}

func TestCoordinator_DeleteFileStorageFailureKeepsMetadata(t *testing.T) {
	env := newTestEnv(t)
	asset := createFile(t, env, "a.pdf", "application/pdf")
	env.objects.Fail(memory.OpRemove, errors.New("denied"))

	err := env.ws.Files.Coordinator.Delete(env.ctx, asset)
	require.True(t, appErr.IsRemote(err))
	require.Equal(t, 0, env.files.Calls(memory.OpDelete))
	require.True(t, env.objects.Exists(asset.StoragePath))

	env.ws.Files.Store.Invalidate()
	items, err := env.ws.Files.Store.FetchAll(env.ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, asset.ID, items[0].ID)
}

func TestCoordinator_DeleteFileMetadataFailureIsPartial(t *testing.T) {
	env := newTestEnv(t)
	asset := createFile(t, env, "clip.mp4", "video/mp4")
	_, err := env.ws.Media.Store.FetchAll(env.ctx)
	require.NoError(t, err)
	selects := env.files.Calls(memory.OpSelect)
	env.files.Fail(memory.OpDelete, errors.New("db down"))

	err = env.ws.Media.Coordinator.Delete(env.ctx, asset)
	require.ErrorIs(t, err, appErr.ErrPartialDelete)
	var perr *appErr.PartialDeleteError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, asset.StoragePath, perr.StoragePath)
	require.False(t, env.objects.Exists(asset.StoragePath))
	require.Equal(t, 1, env.files.Len(), "metadata row is orphaned")

	_, err = env.ws.Media.Store.FetchAll(env.ctx)
	require.NoError(t, err)
	require.Equal(t, selects+1, env.files.Calls(memory.OpSelect), "the listing is refetched once the binary is gone")
}

func TestCoordinator_DeleteFileRemovesBoth(t *testing.T) {
	env := newTestEnv(t)
	asset := createFile(t, env, "a.png", "image/png")
	_, err := env.ws.Files.Store.FetchAll(env.ctx)
	require.NoError(t, err)

	require.NoError(t, env.ws.Media.Coordinator.Delete(env.ctx, asset))
	require.False(t, env.objects.Exists(asset.StoragePath))
	require.Equal(t, 0, env.files.Len())

	_, err = env.ws.Files.Store.FetchAll(env.ctx)
	require.NoError(t, err)
	require.Equal(t, 2, env.files.Calls(memory.OpSelect), "media mutations invalidate the files view too")
}

func TestCoordinator_SubmitIdle(t *testing.T) {
	env := newTestEnv(t)
	err := env.ws.Notes.Coordinator.Submit(env.ctx)
	require.True(t, appErr.IsValidation(err))
}
