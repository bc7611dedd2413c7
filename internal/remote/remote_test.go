package remote

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mshelf/internal/auth"
	"github.com/xxxsen/mshelf/internal/config"
	"github.com/xxxsen/mshelf/internal/filestore"
	"github.com/xxxsen/mshelf/internal/gateway"
	"github.com/xxxsen/mshelf/internal/gateway/memory"
	"github.com/xxxsen/mshelf/internal/handler"
	"github.com/xxxsen/mshelf/internal/model"
	"github.com/xxxsen/mshelf/internal/notify"
	"github.com/xxxsen/mshelf/internal/organizer"
	appErr "github.com/xxxsen/mshelf/internal/pkg/errors"
	"github.com/xxxsen/mshelf/internal/pkg/jwt"
)

var secret = []byte("remote-secret")

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": t.TempDir()},
	}, filestore.Env{SigningKey: secret})
	require.NoError(t, err)
	engine := gin.New()
	handler.RegisterRoutes(engine.Group("/api/v1"), handler.RouterDeps{
		Notes:     handler.NewNoteHandler(memory.NewTable[model.Note]([]string{"title", "content"})),
		Links:     handler.NewLinkHandler(memory.NewTable[model.Link]([]string{"url", "description"})),
		Todos:     handler.NewTodoHandler(memory.NewTable[model.Todo]([]string{"completed"})),
		Files:     handler.NewFileHandler(memory.NewTable[model.FileAsset](nil, memory.WithUnique("storage_path"))),
		Objects:   handler.NewObjectHandler(store, 10*1024*1024, time.Hour),
		JWTSecret: secret,
	})
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, srv *httptest.Server, owner string) *Client {
	t.Helper()
	token, err := jwt.GenerateToken(owner, secret, time.Hour)
	require.NoError(t, err)
	return NewClient(srv.URL+"/", token, WithHTTPClient(srv.Client()))
}

func TestClient_ErrorMapping(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()

	anon := NewClient(srv.URL, "", WithHTTPClient(srv.Client()))
	_, err := NewTable[model.Note](anon, "notes").Select(ctx, "u1", gateway.OrderByCtimeDesc)
	require.ErrorIs(t, err, appErr.ErrUnauthorized)

	c := newClient(t, srv, "u1")
	notes := NewTable[model.Note](c, "notes")
	err = notes.Delete(ctx, "u1", "missing")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	err = notes.Update(ctx, "u1", "missing", gateway.Patch{"owner": "x"})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	objects := NewObjectStore(c)
	_, err = objects.Put(ctx, "u2/1_x.png", bytes.NewReader([]byte("x")), 1, "image/png")
	require.ErrorIs(t, err, appErr.ErrForbidden)
	_, err = objects.PublicURL(ctx, "u1/1_x.png")
	require.ErrorIs(t, err, appErr.ErrForbidden)
}

func TestClient_OwnersAreIsolated(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()
	alice := NewTable[model.Todo](newClient(t, srv, "alice"), "todos")
	bob := NewTable[model.Todo](newClient(t, srv, "bob"), "todos")

	created, err := alice.Insert(ctx, model.Todo{UserID: "bob", Text: "alice's"})
	require.NoError(t, err)
	require.Equal(t, "alice", created.UserID)

	items, err := bob.Select(ctx, "bob", "")
	require.NoError(t, err)
	require.Empty(t, items)
	require.ErrorIs(t, bob.Delete(ctx, "bob", created.ID), appErr.ErrNotFound)
}

func TestWorkspaceOverHTTP(t *testing.T) {
	srv := startServer(t)
	c := newClient(t, srv, "u1")
	ctx := auth.WithOwner(context.Background(), "u1")
	recorder := &notify.Recorder{}
	ws := organizer.NewWorkspace(organizer.Backend{
		Notes:   NewTable[model.Note](c, "notes"),
		Links:   NewTable[model.Link](c, "links"),
		Todos:   NewTable[model.Todo](c, "todos"),
		Files:   NewTable[model.FileAsset](c, "files"),
		Objects: NewObjectStore(c),
	}, organizer.Options{Notifier: recorder})
	defer ws.Close()

	_, err := ws.Links.Coordinator.Create(ctx, organizer.LinkDraft{URL: "https://example.com/old"})
	require.NoError(t, err)
	_, err = ws.Links.Coordinator.Create(ctx, organizer.LinkDraft{URL: "https://example.com/a"})
	require.NoError(t, err)
	links, err := ws.Links.Store.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, links, 2)
	require.Equal(t, "https://example.com/a", links[0].URL)

	results, err := ws.MediaUploads.Submit(ctx, []organizer.Candidate{
		{Name: "pic.png", MimeType: "image/png", Size: 4, Body: bytes.NewReader([]byte("\x89PNG"))},
		{Name: "notes.txt", MimeType: "text/plain", Size: 1, Body: bytes.NewReader([]byte("x"))},
	})
	require.NoError(t, err)
	require.NoError(t, results[0].Err)
	require.Error(t, results[1].Err)

	media, err := ws.Media.Store.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, media, 1)

	res := ws.Resolver.Mount(media[0])
	require.Equal(t, organizer.Ready, res.Resolve(ctx))
	resp, err := srv.Client().Get(res.URL())
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "\x89PNG", string(data))

	require.NoError(t, ws.Media.Coordinator.Delete(ctx, media[0]))
	media, err = ws.Media.Store.FetchAll(ctx)
	require.NoError(t, err)
	require.Empty(t, media)
	require.Empty(t, recorder.Failures())
}
