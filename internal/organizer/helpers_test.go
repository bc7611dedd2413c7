package organizer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xxxsen/mshelf/internal/auth"
	"github.com/xxxsen/mshelf/internal/gateway/memory"
	"github.com/xxxsen/mshelf/internal/model"
	"github.com/xxxsen/mshelf/internal/notify"
)

type testEnv struct {
	ctx      context.Context
	ws       *Workspace
	notes    *memory.Table[model.Note]
	links    *memory.Table[model.Link]
	todos    *memory.Table[model.Todo]
	files    *memory.Table[model.FileAsset]
	objects  *memory.ObjectStore
	notifier *notify.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	var clock atomic.Int64
	clock.Store(1_700_000_000_000)
	tick := func() int64 {
		return clock.Add(1)
	}
	env := &testEnv{
		ctx:      auth.WithOwner(context.Background(), "owner-1"),
		notes:    memory.NewTable[model.Note]([]string{"title", "content"}, memory.WithClock(tick)),
		links:    memory.NewTable[model.Link]([]string{"url", "description"}, memory.WithClock(tick)),
		todos:    memory.NewTable[model.Todo]([]string{"completed"}, memory.WithClock(tick)),
		files:    memory.NewTable[model.FileAsset](nil, memory.WithClock(tick), memory.WithUnique("storage_path")),
		objects:  memory.NewObjectStore("https://cdn"),
		notifier: &notify.Recorder{},
	}
	var uploadClock atomic.Int64
	uploadClock.Store(1_700_000_000_000)
	env.ws = NewWorkspace(Backend{
		Notes:   env.notes,
		Links:   env.links,
		Todos:   env.todos,
		Files:   env.files,
		Objects: env.objects,
	}, Options{
		Notifier: env.notifier,
		Now: func() time.Time {
			return time.UnixMilli(uploadClock.Add(1))
		},
	})
	t.Cleanup(env.ws.Close)
	return env
}

func withOwner(ctx context.Context) context.Context {
	return auth.WithOwner(ctx, "owner-1")
}
