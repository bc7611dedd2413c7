package organizer

import (
	"context"
	"time"

	"github.com/xxxsen/mshelf/internal/auth"
	"github.com/xxxsen/mshelf/internal/gateway"
	"github.com/xxxsen/mshelf/internal/metrics"
	"github.com/xxxsen/mshelf/internal/model"
	"github.com/xxxsen/mshelf/internal/notify"
)

// Resource groups the store, edit session and coordinator of one tab.
type Resource[T any, D any] struct {
	Schema      *Schema[T, D]
	Store       *Store[T]
	Session     *Session[T, D]
	Coordinator *Coordinator[T, D]
}

func (r *Resource[T, D]) reset() {
	r.Store.Invalidate()
	r.Session.Cancel()
}

// Backend is the remote side the workspace synchronizes with.
type Backend struct {
	Notes   gateway.Table[model.Note]
	Links   gateway.Table[model.Link]
	Todos   gateway.Table[model.Todo]
	Files   gateway.Table[model.FileAsset]
	Objects gateway.ObjectStore
}

type Options struct {
	Notifier    notify.Notifier
	Observer    metrics.Observer
	Now         func() time.Time
	FilesPolicy *Policy
	MediaPolicy *Policy
}

// Workspace holds one resource per category. Files and media are two views
// of the same table, so a mutation in either invalidates both.
type Workspace struct {
	Notes *Resource[model.Note, NoteDraft]
	Links *Resource[model.Link, LinkDraft]
	Todos *Resource[model.Todo, TodoDraft]
	Files *Resource[model.FileAsset, FileDraft]
	Media *Resource[model.FileAsset, FileDraft]

	Resolver     *Resolver
	FileUploads  *Uploader
	MediaUploads *Uploader
}

func NewWorkspace(b Backend, opts Options) *Workspace {
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Observer == nil {
		opts.Observer = metrics.Nop{}
	}
	filesPolicy, mediaPolicy := FilesPolicy, MediaPolicy
	if opts.FilesPolicy != nil {
		filesPolicy = *opts.FilesPolicy
	}
	if opts.MediaPolicy != nil {
		mediaPolicy = *opts.MediaPolicy
	}

	w := &Workspace{
		Notes:    newResource(NoteSchema(), b.Notes, nil, opts),
		Links:    newResource(LinkSchema(), b.Links, nil, opts),
		Todos:    newResource(TodoSchema(), b.Todos, nil, opts),
		Files:    newResource(FileSchema(ResourceFiles, opts.Now), b.Files, b.Objects, opts),
		Media:    newResource(FileSchema(ResourceMedia, opts.Now), b.Files, b.Objects, opts),
		Resolver: NewResolver(b.Objects),
	}
	w.Files.Coordinator.stores = append(w.Files.Coordinator.stores, w.Media.Store)
	w.Media.Coordinator.stores = append(w.Media.Coordinator.stores, w.Files.Store)
	w.FileUploads = NewUploader(filesPolicy, w.Files.Coordinator, opts.Notifier)
	w.MediaUploads = NewUploader(mediaPolicy, w.Media.Coordinator, opts.Notifier)
	return w
}

func newResource[T any, D any](schema *Schema[T, D], table gateway.Table[T], objects gateway.ObjectStore, opts Options) *Resource[T, D] {
	store := NewStore(schema, table, opts.Notifier)
	session := NewSession(schema)
	coord := NewCoordinator(schema, CoordinatorDeps[T, D]{
		Table:    table,
		Objects:  objects,
		Session:  session,
		Stores:   []Invalidator{store},
		Notifier: opts.Notifier,
		Observer: opts.Observer,
	})
	return &Resource[T, D]{Schema: schema, Store: store, Session: session, Coordinator: coord}
}

// ToggleTodo flips completion through the edit session, the only path by
// which a todo is updated.
func (w *Workspace) ToggleTodo(ctx context.Context, todo model.Todo) error {
	if err := w.Todos.Session.Edit(ctx, todo); err != nil {
		return err
	}
	w.Todos.Session.Update(func(d *TodoDraft) { d.Completed = !d.Completed })
	return w.Todos.Coordinator.Submit(ctx)
}

// Reset drops every cached list and unsaved draft.
func (w *Workspace) Reset() {
	w.Notes.reset()
	w.Links.reset()
	w.Todos.reset()
	w.Files.reset()
	w.Media.reset()
}

// Follow resets the workspace whenever the signed-in principal changes.
func (w *Workspace) Follow(p auth.Provider) (stop func()) {
	return p.Watch(func(string) { w.Reset() })
}

// Close tears every store down; late fetch results are discarded.
func (w *Workspace) Close() {
	w.Notes.Store.Close()
	w.Links.Store.Close()
	w.Todos.Store.Close()
	w.Files.Store.Close()
	w.Media.Store.Close()
}
