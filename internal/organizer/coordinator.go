package organizer

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mshelf/internal/auth"
	"github.com/xxxsen/mshelf/internal/gateway"
	"github.com/xxxsen/mshelf/internal/metrics"
	"github.com/xxxsen/mshelf/internal/notify"
	appErr "github.com/xxxsen/mshelf/internal/pkg/errors"
)

// Coordinator runs create/update/delete against the gateway. Nothing is
// applied locally before the gateway confirms; on success every registered
// store is invalidated and the edit session returns to Idle.
type Coordinator[T any, D any] struct {
	schema   *Schema[T, D]
	table    gateway.Table[T]
	objects  gateway.ObjectStore
	session  *Session[T, D]
	stores   []Invalidator
	notifier notify.Notifier
	observer metrics.Observer
}

type CoordinatorDeps[T any, D any] struct {
	Table    gateway.Table[T]
	Objects  gateway.ObjectStore
	Session  *Session[T, D]
	Stores   []Invalidator
	Notifier notify.Notifier
	Observer metrics.Observer
}

func NewCoordinator[T any, D any](schema *Schema[T, D], deps CoordinatorDeps[T, D]) *Coordinator[T, D] {
	c := &Coordinator[T, D]{
		schema:   schema,
		table:    deps.Table,
		objects:  deps.Objects,
		session:  deps.Session,
		stores:   deps.Stores,
		notifier: deps.Notifier,
		observer: deps.Observer,
	}
	if c.session == nil {
		c.session = NewSession(schema)
	}
	if c.notifier == nil {
		c.notifier = notify.Nop{}
	}
	if c.observer == nil {
		c.observer = metrics.Nop{}
	}
	return c
}

func (c *Coordinator[T, D]) Session() *Session[T, D] {
	return c.session
}

// Create validates d, then inserts it. Binary-backed resources upload their
// payload first.
func (c *Coordinator[T, D]) Create(ctx context.Context, d D) (T, error) {
	var zero T
	if err := c.schema.Validate(d); err != nil {
		return zero, err
	}
	owner, err := auth.OwnerID(ctx)
	if err != nil {
		c.fail(ctx, "create", err)
		return zero, err
	}
	row := c.schema.NewRow(owner, d)

	path := ""
	if c.schema.binaryBacked() {
		path = c.schema.StoragePath(row)
		body, size, contentType := c.schema.Payload(d)
		err := c.call("put", func() error {
			_, err := c.objects.Put(ctx, path, body, size, contentType)
			return err
		})
		if err != nil {
			rerr := appErr.NewRemote("put "+c.schema.Name, err)
			c.fail(ctx, "create", rerr)
			return zero, rerr
		}
	}

	var created T
	err = c.call("insert", func() error {
		var err error
		created, err = c.table.Insert(ctx, row)
		return err
	})
	if err != nil {
		// a conflicting row owns the path, so the binary is not ours to remove
		if path != "" && !appErr.IsConflict(err) {
			c.discardObject(ctx, path)
		}
		rerr := appErr.NewRemote("insert "+c.schema.Name, err)
		c.fail(ctx, "create", rerr)
		return zero, rerr
	}

	c.succeed(ctx, c.schema.Name+" created")
	return created, nil
}

// Update requires the edit session to target id.
func (c *Coordinator[T, D]) Update(ctx context.Context, id string, d D) error {
	if !c.schema.mutable() {
		return &appErr.ValidationError{Field: "id", Reason: "belongs to an immutable resource", Err: appErr.ErrImmutable}
	}
	if !c.session.editing(id) {
		return &appErr.ValidationError{Field: "id", Reason: "is not being edited", Err: appErr.ErrNotEditing}
	}
	if err := c.schema.Validate(d); err != nil {
		return err
	}
	owner, err := auth.OwnerID(ctx)
	if err != nil {
		c.fail(ctx, "update", err)
		return err
	}
	err = c.call("update", func() error {
		return c.table.Update(ctx, owner, id, c.schema.Patch(d))
	})
	if err != nil {
		rerr := appErr.NewRemote("update "+c.schema.Name, err)
		c.fail(ctx, "update", rerr)
		return rerr
	}
	c.succeed(ctx, c.schema.Name+" updated")
	return nil
}

// Delete removes row. For binary-backed rows the binary goes first and the
// metadata row is only deleted once the binary is gone; a metadata failure
// after that leaves an orphaned row and yields a PartialDeleteError.
func (c *Coordinator[T, D]) Delete(ctx context.Context, row T) error {
	owner, err := auth.OwnerID(ctx)
	if err != nil {
		c.fail(ctx, "delete", err)
		return err
	}
	id := c.schema.ID(row)

	path := ""
	if c.schema.binaryBacked() {
		path = c.schema.StoragePath(row)
		err := c.call("remove", func() error {
			return c.objects.Remove(ctx, path)
		})
		if err != nil {
			rerr := appErr.NewRemote("remove "+c.schema.Name, err)
			c.fail(ctx, "delete", rerr)
			return rerr
		}
	}

	err = c.call("delete", func() error {
		return c.table.Delete(ctx, owner, id)
	})
	if err != nil {
		if path != "" {
			perr := &appErr.PartialDeleteError{ID: id, StoragePath: path, Err: appErr.NewRemote("delete "+c.schema.Name, err)}
			logutil.GetLogger(ctx).Error("metadata left without binary",
				zap.String("resource", c.schema.Name),
				zap.String("id", id),
				zap.String("storage_path", path),
				zap.Error(err),
			)
			c.fail(ctx, "delete", perr)
			// the binary is already gone, the listing must reflect that
			c.invalidate()
			return perr
		}
		rerr := appErr.NewRemote("delete "+c.schema.Name, err)
		c.fail(ctx, "delete", rerr)
		return rerr
	}
	c.invalidate()
	if c.session.editing(id) {
		c.session.reset()
	}
	c.notifier.Success(ctx, c.schema.Name+" deleted")
	return nil
}

// Submit dispatches the current edit session: Creating creates, Editing
// updates. A failed submission leaves the draft in place.
func (c *Coordinator[T, D]) Submit(ctx context.Context) error {
	snap := c.session.Snapshot()
	switch snap.State {
	case Creating:
		_, err := c.Create(ctx, snap.Draft)
		return err
	case Editing:
		return c.Update(ctx, snap.TargetID, snap.Draft)
	default:
		return appErr.NewValidation("", "nothing to submit")
	}
}

func (c *Coordinator[T, D]) call(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	c.observer.Observe(c.schema.Name, op, time.Since(start), err)
	return err
}

func (c *Coordinator[T, D]) succeed(ctx context.Context, msg string) {
	c.invalidate()
	c.session.reset()
	c.notifier.Success(ctx, msg)
}

func (c *Coordinator[T, D]) invalidate() {
	for _, store := range c.stores {
		store.Invalidate()
	}
}

func (c *Coordinator[T, D]) fail(ctx context.Context, op string, err error) {
	logutil.GetLogger(ctx).Warn("mutation failed",
		zap.String("resource", c.schema.Name),
		zap.String("op", op),
		zap.Error(err),
	)
	c.notifier.Failure(ctx, op+" "+c.schema.Name, err)
}

// discardObject removes a binary whose metadata insert failed.
func (c *Coordinator[T, D]) discardObject(ctx context.Context, path string) {
	err := c.call("remove", func() error {
		return c.objects.Remove(ctx, path)
	})
	if err != nil {
		logutil.GetLogger(ctx).Warn("discard uploaded object failed", zap.String("storage_path", path), zap.Error(err))
	}
}
