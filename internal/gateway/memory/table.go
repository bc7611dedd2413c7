// Package memory implements the gateway contracts in process memory. It backs
// unit tests and local experiments; it is not a cache.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/xxxsen/mshelf/internal/gateway"
	appErr "github.com/xxxsen/mshelf/internal/pkg/errors"
	"github.com/xxxsen/mshelf/internal/pkg/idgen"
	"github.com/xxxsen/mshelf/internal/pkg/timeutil"
)

const (
	OpSelect = "select"
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

type record struct {
	seq    int64
	fields map[string]interface{}
}

// Table stores rows of any JSON-tagged model that carries "id", "user_id"
// and "ctime" keys.
type Table[T any] struct {
	mu      sync.Mutex
	mutable []string
	unique  string
	rows    []*record
	seq     int64
	now     func() int64
	faults  map[string]error
	calls   map[string]int
}

type Option func(*options)

type options struct {
	unique string
	now    func() int64
}

// WithUnique enforces a per-owner unique column.
func WithUnique(column string) Option {
	return func(o *options) { o.unique = column }
}

// WithClock overrides the ctime source (unix millis).
func WithClock(now func() int64) Option {
	return func(o *options) { o.now = now }
}

func NewTable[T any](mutable []string, opts ...Option) *Table[T] {
	o := &options{now: timeutil.NowUnixMilli}
	for _, opt := range opts {
		opt(o)
	}
	return &Table[T]{
		mutable: mutable,
		unique:  o.unique,
		now:     o.now,
		faults:  make(map[string]error),
		calls:   make(map[string]int),
	}
}

// Fail makes every subsequent call of op return err until Heal is called.
func (t *Table[T]) Fail(op string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.faults[op] = err
}

func (t *Table[T]) Heal(op string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.faults, op)
}

// Calls returns how many times op was invoked, failed calls included.
func (t *Table[T]) Calls(op string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls[op]
}

func (t *Table[T]) enter(op string) error {
	t.calls[op]++
	return t.faults[op]
}

func (t *Table[T]) Select(ctx context.Context, ownerID, orderBy string) ([]T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.enter(OpSelect); err != nil {
		return nil, err
	}
	desc, err := gateway.ParseOrder(orderBy)
	if err != nil {
		return nil, err
	}
	matched := make([]*record, 0, len(t.rows))
	for _, rec := range t.rows {
		if rec.fields["user_id"] == ownerID {
			matched = append(matched, rec)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		ci, cj := ctimeOf(matched[i]), ctimeOf(matched[j])
		if ci == cj {
			if desc {
				return matched[i].seq > matched[j].seq
			}
			return matched[i].seq < matched[j].seq
		}
		if desc {
			return ci > cj
		}
		return ci < cj
	})
	items := make([]T, 0, len(matched))
	for _, rec := range matched {
		item, err := fromFields[T](rec.fields)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (t *Table[T]) Insert(ctx context.Context, row T) (T, error) {
	var zero T
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.enter(OpInsert); err != nil {
		return zero, err
	}
	fields, err := toFields(row)
	if err != nil {
		return zero, err
	}
	owner, _ := fields["user_id"].(string)
	if owner == "" {
		return zero, fmt.Errorf("%w: user_id is required", appErr.ErrInvalid)
	}
	if t.unique != "" {
		for _, rec := range t.rows {
			if rec.fields["user_id"] == owner && rec.fields[t.unique] == fields[t.unique] {
				return zero, fmt.Errorf("%w: duplicate %s", appErr.ErrConflict, t.unique)
			}
		}
	}
	t.seq++
	fields["id"] = idgen.NewID()
	fields["ctime"] = float64(t.now())
	t.rows = append(t.rows, &record{seq: t.seq, fields: fields})
	return fromFields[T](fields)
}

func (t *Table[T]) Update(ctx context.Context, ownerID, id string, patch gateway.Patch) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.enter(OpUpdate); err != nil {
		return err
	}
	if err := gateway.CheckPatch(patch, t.mutable...); err != nil {
		return err
	}
	normalized, err := toFields(patch)
	if err != nil {
		return err
	}
	rec := t.find(ownerID, id)
	if rec == nil {
		return appErr.ErrNotFound
	}
	for key, value := range normalized {
		rec.fields[key] = value
	}
	return nil
}

func (t *Table[T]) Delete(ctx context.Context, ownerID, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.enter(OpDelete); err != nil {
		return err
	}
	for i, rec := range t.rows {
		if rec.fields["user_id"] == ownerID && rec.fields["id"] == id {
			t.rows = append(t.rows[:i], t.rows[i+1:]...)
			return nil
		}
	}
	return appErr.ErrNotFound
}

// Len counts rows across all owners.
func (t *Table[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows)
}

func (t *Table[T]) find(ownerID, id string) *record {
	for _, rec := range t.rows {
		if rec.fields["user_id"] == ownerID && rec.fields["id"] == id {
			return rec
		}
	}
	return nil
}

func ctimeOf(rec *record) float64 {
	v, _ := rec.fields["ctime"].(float64)
	return v
}

func toFields(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}
	fields := make(map[string]interface{})
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return fields, nil
}

func fromFields[T any](fields map[string]interface{}) (T, error) {
	var out T
	data, err := json.Marshal(fields)
	if err != nil {
		return out, fmt.Errorf("encode row: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode row: %w", err)
	}
	return out, nil
}
