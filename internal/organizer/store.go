package organizer

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mshelf/internal/auth"
	"github.com/xxxsen/mshelf/internal/gateway"
	"github.com/xxxsen/mshelf/internal/notify"
	appErr "github.com/xxxsen/mshelf/internal/pkg/errors"
)

const defaultCacheOwners = 16

// Invalidator is implemented by anything a successful mutation must mark stale.
type Invalidator interface {
	Invalidate()
}

type cacheEntry[T any] struct {
	seq   uint64
	items []T
}

// Store is a read-through cache of one resource type, keyed by owner. Cached
// lists stay valid until Invalidate; there is no TTL.
type Store[T any] struct {
	name     string
	table    gateway.Table[T]
	orderBy  string
	visible  func(T) bool
	notifier notify.Notifier

	mu     sync.Mutex
	cache  *lru.Cache[string, cacheEntry[T]]
	seq    uint64
	epoch  uint64
	closed bool
}

func NewStore[T any, D any](schema *Schema[T, D], table gateway.Table[T], notifier notify.Notifier) *Store[T] {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	cache, _ := lru.New[string, cacheEntry[T]](defaultCacheOwners)
	return &Store[T]{
		name:     schema.Name,
		table:    table,
		orderBy:  schema.OrderBy,
		visible:  schema.Visible,
		notifier: notifier,
		cache:    cache,
	}
}

// FetchAll returns the owner's rows, newest first. On failure it returns an
// empty slice together with the error.
func (s *Store[T]) FetchAll(ctx context.Context) ([]T, error) {
	owner, err := auth.OwnerID(ctx)
	if err != nil {
		s.notifier.Failure(ctx, "fetch "+s.name, err)
		return []T{}, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return []T{}, appErr.ErrClosed
	}
	if entry, ok := s.cache.Get(owner); ok {
		s.mu.Unlock()
		return cloneItems(entry.items), nil
	}
	s.seq++
	seq, epoch := s.seq, s.epoch
	s.mu.Unlock()

	rows, err := s.table.Select(ctx, owner, s.orderBy)
	if err != nil {
		rerr := appErr.NewRemote("select "+s.name, err)
		logutil.GetLogger(ctx).Error("fetch resources failed", zap.String("resource", s.name), zap.Error(err))
		s.notifier.Failure(ctx, "fetch "+s.name, rerr)
		return []T{}, rerr
	}
	items := s.filter(rows)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		logutil.GetLogger(ctx).Debug("discard fetch result after close", zap.String("resource", s.name))
		return []T{}, appErr.ErrClosed
	}
	if current, ok := s.cache.Peek(owner); ok && current.seq > seq {
		// a fetch that started later already landed
		return cloneItems(current.items), nil
	}
	if epoch == s.epoch {
		s.cache.Add(owner, cacheEntry[T]{seq: seq, items: cloneItems(items)})
	}
	return items, nil
}

// Invalidate marks every cached list stale. Fetches already in flight may
// still return their rows but will not repopulate the cache.
func (s *Store[T]) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.cache.Purge()
}

// Close tears the store down. Results that arrive afterwards are discarded.
func (s *Store[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cache.Purge()
}

func (s *Store[T]) filter(rows []T) []T {
	items := make([]T, 0, len(rows))
	for _, row := range rows {
		if s.visible != nil && !s.visible(row) {
			continue
		}
		items = append(items, row)
	}
	return items
}

func cloneItems[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}
