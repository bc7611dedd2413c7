package filestore

import (
	"context"
	"io"
	"time"

	"github.com/xxxsen/mshelf/internal/metrics"
)

const observedResource = "objects"

type observedStore struct {
	Store
	observer metrics.Observer
}

// Observed reports the latency and failures of every object operation.
// Optional interfaces of the wrapped store stay reachable through Unwrap.
func Observed(store Store, observer metrics.Observer) Store {
	if observer == nil {
		return store
	}
	return &observedStore{Store: store, observer: observer}
}

func (s *observedStore) Unwrap() Store {
	return s.Store
}

func (s *observedStore) observe(op string, start time.Time, err error) {
	s.observer.Observe(observedResource, op, time.Since(start), err)
}

func (s *observedStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (path string, err error) {
	start := time.Now()
	defer func() { s.observe("put", start, err) }()
	return s.Store.Put(ctx, key, body, size, contentType)
}

func (s *observedStore) Remove(ctx context.Context, key string) (err error) {
	start := time.Now()
	defer func() { s.observe("remove", start, err) }()
	return s.Store.Remove(ctx, key)
}

func (s *observedStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (u string, err error) {
	start := time.Now()
	defer func() { s.observe("signed_url", start, err) }()
	return s.Store.SignedURL(ctx, key, ttl)
}

func (s *observedStore) PublicURL(ctx context.Context, key string) (u string, err error) {
	start := time.Now()
	defer func() { s.observe("public_url", start, err) }()
	return s.Store.PublicURL(ctx, key)
}

// As finds an optional interface on store or any store it wraps.
func As[I any](store Store) (I, bool) {
	for store != nil {
		if v, ok := store.(I); ok {
			return v, true
		}
		w, ok := store.(interface{ Unwrap() Store })
		if !ok {
			break
		}
		store = w.Unwrap()
	}
	var zero I
	return zero, false
}
