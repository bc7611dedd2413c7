package memory

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	appErr "github.com/xxxsen/mshelf/internal/pkg/errors"
)

const (
	OpPut       = "put"
	OpRemove    = "remove"
	OpSignedURL = "signed_url"
	OpPublicURL = "public_url"
)

// ObjectStore keeps binaries in a map. Signed URLs use the memory:// scheme;
// public URLs are only available when a public base URL is configured.
type ObjectStore struct {
	mu         sync.Mutex
	publicBase string
	objects    map[string][]byte
	types      map[string]string
	faults     map[string]error
	calls      map[string]int
}

func NewObjectStore(publicBase string) *ObjectStore {
	return &ObjectStore{
		publicBase: strings.TrimSuffix(publicBase, "/"),
		objects:    make(map[string][]byte),
		types:      make(map[string]string),
		faults:     make(map[string]error),
		calls:      make(map[string]int),
	}
}

func (s *ObjectStore) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

func (s *ObjectStore) Heal(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faults, op)
}

func (s *ObjectStore) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *ObjectStore) Exists(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[path]
	return ok
}

func (s *ObjectStore) Bytes(path string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.objects[path]...)
}

func (s *ObjectStore) enter(op string) error {
	s.calls[op]++
	return s.faults[op]
}

func (s *ObjectStore) Put(ctx context.Context, path string, body io.Reader, size int64, contentType string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpPut); err != nil {
		return "", err
	}
	if path == "" {
		return "", fmt.Errorf("%w: path is required", appErr.ErrInvalid)
	}
	s.objects[path] = data
	s.types[path] = contentType
	return path, nil
}

func (s *ObjectStore) Remove(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpRemove); err != nil {
		return err
	}
	delete(s.objects, path)
	delete(s.types, path)
	return nil
}

func (s *ObjectStore) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpSignedURL); err != nil {
		return "", err
	}
	if _, ok := s.objects[path]; !ok {
		return "", appErr.ErrNotFound
	}
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(int64(ttl/time.Second), 10))
	return "memory://signed/" + path + "?" + q.Encode(), nil
}

func (s *ObjectStore) PublicURL(ctx context.Context, path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpPublicURL); err != nil {
		return "", err
	}
	if s.publicBase == "" {
		return "", fmt.Errorf("%w: public access disabled", appErr.ErrForbidden)
	}
	return s.publicBase + "/" + strings.TrimPrefix(path, "/"), nil
}
