package filestore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xxxsen/mshelf/internal/pkg/errors"
	"github.com/xxxsen/mshelf/internal/pkg/jwt"
)

type localConfig struct {
	Dir string `json:"dir"`
	// BaseURL is the externally reachable server address, e.g.
	// "https://shelf.example.com". Empty yields host-relative urls.
	BaseURL string `json:"base_url"`
	Public  bool   `json:"public"`
}

type localStore struct {
	dir     string
	baseURL string
	public  bool
	key     []byte
}

func init() {
	Register("local", createLocalStore)
}

func createLocalStore(args interface{}, env Env) (Store, error) {
	config := &localConfig{}
	if err := decodeConfig(args, config); err != nil {
		return nil, err
	}
	if config.Dir == "" {
		return nil, fmt.Errorf("local store dir is required")
	}
	if len(env.SigningKey) == 0 {
		return nil, fmt.Errorf("local store requires a signing key")
	}
	return &localStore{
		dir:     config.Dir,
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		public:  config.Public,
		key:     env.SigningKey,
	}, nil
}

func (s *localStore) Type() string {
	return "local"
}

func (s *localStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	dst := s.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	written, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", err
	}
	if size >= 0 && written != size {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", errors.ErrInvalid, size, written)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", err
	}
	return key, nil
}

// Remove is idempotent: a missing object is already removed.
func (s *localStore) Remove(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *localStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	ok, err := s.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.ErrNotFound
	}
	token, err := jwt.GenerateObjectToken(key, s.key, ttl)
	if err != nil {
		return "", err
	}
	return joinURL(s.baseURL+"/api/v1/blobs", key) + "?" + url.Values{"token": {token}}.Encode(), nil
}

func (s *localStore) PublicURL(ctx context.Context, key string) (string, error) {
	if !s.public {
		return "", fmt.Errorf("%w: public access disabled", errors.ErrForbidden)
	}
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return joinURL(s.baseURL+"/api/v1/public", key), nil
}

// PublicEnabled reports whether /public delivery is allowed.
func (s *localStore) PublicEnabled() bool {
	return s.public
}

func (s *localStore) VerifyToken(key, token string) error {
	path, err := jwt.ParseObjectToken(token, s.key)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrUnauthorized, err)
	}
	if path != key {
		return errors.ErrForbidden
	}
	return nil
}

func (s *localStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(key))
	if os.IsNotExist(err) {
		return nil, errors.ErrNotFound
	}
	return f, err
}

func (s *localStore) Exists(ctx context.Context, key string) (bool, error) {
	key, err := cleanKey(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func (s *localStore) path(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key))
}
