package organizer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mshelf/internal/auth"
	"github.com/xxxsen/mshelf/internal/gateway"
	"github.com/xxxsen/mshelf/internal/model"
	appErr "github.com/xxxsen/mshelf/internal/pkg/errors"
)

const SignedURLTTL = 3600 * time.Second

type ResolveState int

const (
	Loading ResolveState = iota
	Ready
	Failed
)

func (s ResolveState) String() string {
	switch s {
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "loading"
	}
}

// Resolver turns stored object paths into deliverable URLs.
type Resolver struct {
	objects gateway.ObjectStore
	ttl     time.Duration
}

func NewResolver(objects gateway.ObjectStore) *Resolver {
	return &Resolver{objects: objects, ttl: SignedURLTTL}
}

// Mount starts a resolution for one asset. Each mount resolves at most once;
// mount again to retry.
func (r *Resolver) Mount(asset model.FileAsset) *Resolution {
	return &Resolution{resolver: r, asset: asset}
}

// Resolution is the per-asset state machine Loading -> Ready(url) | Failed.
type Resolution struct {
	resolver *Resolver
	asset    model.FileAsset
	once     sync.Once

	mu    sync.Mutex
	state ResolveState
	url   string
	err   error
}

// View is what a renderer needs to draw the asset.
type View struct {
	Filename    string
	Kind        string
	State       ResolveState
	URL         string
	Placeholder bool
	CanOpen     bool
}

// Resolve tries a signed URL, then a public URL. Only the first call does any
// work; later calls return the settled state.
func (m *Resolution) Resolve(ctx context.Context) ResolveState {
	m.once.Do(func() {
		url, err := m.resolve(ctx)
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.state != Loading {
			return
		}
		if err != nil {
			m.state, m.err = Failed, err
			logutil.GetLogger(ctx).Warn("media resolve failed",
				zap.String("asset_id", m.asset.ID),
				zap.String("storage_path", m.asset.StoragePath),
				zap.Error(err),
			)
			return
		}
		m.state, m.url = Ready, url
	})
	return m.State()
}

func (m *Resolution) resolve(ctx context.Context) (string, error) {
	if _, err := auth.OwnerID(ctx); err != nil {
		return "", err
	}
	path := m.asset.StoragePath
	url, signedErr := m.resolver.objects.SignedURL(ctx, path, m.resolver.ttl)
	if signedErr == nil && url != "" {
		return url, nil
	}
	if signedErr == nil {
		signedErr = errors.New("empty signed url")
	}
	url, publicErr := m.resolver.objects.PublicURL(ctx, path)
	if publicErr == nil && url != "" {
		return url, nil
	}
	if publicErr == nil {
		publicErr = errors.New("empty public url")
	}
	return "", appErr.NewRemote("resolve "+path, errors.Join(signedErr, publicErr))
}

// RenderFailed records a load or playback error at render time. Only a Ready
// resolution has anything rendered, so other states ignore it.
func (m *Resolution) RenderFailed(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Ready {
		return
	}
	m.state, m.url, m.err = Failed, "", err
}

func (m *Resolution) State() ResolveState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Resolution) URL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.url
}

func (m *Resolution) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *Resolution) CanOpen() bool {
	return m.State() == Ready
}

func (m *Resolution) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return View{
		Filename:    m.asset.Filename,
		Kind:        m.asset.Kind(),
		State:       m.state,
		URL:         m.url,
		Placeholder: m.state != Ready,
		CanOpen:     m.state == Ready,
	}
}
