// Package auth carries the authenticated principal through a context and
// exposes the signed-in/signed-out lifecycle of a client session.
package auth

import (
	"context"
	"sync"

	"github.com/xxxsen/mshelf/internal/pkg/errors"
	"github.com/xxxsen/mshelf/internal/pkg/jwt"
)

type ownerKey struct{}

func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey{}, ownerID)
}

// OwnerID returns the principal bound to ctx or ErrUnauthorized.
func OwnerID(ctx context.Context) (string, error) {
	if ctx == nil {
		return "", errors.ErrUnauthorized
	}
	owner, _ := ctx.Value(ownerKey{}).(string)
	if owner == "" {
		return "", errors.ErrUnauthorized
	}
	return owner, nil
}

type Provider interface {
	OwnerID() (string, bool)
	// Watch registers fn to run on every sign-in ("owner id") and sign-out ("").
	Watch(fn func(ownerID string)) (stop func())
}

// Bind attaches the provider's current principal to ctx.
func Bind(ctx context.Context, p Provider) (context.Context, error) {
	if p == nil {
		return ctx, errors.ErrUnauthorized
	}
	owner, ok := p.OwnerID()
	if !ok {
		return ctx, errors.ErrUnauthorized
	}
	return WithOwner(ctx, owner), nil
}

type Session struct {
	mu       sync.Mutex
	owner    string
	nextID   int
	watchers map[int]func(string)
}

func NewSession() *Session {
	return &Session{watchers: make(map[int]func(string))}
}

// NewTokenSession signs in with the user id carried by a bearer token. The
// signature is checked by the server, not here.
func NewTokenSession(token string) (*Session, error) {
	owner, err := jwt.PeekUserID(token)
	if err != nil {
		return nil, err
	}
	s := NewSession()
	s.SignIn(owner)
	return s, nil
}

func (s *Session) OwnerID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner, s.owner != ""
}

func (s *Session) SignIn(ownerID string) {
	s.set(ownerID)
}

func (s *Session) SignOut() {
	s.set("")
}

func (s *Session) Watch(fn func(ownerID string)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
	}
}

func (s *Session) set(owner string) {
	s.mu.Lock()
	if s.owner == owner {
		s.mu.Unlock()
		return
	}
	s.owner = owner
	fns := make([]func(string), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(owner)
	}
}
