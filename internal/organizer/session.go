package organizer

import (
	"context"
	"sync"

	"github.com/xxxsen/mshelf/internal/auth"
)

type SessionState int

const (
	Idle SessionState = iota
	Creating
	Editing
)

func (s SessionState) String() string {
	switch s {
	case Creating:
		return "creating"
	case Editing:
		return "editing"
	default:
		return "idle"
	}
}

// Snapshot is a copy of the session at one point in time.
type Snapshot[D any] struct {
	State    SessionState
	TargetID string
	Draft    D
}

// Session tracks whether the user is creating a new row or editing an
// existing one. At most one draft exists; starting a new intent discards it.
type Session[T any, D any] struct {
	schema *Schema[T, D]

	mu     sync.Mutex
	state  SessionState
	target string
	draft  D
}

func NewSession[T any, D any](schema *Schema[T, D]) *Session[T, D] {
	return &Session[T, D]{schema: schema}
}

func (s *Session[T, D]) StartNew(ctx context.Context) error {
	if _, err := auth.OwnerID(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var empty D
	s.state, s.target, s.draft = Creating, "", empty
	return nil
}

// Edit switches to Editing(row) with the draft populated from row.
func (s *Session[T, D]) Edit(ctx context.Context, row T) error {
	if _, err := auth.OwnerID(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state, s.target, s.draft = Editing, s.schema.ID(row), s.schema.DraftOf(row)
	return nil
}

// Update changes the current draft. It reports false when idle.
func (s *Session[T, D]) Update(fn func(*D)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Idle {
		return false
	}
	fn(&s.draft)
	return true
}

func (s *Session[T, D]) Cancel() {
	s.reset()
}

func (s *Session[T, D]) Snapshot() Snapshot[D] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot[D]{State: s.state, TargetID: s.target, Draft: s.draft}
}

// CanSubmit reports whether the draft satisfies the required-field predicate.
func (s *Session[T, D]) CanSubmit() bool {
	snap := s.Snapshot()
	if snap.State == Idle {
		return false
	}
	return s.schema.Validate(snap.Draft) == nil
}

func (s *Session[T, D]) editing(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Editing && s.target == id
}

func (s *Session[T, D]) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var empty D
	s.state, s.target, s.draft = Idle, "", empty
}
