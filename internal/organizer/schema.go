// Package organizer is the client side synchronization core shared by every
// resource type: read-through stores, mutation coordination, edit sessions,
// media URL resolution and batch uploads.
package organizer

import (
	"io"

	"github.com/xxxsen/mshelf/internal/gateway"
)

// Schema describes one resource type to the generic store, session and
// coordinator. T is the row type, D the editable draft.
type Schema[T any, D any] struct {
	Name    string
	OrderBy string
	// Validate is the required-field predicate. It must return a
	// *errors.ValidationError on failure.
	Validate func(D) error
	// NewRow builds the row sent to Insert.
	NewRow func(ownerID string, d D) T
	// Patch builds the update patch. Nil means the resource is immutable.
	Patch   func(D) gateway.Patch
	DraftOf func(T) D
	ID      func(T) string
	Ctime   func(T) int64
	// StoragePath is set for binary-backed resources. Their binary is put
	// before the row is inserted and removed before the row is deleted.
	StoragePath func(T) string
	// Payload returns the binary of a draft of a binary-backed resource.
	Payload func(D) (body io.Reader, size int64, contentType string)
	// Visible filters rows out of a store view. Nil keeps every row.
	Visible func(T) bool
}

func (s *Schema[T, D]) binaryBacked() bool {
	return s.StoragePath != nil
}

func (s *Schema[T, D]) mutable() bool {
	return s.Patch != nil
}
