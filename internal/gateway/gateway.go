package gateway

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	appErr "github.com/xxxsen/mshelf/internal/pkg/errors"
)

const (
	OrderByCtimeDesc = "ctime desc"
	OrderByCtimeAsc  = "ctime asc"
)

// Patch maps column names to new values. Implementations reject columns that
// are not mutable for their table.
type Patch map[string]interface{}

// Table is table-like CRUD over one resource type, scoped by owner.
type Table[T any] interface {
	Select(ctx context.Context, ownerID, orderBy string) ([]T, error)
	Insert(ctx context.Context, row T) (T, error)
	Update(ctx context.Context, ownerID, id string, patch Patch) error
	Delete(ctx context.Context, ownerID, id string) error
}

// ObjectStore holds the binaries behind file and media rows.
type ObjectStore interface {
	Put(ctx context.Context, path string, body io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, path string) error
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
	PublicURL(ctx context.Context, path string) (string, error)
}

// ParseOrder validates an orderBy clause. Only ctime ordering is supported;
// an empty clause means newest first.
func ParseOrder(orderBy string) (desc bool, err error) {
	switch strings.ToLower(strings.Join(strings.Fields(orderBy), " ")) {
	case "", OrderByCtimeDesc:
		return true, nil
	case OrderByCtimeAsc:
		return false, nil
	default:
		return false, fmt.Errorf("%w: unsupported order %q", appErr.ErrInvalid, orderBy)
	}
}

// CheckPatch rejects empty patches and columns outside the allowed set.
func CheckPatch(patch Patch, allowed ...string) error {
	if len(patch) == 0 {
		return fmt.Errorf("%w: empty patch", appErr.ErrInvalid)
	}
	for key := range patch {
		ok := false
		for _, col := range allowed {
			if key == col {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%w: column %q is not mutable", appErr.ErrInvalid, key)
		}
	}
	return nil
}

// OwnsPath reports whether path lies inside the owner's storage namespace.
func OwnsPath(ownerID, path string) bool {
	if ownerID == "" || path == "" {
		return false
	}
	if strings.Contains(path, "..") || strings.HasPrefix(path, "/") {
		return false
	}
	return strings.HasPrefix(path, ownerID+"/") && len(path) > len(ownerID)+1
}
