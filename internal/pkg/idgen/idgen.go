package idgen

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/oklog/ulid/v2"
)

// NewID returns a lexicographically sortable id; ids created later in the
// same process sort after earlier ones.
func NewID() string {
	return ulid.Make().String()
}

func RandomHex(size int) string {
	if size <= 0 {
		return ""
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
