package gateway

import (
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/mshelf/internal/pkg/errors"
)

func TestParseOrder(t *testing.T) {
	desc, err := ParseOrder("")
	require.NoError(t, err)
	require.True(t, desc)

	desc, err = ParseOrder("CTIME   ASC")
	require.NoError(t, err)
	require.False(t, desc)

	_, err = ParseOrder("title desc")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestCheckPatch(t *testing.T) {
	require.NoError(t, CheckPatch(Patch{"title": "a"}, "title", "content"))
	require.ErrorIs(t, CheckPatch(Patch{}, "title"), appErr.ErrInvalid)
	require.ErrorIs(t, CheckPatch(Patch{"ctime": 1}, "title"), appErr.ErrInvalid)
}

func TestOwnsPath(t *testing.T) {
	require.True(t, OwnsPath("u1", "u1/1700_a.png"))
	require.False(t, OwnsPath("u1", "u2/1700_a.png"))
	require.False(t, OwnsPath("u1", "u1/"))
	require.False(t, OwnsPath("u1", "u1/../u2/a.png"))
	require.False(t, OwnsPath("", "u1/a.png"))
	require.False(t, OwnsPath("u1", "u10/a.png"))
}
