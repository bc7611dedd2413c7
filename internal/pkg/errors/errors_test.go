package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypedErrors(t *testing.T) {
	v := NewValidation("title", "is required")
	require.True(t, IsValidation(fmt.Errorf("wrap: %w", v)))
	require.Equal(t, "validation: title is required", v.Error())

	notEditing := &ValidationError{Field: "id", Reason: "is not being edited", Err: ErrNotEditing}
	require.True(t, errors.Is(notEditing, ErrNotEditing))
	require.True(t, IsValidation(notEditing))

	cause := errors.New("connection refused")
	r := NewRemote("insert", cause)
	require.True(t, IsRemote(r))
	require.ErrorIs(t, r, cause)
	require.False(t, IsValidation(r))

	p := &PartialDeleteError{ID: "1", StoragePath: "u/a", Err: cause}
	require.ErrorIs(t, p, ErrPartialDelete)
	require.ErrorIs(t, p, cause)
}
