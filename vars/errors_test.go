package vars

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	require.NoError(t, Wrap(CodeModel, "get", nil))

	err := Wrap(CodeModel, "get", ErrNotFound)
	require.EqualError(t, err, "model.get: record not found")
	require.True(t, IsNotFound(err))
	require.True(t, errors.Is(err, ErrNotFound))

	var ue *UnoError
	require.True(t, errors.As(err, &ue))
	require.Equal(t, CodeModel, ue.Code)
}

func TestWrapNested(t *testing.T) {
	inner := Wrap(CodeOffline, "apply", ErrConflict)
	outer := Wrap(CodeEndpoint, "syncPush", inner)
	require.True(t, IsConflict(outer))
	require.False(t, IsNotFound(outer))
}
