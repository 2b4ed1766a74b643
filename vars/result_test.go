package vars

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResult(t *testing.T) {
	ok := Success(42)
	require.True(t, ok.Ok())
	v, err := ok.Get()
	require.NoError(t, err)
	require.Equal(t, 42, v)

	bad := Failure[int](ErrNotFound)
	require.False(t, bad.Ok())
	_, err = bad.Get()
	require.ErrorIs(t, err, ErrNotFound)
}
