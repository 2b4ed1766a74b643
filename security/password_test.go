package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uno-framework/uno/vars"
)

func TestHashAndVerifyPassword(t *testing.T) {
	encoded, err := HashPassword("hunter2")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$"))

	require.NoError(t, VerifyPassword("hunter2", encoded))
	require.ErrorIs(t, VerifyPassword("wrong", encoded), vars.ErrBadCredentials)
}

func TestHashPasswordSalted(t *testing.T) {
	a, err := HashPassword("same")
	require.NoError(t, err)
	b, err := HashPassword("same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.NoError(t, VerifyPassword("same", a))
	require.NoError(t, VerifyPassword("same", b))
}

func TestVerifyPasswordMalformed(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plainhash",
		"$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA",
	} {
		require.ErrorIs(t, VerifyPassword("x", encoded), vars.ErrBadCredentials, encoded)
	}
}
