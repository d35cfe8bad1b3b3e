package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashStringIsDeterministic(t *testing.T) {
	require.Equal(t, HashString("abc"), HashString("abc"))
	require.NotEqual(t, HashString("abc"), HashString("abd"))
	require.Len(t, HashString("abc"), 64)
}

func TestRandomTokenLengthAndUniqueness(t *testing.T) {
	first, err := RandomToken(32)
	require.NoError(t, err)
	require.Len(t, first, 64)

	second, err := RandomToken(32)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestNewVerificationCode(t *testing.T) {
	raw, hashed, err := NewVerificationCode()
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	require.Equal(t, HashString(raw), hashed)
	require.NotEqual(t, raw, hashed)
}
