package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	// The default cost is deliberately slow; a low cost keeps the test fast.
	hasher := &BcryptHasher{Cost: 4}

	hash, err := hasher.Hash("Sup3r$ecret")
	require.NoError(t, err)
	require.NotEqual(t, "Sup3r$ecret", hash)

	require.True(t, hasher.Compare(hash, "Sup3r$ecret"))
	require.False(t, hasher.Compare(hash, "sup3r$ecret"))
	require.False(t, hasher.Compare(hash, ""))
}

func TestBcryptHasherUniqueSalts(t *testing.T) {
	hasher := &BcryptHasher{Cost: 4}

	first, err := hasher.Hash("Sup3r$ecret")
	require.NoError(t, err)
	second, err := hasher.Hash("Sup3r$ecret")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}
