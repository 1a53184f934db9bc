package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRawToken(t *testing.T) {
	a, err := GenerateRawToken(RawTokenBytes)
	require.NoError(t, err)
	b, err := GenerateRawToken(RawTokenBytes)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, LooksLikeRawToken(a))
	assert.Len(t, a, 43)
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Equal(t, "ungWv48Bz-pBQUDeXa4iI7ADYaOWF3qctBD_YfIAFa0", HashToken("abc"))
}

func TestLooksLikeRawToken(t *testing.T) {
	assert.False(t, LooksLikeRawToken(""))
	assert.False(t, LooksLikeRawToken("short"))
	assert.False(t, LooksLikeRawToken("!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!"))
}
