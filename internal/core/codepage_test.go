package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodePageASCIIRoundTrip(t *testing.T) {
	for _, cp := range []CodePage{CodePageDefault, CodePageUTF8, CodePageWindows1250} {
		raw, err := cp.Encode("Hello, World!")
		require.NoError(t, err)
		got, err := cp.Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, "Hello, World!", got)
	}
}

func TestCodePageUTF8RoundTripsNonASCII(t *testing.T) {
	raw, err := CodePageUTF8.Encode("héllo wörld")
	require.NoError(t, err)
	got, err := CodePageUTF8.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "héllo wörld", got)
}

func TestValidCodePage(t *testing.T) {
	assert.True(t, ValidCodePage(CodePageDefault))
	assert.True(t, ValidCodePage(CodePageUTF8))
	assert.False(t, ValidCodePage(CodePage(9999)))
}

func TestASCIICompatible(t *testing.T) {
	assert.True(t, ASCIICompatible("plain text"))
	assert.False(t, ASCIICompatible("héllo"))
}
