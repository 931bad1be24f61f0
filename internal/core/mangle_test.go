package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMangleRoundTrip(t *testing.T) {
	names := []string{"File", "Component", "_Property", "a", "ab", "abc", "Media.Cabinet"}
	for _, name := range names {
		mangled, err := MangleName(name)
		require.NoError(t, err)
		got, err := DemangleName(mangled)
		require.NoError(t, err)
		assert.Equal(t, name, got)
	}
}

func TestMangleSystemStreamsUnchanged(t *testing.T) {
	for name := range systemStreamNames {
		mangled, err := MangleName(name)
		require.NoError(t, err)
		assert.Equal(t, name, mangled)
	}
}

func TestMangleRejectsIllegalCharacters(t *testing.T) {
	_, err := MangleName("bad name!")
	require.Error(t, err)
	var coreErr *Error
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, KindSchema, coreErr.Kind)
}

func TestDemangleRejectsOutOfRangeCodePoint(t *testing.T) {
	_, err := DemangleName(string(rune(0x1000)))
	require.Error(t, err)
	var coreErr *Error
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, KindMalformed, coreErr.Kind)
}
