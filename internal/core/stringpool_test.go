package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringPoolIncrefDecrefRoundTrip(t *testing.T) {
	p := NewStringPool(CodePageDefault)

	ref := p.Incref("hello")
	assert.Equal(t, StringRef(1), ref)
	assert.EqualValues(t, 1, p.Refcount(ref))

	ref2 := p.Incref("hello")
	assert.Equal(t, ref, ref2)
	assert.EqualValues(t, 2, p.Refcount(ref))

	s, err := p.Get(ref)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	require.NoError(t, p.Decref(ref))
	assert.EqualValues(t, 1, p.Refcount(ref))
	require.NoError(t, p.Decref(ref))
	assert.EqualValues(t, 0, p.Refcount(ref))

	_, err = p.Get(ref)
	require.Error(t, err)
}

func TestStringPoolEmptyStringIsRefZero(t *testing.T) {
	p := NewStringPool(CodePageDefault)
	assert.Equal(t, StringRef(0), p.Incref(""))
	s, err := p.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestStringPoolStreamRoundTrip(t *testing.T) {
	p := NewStringPool(CodePageDefault)
	p.Incref("File")
	ref := p.Incref("Component")
	p.Incref("Component")
	p.Incref("Directory")
	require.NoError(t, p.Decref(ref))
	require.NoError(t, p.Decref(ref))

	data, pool, err := p.EncodeStreams()
	require.NoError(t, err)

	got, err := DecodeStreams(data, pool)
	require.NoError(t, err)

	assert.Equal(t, CodePageDefault, got.CodePage())
	s, err := got.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "File", s)

	// Component was decref'd to zero: its slot is a hole.
	_, err = got.Get(2)
	require.Error(t, err)

	s, err = got.Get(3)
	require.NoError(t, err)
	assert.Equal(t, "Directory", s)
}

func TestStringPoolRefcountOverflowRoundTrips(t *testing.T) {
	p := NewStringPool(CodePageDefault)
	ref := p.Incref("shared")
	for i := uint32(1); i < 0x10005; i++ {
		p.entries[ref-1].refcount++
	}
	require.Greater(t, p.Refcount(ref), uint32(0xffff))

	data, pool, err := p.EncodeStreams()
	require.NoError(t, err)

	got, err := DecodeStreams(data, pool)
	require.NoError(t, err)
	assert.Equal(t, p.Refcount(ref), got.Refcount(ref))
}

func TestStringPoolCompactRemovesHoles(t *testing.T) {
	p := NewStringPool(CodePageDefault)
	a := p.Incref("a")
	b := p.Incref("b")
	c := p.Incref("c")
	require.NoError(t, p.Decref(b))

	remap := p.Compact()
	assert.Equal(t, StringRef(0), remap[b])
	assert.NotEqual(t, StringRef(0), remap[a])
	assert.NotEqual(t, StringRef(0), remap[c])
	assert.Equal(t, 2, p.Len())
}

func TestStringPoolLongRefModeTriggersAt65536Entries(t *testing.T) {
	p := NewStringPool(CodePageDefault)
	assert.False(t, p.LongRefMode())
	for i := 0; i < 1<<16; i++ {
		p.Incref(string(rune('a'+i%26)) + string(rune(0x10000+i)))
	}
	assert.True(t, p.LongRefMode())
	assert.Equal(t, 3, p.refWidth())
}
