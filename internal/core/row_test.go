package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowEncodeDecodeRoundTrip(t *testing.T) {
	tbl, err := NewTable("Media", []*Column{
		{Name: "DiskId", Type: Int16Type, PrimaryKey: true},
		{Name: "LastSequence", Type: Int16Type, Nullable: true},
		{Name: "Cabinet", Type: StrType(255), Nullable: true},
	})
	require.NoError(t, err)

	rows := []Row{
		{IntValue(KindInt16, 1), IntValue(KindInt16, 100), IntValue(KindStr, 1)},
		{IntValue(KindInt16, 2), NullValue(KindInt16), NullValue(KindStr)},
		{IntValue(KindInt16, 3), IntValue(KindInt16, -5), IntValue(KindStr, 2)},
	}

	data, err := EncodeRows(tbl, rows, false)
	require.NoError(t, err)

	got, err := DecodeRows(tbl, data, false)
	require.NoError(t, err)
	require.Len(t, got, 3)

	for i := range rows {
		assert.Equal(t, rows[i][0].Int(), got[i][0].Int())
		if rows[i][1].IsNull() {
			assert.True(t, got[i][1].IsNull())
		} else {
			assert.Equal(t, rows[i][1].Int(), got[i][1].Int())
		}
		if rows[i][2].IsNull() {
			assert.True(t, got[i][2].IsNull())
		} else {
			assert.Equal(t, rows[i][2].Int(), got[i][2].Int())
		}
	}
}

func TestDecodeRowsRejectsTruncatedStream(t *testing.T) {
	tbl, err := NewTable("T", []*Column{
		{Name: "Id", Type: Int32Type, PrimaryKey: true},
	})
	require.NoError(t, err)

	_, err = DecodeRows(tbl, []byte{1, 2, 3}, false)
	require.Error(t, err)
}

func TestEncodeRowsLongRefWidth(t *testing.T) {
	tbl, err := NewTable("T", []*Column{
		{Name: "Id", Type: Int32Type, PrimaryKey: true},
		{Name: "Name", Type: StrType(255), Nullable: true},
	})
	require.NoError(t, err)

	rows := []Row{{IntValue(KindInt32, 1), IntValue(KindStr, 0x10203)}}
	data, err := EncodeRows(tbl, rows, true)
	require.NoError(t, err)
	assert.Len(t, data, 4+3) // one Int32 column + one 3-byte ref column, one row

	got, err := DecodeRows(tbl, data, true)
	require.NoError(t, err)
	assert.Equal(t, int32(0x10203), got[0][1].Int())
}

func TestResolveStrings(t *testing.T) {
	tbl, err := NewTable("T", []*Column{
		{Name: "Id", Type: Int32Type, PrimaryKey: true},
		{Name: "Name", Type: StrType(255), Nullable: true},
	})
	require.NoError(t, err)

	pool := NewStringPool(CodePageDefault)
	ref := pool.Incref("hello")

	rows := []Row{{IntValue(KindInt32, 1), IntValue(KindStr, int32(ref))}}
	require.NoError(t, ResolveStrings(tbl, rows, pool))
	assert.Equal(t, "hello", rows[0][1].Str())
}
