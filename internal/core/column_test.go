package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("File"))
	assert.True(t, ValidIdentifier("_Property"))
	assert.False(t, ValidIdentifier(""))
	assert.False(t, ValidIdentifier("1File"))
	assert.False(t, ValidIdentifier("Bad Name"))
}

func TestColumnPackedTypeRoundTrip(t *testing.T) {
	cols := []*Column{
		{Name: "Id", Type: Int32Type, PrimaryKey: true},
		{Name: "Name", Type: StrType(72), Nullable: true, Localizable: true},
		{Name: "Size", Type: Int16Type, Nullable: true},
		{Name: "Attr", Type: StrType(255), ValueSet: &ValueSet{FKTable: "Component", FKCol: "Component"}},
	}
	for _, c := range cols {
		packed := c.PackedType()
		got, err := ColumnFromPacked(c.Name, packed)
		require.NoError(t, err)
		assert.Equal(t, c.Type, got.Type)
		assert.Equal(t, c.Nullable, got.Nullable)
		assert.Equal(t, c.PrimaryKey, got.PrimaryKey)
		assert.Equal(t, c.Localizable, got.Localizable)
		assert.Equal(t, c.ValueSet != nil, got.ValueSet != nil)
	}
}

func TestColumnValidateRejectsBadStringWidth(t *testing.T) {
	c := &Column{Name: "Name", Type: StrType(0)}
	require.Error(t, c.Validate())
	c = &Column{Name: "Name", Type: StrType(256)}
	require.Error(t, c.Validate())
}

func TestColumnValidateRejectsLocalizableNonString(t *testing.T) {
	c := &Column{Name: "Size", Type: Int32Type, Localizable: true}
	require.Error(t, c.Validate())
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, CategoryGUID, NormalizeCategory("guid"))
	assert.Equal(t, CategoryIdentifier, NormalizeCategory("Identifier"))
	assert.Equal(t, CategoryText, NormalizeCategory("something-unknown"))
}
