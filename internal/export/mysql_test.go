package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msi/internal/core"
)

func sampleExportTable(t *testing.T) *core.Table {
	tbl, err := core.NewTable("File", []*core.Column{
		{Name: "File", Type: core.StrType(72), PrimaryKey: true},
		{Name: "Size", Type: core.Int32Type, Nullable: true},
	})
	require.NoError(t, err)
	return tbl
}

func TestBuildCreateTable(t *testing.T) {
	sql := buildCreateTable(sampleExportTable(t))
	assert.Contains(t, sql, "CREATE TABLE `File`")
	assert.Contains(t, sql, "`File` VARCHAR(72) NOT NULL")
	assert.Contains(t, sql, "`Size` INT")
	assert.Contains(t, sql, "PRIMARY KEY (`File`)")
}

func TestValueArgNull(t *testing.T) {
	assert.Nil(t, valueArg(core.NullValue(core.KindInt32)))
	assert.Equal(t, "x", valueArg(core.StrValue("x")))
	assert.EqualValues(t, 5, valueArg(core.IntValue(core.KindInt32, 5)))
}

func TestMysqlTypeMapping(t *testing.T) {
	assert.Equal(t, "SMALLINT", mysqlType(&core.Column{Type: core.Int16Type}))
	assert.Equal(t, "INT", mysqlType(&core.Column{Type: core.Int32Type}))
	assert.Equal(t, "VARCHAR(255)", mysqlType(&core.Column{Type: core.StrType(255)}))
}
