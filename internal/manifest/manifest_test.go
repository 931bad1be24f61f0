package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msi/internal/summary"
)

const sampleManifest = `
[package]
codepage = 1252
title = "Test Database"
author = "Example Corp"

[[tables]]
name = "Component"
columns = [
    { name = "Component", type = "str72", primary_key = true },
]
rows = [
    ["comp1"],
]

[[tables]]
name = "File"
columns = [
    { name = "File", type = "str72", primary_key = true },
    { name = "Component_", type = "str72", fk_table = "Component", fk_column = "Component" },
    { name = "FileSize", type = "int32", nullable = true },
]
rows = [
    ["readme.txt", "comp1", 120],
    ["app.exe", "comp1", 204800],
]
`

func TestParseBuildsTablesAndRows(t *testing.T) {
	pkg, err := Parse(strings.NewReader(sampleManifest))
	require.NoError(t, err)

	assert.Equal(t, []string{"Component", "File"}, pkg.Tables())

	res, err := pkg.Query("SELECT File, FileSize FROM File WHERE FileSize > 1000")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "app.exe", res.Rows[0][0].Str())
	assert.EqualValues(t, 204800, res.Rows[0][1].Int())
}

func TestParseEnforcesForeignKeys(t *testing.T) {
	bad := strings.Replace(sampleManifest, `"readme.txt", "comp1"`, `"readme.txt", "nope"`, 1)
	_, err := Parse(strings.NewReader(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "referenced row does not exist")
}

func TestParseCarriesSummaryMetadata(t *testing.T) {
	pkg, err := Parse(strings.NewReader(sampleManifest))
	require.NoError(t, err)

	si, err := pkg.SummaryInfo()
	require.NoError(t, err)

	title, ok := si.Get(summary.PropTitle)
	require.True(t, ok)
	assert.Equal(t, "Test Database", title.Str())

	author, ok := si.Get(summary.PropAuthor)
	require.True(t, ok)
	assert.Equal(t, "Example Corp", author.Str())
}

func TestParseRejectsUnknownColumnType(t *testing.T) {
	bad := strings.Replace(sampleManifest, `type = "int32"`, `type = "bigint"`, 1)
	_, err := Parse(strings.NewReader(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized column type")
}

func TestParseRejectsRowArityMismatch(t *testing.T) {
	bad := strings.Replace(sampleManifest, `["comp1"]`, `["comp1", 1]`, 1)
	_, err := Parse(strings.NewReader(bad))
	require.Error(t, err)
}

func TestParseRejectsUnknownPackageType(t *testing.T) {
	bad := strings.Replace(sampleManifest, "codepage = 1252", "codepage = 1252\ntype = \"bundle\"", 1)
	_, err := Parse(strings.NewReader(bad))
	require.Error(t, err)
}
