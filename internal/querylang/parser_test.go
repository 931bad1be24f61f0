package querylang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelectStar(t *testing.T) {
	stmt, err := Parse("SELECT * FROM Foo WHERE Id >= 2")
	require.NoError(t, err)
	sel, ok := stmt.(*SelectStatement)
	require.True(t, ok)
	assert.Empty(t, sel.Columns)
	assert.Equal(t, "Foo", sel.From.Name)
	require.NotNil(t, sel.Where)
}

func TestParseSelectColumnsAndJoin(t *testing.T) {
	stmt, err := Parse("SELECT A.Id, B.Val FROM A LEFT JOIN B ON A.Id=B.Id WHERE A.Id=7")
	require.NoError(t, err)
	sel, ok := stmt.(*SelectStatement)
	require.True(t, ok)
	require.Len(t, sel.Columns, 2)
	assert.Equal(t, "A", sel.Columns[0].Table)
	assert.Equal(t, "Id", sel.Columns[0].Name)
	require.Len(t, sel.Joins, 1)
	assert.Equal(t, LeftJoin, sel.Joins[0].Kind)
	assert.Equal(t, "B", sel.Joins[0].Table.Name)
}

func TestParseInsert(t *testing.T) {
	stmt, err := Parse("INSERT INTO Foo (Id, Name) VALUES (1, 'alpha')")
	require.NoError(t, err)
	ins, ok := stmt.(*InsertStatement)
	require.True(t, ok)
	assert.Equal(t, "Foo", ins.Table)
	assert.Equal(t, []string{"Id", "Name"}, ins.Columns)
	require.Len(t, ins.Values, 2)
}

func TestParseUpdate(t *testing.T) {
	stmt, err := Parse("UPDATE Foo SET Name='a' WHERE Id=2")
	require.NoError(t, err)
	upd, ok := stmt.(*UpdateStatement)
	require.True(t, ok)
	require.Len(t, upd.Set, 1)
	assert.Equal(t, "Name", upd.Set[0].Column)
}

func TestParseDeleteWithoutWhereMatchesAll(t *testing.T) {
	stmt, err := Parse("DELETE FROM Foo")
	require.NoError(t, err)
	del, ok := stmt.(*DeleteStatement)
	require.True(t, ok)
	assert.Nil(t, del.Where)
}

func TestParseAcceptsTrailingSemicolon(t *testing.T) {
	_, err := Parse("DELETE FROM Foo;")
	require.NoError(t, err)
}

func TestParseAllSplitsStatements(t *testing.T) {
	stmts, err := ParseAll("INSERT INTO Foo (Id) VALUES (1); SELECT * FROM Foo;")
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	_, ok := stmts[0].(*InsertStatement)
	assert.True(t, ok)
	_, ok = stmts[1].(*SelectStatement)
	assert.True(t, ok)
}

func TestParseAllRequiresSeparators(t *testing.T) {
	_, err := ParseAll("DELETE FROM Foo DELETE FROM Bar")
	require.Error(t, err)
}

func TestParseNonAssociativeComparisonErrors(t *testing.T) {
	_, err := Parse("SELECT * FROM T WHERE x = 1 = 2")
	require.Error(t, err)
}

func TestParsePrecedence(t *testing.T) {
	// OR binds looser than AND, which binds looser than comparison.
	stmt, err := Parse("SELECT * FROM T WHERE a = 1 OR b = 2 AND c = 3")
	require.NoError(t, err)
	sel := stmt.(*SelectStatement)
	top, ok := sel.Where.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, OR, top.Op)
	right, ok := top.Right.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, AND, right.Op)
}

func TestParseNotBindsTighterThanAnd(t *testing.T) {
	stmt, err := Parse("SELECT * FROM T WHERE NOT a = 1 AND b = 2")
	require.NoError(t, err)
	sel := stmt.(*SelectStatement)
	top, ok := sel.Where.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, AND, top.Op)
	left, ok := top.Left.(*UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, NOT, left.Op)
}
