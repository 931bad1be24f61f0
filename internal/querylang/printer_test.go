package querylang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatReparseRoundTrip(t *testing.T) {
	queries := []string{
		"SELECT * FROM Foo WHERE Id >= 2",
		"SELECT A.Id, B.Val FROM A LEFT JOIN B ON A.Id=B.Id WHERE A.Id=7",
		"SELECT Name FROM File F INNER JOIN Component C ON F.Component_ = C.Component",
		"INSERT INTO Foo (Id, Name) VALUES (1, 'al\\'pha')",
		"UPDATE Foo SET Name='a', Size = Size + 1 WHERE Id=2",
		"DELETE FROM Foo WHERE Id = 1 OR Name = 'x' AND NOT Size < 3",
		"SELECT * FROM T WHERE a | b & c << 2 + x * 3 = 0",
	}
	for _, q := range queries {
		first, err := Parse(q)
		require.NoError(t, err, q)
		printed := Format(first)
		second, err := Parse(printed)
		require.NoError(t, err, printed)
		assert.Equal(t, first, second, "round-trip changed the AST for %q (printed %q)", q, printed)
	}
}

func TestFormatQuotesEscapes(t *testing.T) {
	stmt, err := Parse(`INSERT INTO T VALUES ('line\nbreak')`)
	require.NoError(t, err)
	printed := Format(stmt)
	assert.Contains(t, printed, `'line\nbreak'`)
}
