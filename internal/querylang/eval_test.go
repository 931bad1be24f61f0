package querylang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msi/internal/core"
)

type mapEnv map[string]core.Value

func (m mapEnv) Resolve(table, name string) (core.Value, error) {
	key := name
	if table != "" {
		key = table + "." + name
	}
	v, ok := m[key]
	if !ok {
		return core.Value{}, assertNotFoundErr(key)
	}
	return v, nil
}

type notFoundErr string

func (e notFoundErr) Error() string { return "unresolved column: " + string(e) }

func assertNotFoundErr(key string) error { return notFoundErr(key) }

func mustParseExpr(t *testing.T, src string) Expr {
	t.Helper()
	stmt, err := Parse("SELECT * FROM T WHERE " + src)
	require.NoError(t, err)
	return stmt.(*SelectStatement).Where
}

func TestEvalArithmetic(t *testing.T) {
	v, err := Eval(mustParseExpr(t, "1+2*3"), mapEnv{})
	require.NoError(t, err)
	assert.EqualValues(t, 7, v.Int())
}

func TestEvalDivisionByZeroIsNull(t *testing.T) {
	v, err := Eval(mustParseExpr(t, "1/0"), mapEnv{})
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestEvalComparisonAcrossTypesIsNull(t *testing.T) {
	env := mapEnv{"Id": core.IntValue(core.KindInt32, 1)}
	v, err := Eval(mustParseExpr(t, "Id='x'"), env)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestEvalThreeValuedAnd(t *testing.T) {
	env := mapEnv{"A": core.NullValue(core.KindInt32)}
	v, err := Eval(mustParseExpr(t, "A=1 AND 1=1"), env)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestEvalShortCircuitOr(t *testing.T) {
	env := mapEnv{"A": core.IntValue(core.KindInt32, 1)}
	v, err := Eval(mustParseExpr(t, "A=1 OR B=1"), env)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v.Int())
}

func TestEvalColumnReference(t *testing.T) {
	env := mapEnv{"T.Name": core.StrValue("alpha")}
	v, err := Eval(mustParseExpr(t, "T.Name='alpha'"), env)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v.Int())
}
