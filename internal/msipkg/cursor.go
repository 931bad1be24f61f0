package msipkg

import "msi/internal/core"

// joinedRow is one row of a (possibly multi-table) join result: the
// source tables' values concatenated in one slice, aligned with the
// []joinedColumn layout it is evaluated against.
type joinedRow struct {
	values []core.Value
}

// joinedColumn names one projected slot in a join result, qualified by
// the table (or alias) it came from.
type joinedColumn struct {
	table string
	name  string
	kind  core.ColumnKind
}

// rowEnv adapts one joinedRow plus its column layout to querylang.Env,
// resolving both qualified (T.C) and unambiguous bare (C) references.
type rowEnv struct {
	cols []joinedColumn
	row  joinedRow
}

func (e rowEnv) Resolve(table, name string) (core.Value, error) {
	match := -1
	for i, c := range e.cols {
		if c.name != name {
			continue
		}
		if table != "" && c.table != table {
			continue
		}
		if match != -1 {
			return core.Value{}, core.NewError(core.KindQuery, "column", name, "ambiguous column reference")
		}
		match = i
	}
	if match == -1 {
		return core.Value{}, core.NewError(core.KindQuery, "column", name, "unknown column")
	}
	return e.row.values[match], nil
}
