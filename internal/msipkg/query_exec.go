package msipkg

import (
	"msi/internal/core"
	"msi/internal/querylang"
)

// QueryResult is the result of executing a SELECT: column headers (in
// projection order) and the matching rows.
type QueryResult struct {
	Columns []string
	Rows    []core.Row
}

// Query parses and executes a single statement against the package.
// SELECT returns a non-nil *QueryResult; INSERT/UPDATE/DELETE return
// nil and mutate the package's in-memory rows (callers still need to
// Flush to persist them).
func (p *Package) Query(src string) (*QueryResult, error) {
	stmt, err := querylang.Parse(src)
	if err != nil {
		return nil, core.Wrap(core.KindQuery, "query", "", err)
	}
	return p.exec(stmt)
}

// Exec runs a semicolon-separated sequence of statements, returning
// the result of each SELECT in order. Execution stops at the first
// failing statement; earlier statements keep their effects.
func (p *Package) Exec(src string) ([]*QueryResult, error) {
	stmts, err := querylang.ParseAll(src)
	if err != nil {
		return nil, core.Wrap(core.KindQuery, "query", "", err)
	}
	var results []*QueryResult
	for _, stmt := range stmts {
		res, err := p.exec(stmt)
		if err != nil {
			return nil, err
		}
		if res != nil {
			results = append(results, res)
		}
	}
	return results, nil
}

func (p *Package) exec(stmt querylang.Statement) (*QueryResult, error) {
	switch s := stmt.(type) {
	case *querylang.SelectStatement:
		return p.execSelect(s)
	case *querylang.InsertStatement:
		return nil, p.execInsert(s)
	case *querylang.UpdateStatement:
		return nil, p.execUpdate(s)
	case *querylang.DeleteStatement:
		return nil, p.execDelete(s)
	default:
		return nil, core.NewError(core.KindQuery, "query", "", "unrecognized statement")
	}
}

func (p *Package) loadTableRows(ref querylang.TableRef) (*core.Table, []core.Row, string, error) {
	t, ok := p.Table(ref.Name)
	if !ok {
		return nil, nil, "", core.NewError(core.KindQuery, "table", ref.Name, "unknown table")
	}
	if err := p.ensureLoaded(ref.Name); err != nil {
		return nil, nil, "", err
	}
	alias := ref.Alias
	if alias == "" {
		alias = ref.Name
	}
	return t, p.tables[ref.Name].rows, alias, nil
}

// execSelect builds a left-deep join plan over From and Joins, filters
// by Where, and projects Columns.
func (p *Package) execSelect(s *querylang.SelectStatement) (*QueryResult, error) {
	t, rows, alias, err := p.loadTableRows(s.From)
	if err != nil {
		return nil, err
	}

	var cols []joinedColumn
	for _, c := range t.Columns {
		cols = append(cols, joinedColumn{table: alias, name: c.Name, kind: c.Type.Kind})
	}
	var plan []joinedRow
	for _, row := range rows {
		plan = append(plan, joinedRow{values: append([]core.Value{}, row...)})
	}

	for _, j := range s.Joins {
		jt, jrows, jalias, err := p.loadTableRows(j.Table)
		if err != nil {
			return nil, err
		}
		var jcols []joinedColumn
		for _, c := range jt.Columns {
			jcols = append(jcols, joinedColumn{table: jalias, name: c.Name, kind: c.Type.Kind})
		}
		plan, err = applyJoin(cols, plan, jcols, jrows, j)
		if err != nil {
			return nil, err
		}
		cols = append(cols, jcols...)
	}

	var out []core.Row
	for _, jr := range plan {
		if s.Where != nil {
			v, err := querylang.Eval(s.Where, rowEnv{cols: cols, row: jr})
			if err != nil {
				return nil, core.Wrap(core.KindQuery, "where", "", err)
			}
			if v.IsNull() || v.Int() == 0 {
				continue
			}
		}
		out = append(out, core.Row(jr.values))
	}

	var header []string
	var projIdx []int
	if len(s.Columns) == 0 {
		for i, c := range cols {
			header = append(header, c.table+"."+c.name)
			projIdx = append(projIdx, i)
		}
	} else {
		for _, sc := range s.Columns {
			if sc.Star {
				for i, c := range cols {
					header = append(header, c.table+"."+c.name)
					projIdx = append(projIdx, i)
				}
				continue
			}
			idx, err := resolveColumnIndex(cols, sc.Table, sc.Name)
			if err != nil {
				return nil, err
			}
			header = append(header, sc.Name)
			projIdx = append(projIdx, idx)
		}
	}

	result := &QueryResult{Columns: header}
	for _, row := range out {
		projected := make(core.Row, len(projIdx))
		for i, idx := range projIdx {
			projected[i] = row[idx]
		}
		result.Rows = append(result.Rows, projected)
	}
	return result, nil
}

func resolveColumnIndex(cols []joinedColumn, table, name string) (int, error) {
	match := -1
	for i, c := range cols {
		if c.name != name {
			continue
		}
		if table != "" && c.table != table {
			continue
		}
		if match != -1 {
			return 0, core.NewError(core.KindQuery, "column", name, "ambiguous column reference")
		}
		match = i
	}
	if match == -1 {
		return 0, core.NewError(core.KindQuery, "column", name, "unknown column")
	}
	return match, nil
}

// applyJoin evaluates j.On for every (left, right) pair; LEFT joins
// that find no right-side match emit one row with right-side columns
// NULL.
func applyJoin(leftCols []joinedColumn, left []joinedRow, rightCols []joinedColumn, rightRows []core.Row, j querylang.Join) ([]joinedRow, error) {
	var out []joinedRow
	for _, lrow := range left {
		matched := false
		for _, rrow := range rightRows {
			combined := append(append([]core.Value{}, lrow.values...), rrow...)
			allCols := append(append([]joinedColumn{}, leftCols...), rightCols...)
			v, err := querylang.Eval(j.On, rowEnv{cols: allCols, row: joinedRow{values: combined}})
			if err != nil {
				return nil, core.Wrap(core.KindQuery, "on", "", err)
			}
			if !v.IsNull() && v.Int() != 0 {
				out = append(out, joinedRow{values: combined})
				matched = true
			}
		}
		if !matched && j.Kind == querylang.LeftJoin {
			combined := append([]core.Value{}, lrow.values...)
			for _, rc := range rightCols {
				combined = append(combined, core.NullValue(rc.kind))
			}
			out = append(out, joinedRow{values: combined})
		}
	}
	return out, nil
}
