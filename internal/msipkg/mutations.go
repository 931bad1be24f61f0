package msipkg

import (
	"msi/internal/core"
	"msi/internal/querylang"
)

// noRowEnv rejects column references; INSERT's VALUES list and a bare
// literal expression have no row context to resolve them against.
type noRowEnv struct{}

func (noRowEnv) Resolve(table, name string) (core.Value, error) {
	return core.Value{}, core.NewError(core.KindQuery, "column", name, "column references are not valid here")
}

// execInsert appends one row after checking PK uniqueness, foreign-key
// validity, nullability, and value-set membership; string values are
// interned.
func (p *Package) execInsert(s *querylang.InsertStatement) error {
	t, ok := p.Table(s.Table)
	if !ok {
		return core.NewError(core.KindQuery, "table", s.Table, "unknown table")
	}
	if err := p.ensureLoaded(s.Table); err != nil {
		return err
	}
	m := p.tables[s.Table]

	targets := s.Columns
	if len(targets) == 0 {
		for _, c := range t.Columns {
			targets = append(targets, c.Name)
		}
	}
	if len(targets) != len(s.Values) {
		return core.NewError(core.KindQuery, "insert", s.Table, "column list and VALUES count mismatch")
	}

	row := make(core.Row, len(t.Columns))
	for i := range row {
		row[i] = core.NullValue(t.Columns[i].Type.Kind)
	}
	for i, colName := range targets {
		idx := t.ColumnIndex(colName)
		if idx < 0 {
			return core.NewError(core.KindQuery, "column", colName, "unknown column")
		}
		v, err := querylang.Eval(s.Values[i], noRowEnv{})
		if err != nil {
			return core.Wrap(core.KindQuery, "insert", colName, err)
		}
		coerced, err := coerceToColumn(t.Columns[idx], v)
		if err != nil {
			return err
		}
		row[idx] = coerced
	}

	for i, c := range t.Columns {
		if row[i].IsNull() && !c.Nullable {
			return core.NewError(core.KindConstraint, "column", c.Name, "NULL not allowed")
		}
	}
	if err := validateRow(p, t, row); err != nil {
		return err
	}
	for _, existing := range m.rows {
		if t.Compare(existing, row) == 0 {
			return core.NewError(core.KindConstraint, "row", s.Table, "duplicate primary key")
		}
	}

	if err := increfRowStrings(p.pool, t, row); err != nil {
		return err
	}
	m.rows = append(m.rows, row)
	t.SortRows(m.rows)
	m.dirty = true
	p.poolDirty = true
	return nil
}

// coerceToColumn rejects assignments whose value type doesn't match
// the column, applies the column's length/category/value-set checks,
// and translates the evaluator's generic KindInt32 integers into the
// column's own width tag.
func coerceToColumn(col *core.Column, v core.Value) (core.Value, error) {
	if v.IsNull() {
		if !col.Nullable {
			return core.Value{}, core.NewError(core.KindConstraint, "column", col.Name, "NULL not allowed")
		}
		return core.NullValue(col.Type.Kind), nil
	}
	if col.Type.Kind == core.KindStr {
		if v.Kind() != core.KindStr {
			return core.Value{}, core.NewError(core.KindQuery, "column", col.Name, "type mismatch: expected a string")
		}
		if len(v.Str()) > col.Type.MaxLen {
			return core.Value{}, core.NewError(core.KindConstraint, "column", col.Name, "string longer than the column's maximum length")
		}
		if err := core.ValidateCategory(col.Category, v.Str()); err != nil {
			return core.Value{}, err
		}
		if col.ValueSet != nil && len(col.ValueSet.Allowed) > 0 && !contains(col.ValueSet.Allowed, v.Str()) {
			return core.Value{}, core.NewError(core.KindConstraint, "column", col.Name, "value not in the column's value set")
		}
		return v, nil
	}
	if v.Kind() == core.KindStr {
		return core.Value{}, core.NewError(core.KindQuery, "column", col.Name, "type mismatch: expected an integer")
	}
	return core.IntValue(col.Type.Kind, v.Int()), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// validateRow checks foreign-key references against their target
// table's current rows.
func validateRow(p *Package, t *core.Table, row core.Row) error {
	for i, col := range t.Columns {
		if col.ValueSet == nil || !col.ValueSet.IsFK() {
			continue
		}
		if row[i].IsNull() {
			continue
		}
		target, ok := p.Table(col.ValueSet.FKTable)
		if !ok {
			return core.NewError(core.KindConstraint, "column", col.Name, "foreign key references an unknown table")
		}
		if err := p.ensureLoaded(col.ValueSet.FKTable); err != nil {
			return err
		}
		pkIdx := target.ColumnIndex(col.ValueSet.FKCol)
		if pkIdx < 0 || !target.Columns[pkIdx].PrimaryKey {
			return core.NewError(core.KindConstraint, "column", col.Name, "foreign key does not reference a primary key")
		}
		found := false
		for _, trow := range p.tables[col.ValueSet.FKTable].rows {
			if valuesEqual(trow[pkIdx], row[i]) {
				found = true
				break
			}
		}
		if !found {
			return core.NewError(core.KindConstraint, "column", col.Name, "referenced row does not exist")
		}
	}
	return nil
}

func valuesEqual(a, b core.Value) bool {
	if a.IsNull() != b.IsNull() {
		return false
	}
	if a.IsNull() {
		return true
	}
	if a.Kind() == core.KindStr {
		return a.Str() == b.Str()
	}
	return a.Int() == b.Int()
}

func increfRowStrings(pool *core.StringPool, t *core.Table, row core.Row) error {
	for i, col := range t.Columns {
		if col.Type.Kind != core.KindStr || row[i].IsNull() {
			continue
		}
		pool.Incref(row[i].Str())
	}
	return nil
}

// execUpdate evaluates every SET expression against the row's
// pre-update values, then commits all assignments together; a PK
// column change forces a re-sort.
func (p *Package) execUpdate(s *querylang.UpdateStatement) error {
	t, ok := p.Table(s.Table)
	if !ok {
		return core.NewError(core.KindQuery, "table", s.Table, "unknown table")
	}
	if err := p.ensureLoaded(s.Table); err != nil {
		return err
	}
	m := p.tables[s.Table]

	var cols []joinedColumn
	for _, c := range t.Columns {
		cols = append(cols, joinedColumn{table: s.Table, name: c.Name, kind: c.Type.Kind})
	}

	pkChanged := false
	type pendingUpdate struct {
		ri  int
		row core.Row
	}
	var pending []pendingUpdate
	for ri, row := range m.rows {
		if s.Where != nil {
			v, err := querylang.Eval(s.Where, rowEnv{cols: cols, row: joinedRow{values: row}})
			if err != nil {
				return core.Wrap(core.KindQuery, "where", "", err)
			}
			if v.IsNull() || v.Int() == 0 {
				continue
			}
		}

		preEnv := rowEnv{cols: cols, row: joinedRow{values: append([]core.Value{}, row...)}}
		newRow := append(core.Row{}, row...)
		for _, assign := range s.Set {
			idx := t.ColumnIndex(assign.Column)
			if idx < 0 {
				return core.NewError(core.KindQuery, "column", assign.Column, "unknown column")
			}
			v, err := querylang.Eval(assign.Value, preEnv)
			if err != nil {
				return core.Wrap(core.KindQuery, "update", assign.Column, err)
			}
			coerced, err := coerceToColumn(t.Columns[idx], v)
			if err != nil {
				return err
			}
			if t.Columns[idx].PrimaryKey {
				pkChanged = pkChanged || !valuesEqual(row[idx], coerced)
			}
			newRow[idx] = coerced
		}
		if err := validateRow(p, t, newRow); err != nil {
			return err
		}
		pending = append(pending, pendingUpdate{ri: ri, row: newRow})
	}

	for _, u := range pending {
		if err := swapRowStrings(p.pool, t, m.rows[u.ri], u.row); err != nil {
			return err
		}
		m.rows[u.ri] = u.row
		m.dirty = true
		p.poolDirty = true
	}

	if pkChanged {
		t.SortRows(m.rows)
	}
	return nil
}

func swapRowStrings(pool *core.StringPool, t *core.Table, oldRow, newRow core.Row) error {
	for i, col := range t.Columns {
		if col.Type.Kind != core.KindStr {
			continue
		}
		if valuesEqual(oldRow[i], newRow[i]) {
			continue
		}
		if !oldRow[i].IsNull() {
			if err := pool.DecrefText(oldRow[i].Str()); err != nil {
				return err
			}
		}
		if !newRow[i].IsNull() {
			pool.Incref(newRow[i].Str())
		}
	}
	return nil
}

// execDelete removes every row matching Where (all rows if Where is
// nil), decref'ing their string columns.
func (p *Package) execDelete(s *querylang.DeleteStatement) error {
	t, ok := p.Table(s.Table)
	if !ok {
		return core.NewError(core.KindQuery, "table", s.Table, "unknown table")
	}
	if err := p.ensureLoaded(s.Table); err != nil {
		return err
	}
	m := p.tables[s.Table]

	var cols []joinedColumn
	for _, c := range t.Columns {
		cols = append(cols, joinedColumn{table: s.Table, name: c.Name, kind: c.Type.Kind})
	}

	var kept []core.Row
	for _, row := range m.rows {
		matches := true
		if s.Where != nil {
			v, err := querylang.Eval(s.Where, rowEnv{cols: cols, row: joinedRow{values: row}})
			if err != nil {
				return core.Wrap(core.KindQuery, "where", "", err)
			}
			matches = !v.IsNull() && v.Int() != 0
		}
		if !matches {
			kept = append(kept, row)
			continue
		}
		if err := decrefRowStrings(p.pool, t, row); err != nil {
			return err
		}
	}
	m.rows = kept
	m.dirty = true
	p.poolDirty = true
	return nil
}
