package msipkg

import (
	"strings"

	"msi/internal/core"
)

// Flush rewrites every dirty stream: the string pool if it changed, the
// system catalog (_Tables/_Columns/_Validation) if any schema changed,
// and each table whose rows changed. Flush is idempotent: calling it
// again with nothing dirty is a no-op.
func (p *Package) Flush() error {
	for _, name := range p.Tables() {
		m := p.tables[name]
		if !m.dirty {
			continue
		}
		if err := p.ensureLoaded(name); err != nil {
			return err
		}
		m.table.SortRows(m.rows)
		data, err := encodeTableRows(p.pool, m.table, m.rows)
		if err != nil {
			return err
		}
		if err := p.store.WriteStream(m.table.StreamName, data); err != nil {
			return core.Wrap(core.KindIO, "stream", m.table.StreamName, err)
		}
		m.dirty = false
	}

	for name, m := range p.tables {
		if m.deleted {
			_ = p.store.RemoveStream(m.table.StreamName)
			delete(p.tables, name)
		}
	}

	if p.schemaDirty {
		if err := p.flushCatalog(); err != nil {
			return err
		}
		p.schemaDirty = false
		p.poolDirty = true // catalog rows intern their strings through the pool
	}

	if p.poolDirty {
		if err := p.flushPool(); err != nil {
			return err
		}
		p.poolDirty = false
	}

	return nil
}

// encodeTableRows resolves rows' resolved string Values to the
// StringRefs the pool already holds for them before running the
// positional row codec. Refcounts themselves are maintained at mutation
// time (INSERT/UPDATE/DELETE), not here: by flush time every live
// string in a row must already have a pool entry.
func encodeTableRows(pool *core.StringPool, t *core.Table, rows []core.Row) ([]byte, error) {
	encoded := make([]core.Row, len(rows))
	for ri, row := range rows {
		er := make(core.Row, len(row))
		for ci, col := range t.Columns {
			v := row[ci]
			if col.Type.Kind == core.KindStr && !v.IsNull() {
				ref, ok := pool.RefOf(v.Str())
				if !ok {
					return nil, core.NewError(core.KindMalformed, "string_pool", v.Str(), "row references a string with no pool entry")
				}
				er[ci] = core.IntValue(core.KindStr, int32(ref))
			} else {
				er[ci] = v
			}
		}
		encoded[ri] = er
	}
	return core.EncodeRows(t, encoded, pool.LongRefMode())
}

func (p *Package) flushPool() error {
	data, pool, err := p.pool.EncodeStreams()
	if err != nil {
		return err
	}
	if err := p.store.WriteStream(streamStringData, data); err != nil {
		return core.Wrap(core.KindIO, "stream", streamStringData, err)
	}
	if err := p.store.WriteStream(streamStringPool, pool); err != nil {
		return core.Wrap(core.KindIO, "stream", streamStringPool, err)
	}
	return nil
}

func (p *Package) flushCatalog() error {
	names := p.sortedTableNames()

	tablesSchemaT := tablesSchema()
	var tableRows []core.Row
	for _, name := range names {
		tableRows = append(tableRows, core.Row{core.StrValue(name)})
	}
	if err := p.writeSystemTable(tablesSchemaT, streamTables, tableRows); err != nil {
		return err
	}

	columnsSchemaT := columnsSchema()
	validationSchemaT := validationSchema()
	var columnRows, validationRows []core.Row
	for _, name := range names {
		t, _ := p.Table(name)
		for i, c := range t.Columns {
			columnRows = append(columnRows, core.Row{
				core.StrValue(name),
				core.IntValue(core.KindInt16, int32(i+1)),
				core.StrValue(c.Name),
				core.IntValue(core.KindInt16, int32(c.PackedType())),
			})
			nullable := "N"
			if c.Nullable {
				nullable = "Y"
			}
			fkTable := core.NullValue(core.KindStr)
			fkColumn := core.NullValue(core.KindInt16)
			if c.ValueSet.IsFK() {
				fkTable = core.StrValue(c.ValueSet.FKTable)
				fkColumn = core.IntValue(core.KindInt16, p.keyColumnOrdinal(c.ValueSet))
			}
			valueSet := core.NullValue(core.KindStr)
			if c.ValueSet != nil && len(c.ValueSet.Allowed) > 0 {
				valueSet = core.StrValue(strings.Join(c.ValueSet.Allowed, ";"))
			}
			validationRows = append(validationRows, core.Row{
				core.StrValue(name),
				core.StrValue(c.Name),
				core.StrValue(nullable),
				core.NullValue(core.KindInt32),
				core.NullValue(core.KindInt32),
				fkTable,
				fkColumn,
				core.StrValue(string(c.Category)),
				valueSet,
				core.NullValue(core.KindStr),
			})
		}
	}
	if err := p.writeSystemTable(columnsSchemaT, streamColumns, columnRows); err != nil {
		return err
	}
	return p.writeSystemTable(validationSchemaT, streamValidation, validationRows)
}

// keyColumnOrdinal is the 1-based _Validation.KeyColumn value for a
// foreign key: the position of the referenced column within its table's
// on-disk column order, defaulting to the first column.
func (p *Package) keyColumnOrdinal(vs *core.ValueSet) int32 {
	if target, ok := p.Table(vs.FKTable); ok {
		if idx := target.ColumnIndex(vs.FKCol); idx >= 0 {
			return int32(idx + 1)
		}
	}
	return 1
}

func (p *Package) writeSystemTable(schema *core.Table, streamName string, rows []core.Row) error {
	schema.SortRows(rows)
	encoded, err := encodeTableRows(p.pool, schema, rows)
	if err != nil {
		return err
	}
	if err := p.store.WriteStream(streamName, encoded); err != nil {
		return core.Wrap(core.KindIO, "stream", streamName, err)
	}
	return nil
}
