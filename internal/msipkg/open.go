package msipkg

import (
	"errors"
	"sort"

	"msi/internal/cfb"
	"msi/internal/core"
)

// Open bootstraps a Package from an already-open CFB container: string
// pool first, then _Tables, _Columns, and _Validation, with per-table
// row materialization deferred until first access.
func Open(store cfb.Store) (*Package, error) {
	stringData, err := store.ReadStream(streamStringData)
	if err != nil && !errors.Is(err, cfb.ErrNotExist) {
		return nil, core.Wrap(core.KindIO, "stream", streamStringData, err)
	}
	stringPool, err := store.ReadStream(streamStringPool)
	if err != nil {
		if errors.Is(err, cfb.ErrNotExist) {
			return nil, core.NewError(core.KindNotMsi, "stream", streamStringPool, "missing _StringPool stream")
		}
		return nil, core.Wrap(core.KindIO, "stream", streamStringPool, err)
	}

	pool, err := core.DecodeStreams(stringData, stringPool)
	if err != nil {
		return nil, err
	}

	p := &Package{
		store:  store,
		pool:   pool,
		ptype:  packageTypeFromCLSID(store.CLSID()),
		tables: make(map[string]*tableMeta),
	}

	tableNames, err := p.readTableNames()
	if err != nil {
		return nil, err
	}

	columnsByTable, err := p.readColumnRows()
	if err != nil {
		return nil, err
	}

	validationByTable, err := p.readValidationRows()
	if err != nil {
		return nil, err
	}

	for _, name := range tableNames {
		cols, ok := columnsByTable[name]
		if !ok {
			return nil, core.NewError(core.KindMalformed, "table", name, "listed in _Tables but has no _Columns rows")
		}
		enrichColumns(cols, validationByTable[name], columnsByTable)
		t, err := core.NewTable(name, cols)
		if err != nil {
			return nil, err
		}
		p.addTableMeta(t)
	}

	return p, nil
}

func (p *Package) readTableNames() ([]string, error) {
	data, err := p.store.ReadStream(streamTables)
	if err != nil {
		if errors.Is(err, cfb.ErrNotExist) {
			return nil, nil
		}
		return nil, core.Wrap(core.KindIO, "stream", streamTables, err)
	}
	schema := tablesSchema()
	rows, err := core.DecodeRows(schema, data, p.pool.LongRefMode())
	if err != nil {
		return nil, err
	}
	if err := core.ResolveStrings(schema, rows, p.pool); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row[0].Str())
	}
	return names, nil
}

// columnRow mirrors one decoded _Columns record.
type columnRow struct {
	number int32
	name   string
	packed int16
}

func (p *Package) readColumnRows() (map[string][]*core.Column, error) {
	data, err := p.store.ReadStream(streamColumns)
	if err != nil {
		if errors.Is(err, cfb.ErrNotExist) {
			return map[string][]*core.Column{}, nil
		}
		return nil, core.Wrap(core.KindIO, "stream", streamColumns, err)
	}
	schema := columnsSchema()
	rows, err := core.DecodeRows(schema, data, p.pool.LongRefMode())
	if err != nil {
		return nil, err
	}
	if err := core.ResolveStrings(schema, rows, p.pool); err != nil {
		return nil, err
	}

	byTable := make(map[string][]columnRow)
	for _, row := range rows {
		table := row[0].Str()
		byTable[table] = append(byTable[table], columnRow{
			number: row[1].Int(),
			name:   row[2].Str(),
			packed: int16(row[3].Int()),
		})
	}

	result := make(map[string][]*core.Column, len(byTable))
	for table, crows := range byTable {
		sort.Slice(crows, func(i, j int) bool { return crows[i].number < crows[j].number })
		cols := make([]*core.Column, 0, len(crows))
		for _, cr := range crows {
			c, err := core.ColumnFromPacked(cr.name, cr.packed)
			if err != nil {
				return nil, err
			}
			cols = append(cols, c)
		}
		result[table] = cols
	}
	return result, nil
}

type validationRow struct {
	column      string
	category    core.Category
	fkTable     string
	fkColumnNum int32 // 1-based ordinal into the key table's columns
	allowed     []string
}

func (p *Package) readValidationRows() (map[string][]validationRow, error) {
	data, err := p.store.ReadStream(streamValidation)
	if err != nil {
		if errors.Is(err, cfb.ErrNotExist) {
			return map[string][]validationRow{}, nil
		}
		return nil, core.Wrap(core.KindIO, "stream", streamValidation, err)
	}
	schema := validationSchema()
	rows, err := core.DecodeRows(schema, data, p.pool.LongRefMode())
	if err != nil {
		return nil, err
	}
	if err := core.ResolveStrings(schema, rows, p.pool); err != nil {
		return nil, err
	}

	result := make(map[string][]validationRow)
	for _, row := range rows {
		table := row[0].Str()
		vr := validationRow{
			column:   row[1].Str(),
			category: core.NormalizeCategory(row[7].Str()),
		}
		if !row[5].IsNull() {
			vr.fkTable = row[5].Str()
			vr.fkColumnNum = 1
			if !row[6].IsNull() {
				vr.fkColumnNum = row[6].Int()
			}
		}
		if !row[8].IsNull() && row[8].Str() != "" {
			vr.allowed = splitValueSet(row[8].Str())
		}
		result[table] = append(result[table], vr)
	}
	return result, nil
}

func splitValueSet(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ';' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}

// enrichColumns folds a table's _Validation rows into its column
// schemas. Foreign keys name their target column by ordinal, so the
// full column catalog is needed to resolve it back to a name.
func enrichColumns(cols []*core.Column, vrows []validationRow, columnsByTable map[string][]*core.Column) {
	byName := make(map[string]*core.Column, len(cols))
	for _, c := range cols {
		byName[c.Name] = c
	}
	for _, vr := range vrows {
		c, ok := byName[vr.column]
		if !ok {
			continue
		}
		c.Category = vr.category
		if vr.fkTable != "" {
			c.ValueSet = &core.ValueSet{FKTable: vr.fkTable, FKCol: resolveKeyColumn(columnsByTable[vr.fkTable], vr.fkColumnNum)}
		} else if len(vr.allowed) > 0 {
			c.ValueSet = &core.ValueSet{Allowed: vr.allowed}
		}
	}
}

// resolveKeyColumn maps a 1-based _Validation.KeyColumn ordinal to the
// key table's column name; out-of-range ordinals resolve to "".
func resolveKeyColumn(targetCols []*core.Column, num int32) string {
	if num < 1 || int(num) > len(targetCols) {
		return ""
	}
	return targetCols[num-1].Name
}

// ensureLoaded materializes a table's rows from its stream the first
// time they are needed.
func (p *Package) ensureLoaded(name string) error {
	m, ok := p.tables[name]
	if !ok || m.deleted {
		return core.NewError(core.KindSchema, "table", name, "table does not exist")
	}
	if m.loaded {
		return nil
	}
	data, err := p.store.ReadStream(m.table.StreamName)
	if err != nil {
		if errors.Is(err, cfb.ErrNotExist) {
			m.rows = nil
			m.loaded = true
			return nil
		}
		return core.Wrap(core.KindIO, "stream", m.table.StreamName, err)
	}
	rows, err := core.DecodeRows(m.table, data, p.pool.LongRefMode())
	if err != nil {
		return err
	}
	if err := core.ResolveStrings(m.table, rows, p.pool); err != nil {
		return err
	}
	m.table.SortRows(rows)
	for i := 1; i < len(rows); i++ {
		if m.table.Compare(rows[i-1], rows[i]) == 0 {
			return core.NewError(core.KindMalformed, "table", name, "duplicate primary key in row stream")
		}
	}
	m.rows = rows
	m.loaded = true
	return nil
}
