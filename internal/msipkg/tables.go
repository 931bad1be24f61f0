package msipkg

import (
	"strings"

	"msi/internal/core"
)

// CreateTable validates and registers a new table schema. The catalog
// entries and the table's (empty) row stream are written on the next
// Flush.
func (p *Package) CreateTable(name string, columns []*core.Column) (*core.Table, error) {
	if _, exists := p.Table(name); exists {
		return nil, core.NewError(core.KindSchema, "table", name, "table already exists")
	}
	t, err := core.NewTable(name, columns)
	if err != nil {
		return nil, err
	}
	internCatalogStrings(p.pool, t)
	p.addTableMeta(t)
	m := p.tables[name]
	m.loaded = true
	m.dirty = true
	p.schemaDirty = true
	p.poolDirty = true
	return t, nil
}

// internCatalogStrings increfs every string the system catalog will
// need a StringRef for once this table's _Tables/_Columns/_Validation
// rows are flushed: its own name, each column's name, the Y/N
// nullability markers, and any category/foreign-key/value-set text.
func internCatalogStrings(pool *core.StringPool, t *core.Table) {
	pool.Incref(t.Name)
	for _, c := range t.Columns {
		pool.Incref(c.Name)
		pool.Incref(string(c.Category))
		pool.Incref(nullableMarker(c))
		if c.ValueSet.IsFK() {
			pool.Incref(c.ValueSet.FKTable)
		} else if c.ValueSet != nil && len(c.ValueSet.Allowed) > 0 {
			pool.Incref(strings.Join(c.ValueSet.Allowed, ";"))
		}
	}
}

// uninternCatalogStrings reverses internCatalogStrings.
func uninternCatalogStrings(pool *core.StringPool, t *core.Table) {
	pool.DecrefText(t.Name) //nolint:errcheck // balances internCatalogStrings, always present
	for _, c := range t.Columns {
		pool.DecrefText(c.Name)             //nolint:errcheck
		pool.DecrefText(string(c.Category)) //nolint:errcheck
		pool.DecrefText(nullableMarker(c))  //nolint:errcheck
		if c.ValueSet.IsFK() {
			pool.DecrefText(c.ValueSet.FKTable) //nolint:errcheck
		} else if c.ValueSet != nil && len(c.ValueSet.Allowed) > 0 {
			pool.DecrefText(strings.Join(c.ValueSet.Allowed, ";")) //nolint:errcheck
		}
	}
}

func nullableMarker(c *core.Column) string {
	if c.Nullable {
		return "Y"
	}
	return "N"
}

// DropTable removes a table's stream, its _Columns/_Validation rows,
// and decrefs every StringRef its rows referenced.
func (p *Package) DropTable(name string) error {
	m, ok := p.tables[name]
	if !ok || m.deleted {
		return core.NewError(core.KindSchema, "table", name, "table does not exist")
	}
	if err := p.ensureLoaded(name); err != nil {
		return err
	}
	for _, row := range m.rows {
		if err := decrefRowStrings(p.pool, m.table, row); err != nil {
			return err
		}
	}
	uninternCatalogStrings(p.pool, m.table)
	m.deleted = true
	m.rows = nil
	p.schemaDirty = true
	p.poolDirty = true
	return nil
}

func decrefRowStrings(pool *core.StringPool, t *core.Table, row core.Row) error {
	for i, col := range t.Columns {
		if col.Type.Kind != core.KindStr {
			continue
		}
		v := row[i]
		if v.IsNull() {
			continue
		}
		if err := pool.DecrefText(v.Str()); err != nil {
			return err
		}
	}
	return nil
}
