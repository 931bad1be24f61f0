// Package msipkg implements the package-level facade: opening and
// creating a package, its system tables, lazy table materialization,
// and the query engine that runs SELECT/INSERT/UPDATE/DELETE statements
// against it.
package msipkg

import (
	"sort"

	"msi/internal/cfb"
	"msi/internal/core"
)

const (
	streamTables     = "_Tables"
	streamColumns    = "_Columns"
	streamValidation = "_Validation"
	streamStringPool = "_StringPool"
	streamStringData = "_StringData"
)

// tableMeta tracks bookkeeping for one user table independent of
// whether its rows are currently materialized.
type tableMeta struct {
	table   *core.Table
	rows    []core.Row
	loaded  bool
	dirty   bool // row stream needs rewriting on Flush
	deleted bool
}

// PackageType distinguishes the three kinds of file the MSI format
// wraps in a CFB container, each with its own root-storage CLSID.
type PackageType int

const (
	Installer PackageType = iota
	Patch
	Transform
)

// clsid returns the root-storage class ID for the package type, in CFB
// byte order (little-endian data1/data2/data3).
func (pt PackageType) clsid() [16]byte {
	base := [16]byte{
		0x84, 0x10, 0x0c, 0x00, 0x00, 0x00, 0x00, 0x00,
		0xc0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x46,
	}
	switch pt {
	case Patch:
		base[0] = 0x86
	case Transform:
		base[0] = 0x82
	}
	return base
}

func packageTypeFromCLSID(clsid [16]byte) PackageType {
	switch clsid[0] {
	case 0x86:
		return Patch
	case 0x82:
		return Transform
	default:
		return Installer
	}
}

func (pt PackageType) String() string {
	switch pt {
	case Patch:
		return "patch"
	case Transform:
		return "transform"
	default:
		return "installer"
	}
}

// Package is an open MSI package: its string pool, table schemas, and
// (lazily) their row data, plus the underlying storage it was opened
// from or will be flushed to.
type Package struct {
	store cfb.Store
	pool  *core.StringPool
	ptype PackageType

	order  []string // table names in _Tables order
	tables map[string]*tableMeta

	schemaDirty bool // _Tables/_Columns/_Validation need rewriting
	poolDirty   bool
}

// Create returns a new, empty Package of the given type and codepage.
// The type's CLSID is stamped onto the store's root storage
// immediately; everything else is written on Flush.
func Create(store cfb.Store, ptype PackageType, cp core.CodePage) (*Package, error) {
	if !core.ValidCodePage(cp) {
		return nil, core.NewError(core.KindSchema, "package", "", "unsupported codepage")
	}
	store.SetCLSID(ptype.clsid())
	return &Package{
		store:       store,
		pool:        core.NewStringPool(cp),
		ptype:       ptype,
		tables:      make(map[string]*tableMeta),
		schemaDirty: true,
		poolDirty:   true,
	}, nil
}

// StringPool exposes the package's interned string pool.
func (p *Package) StringPool() *core.StringPool { return p.pool }

// Type reports the package type recorded in the store's root CLSID.
func (p *Package) Type() PackageType { return p.ptype }

// Store hands back the underlying container, for callers that need to
// keep using it after they are done with the package layer. Flush
// first: Store does not.
func (p *Package) Store() cfb.Store { return p.store }

// Close flushes every dirty stream and closes the underlying store.
func (p *Package) Close() error {
	if err := p.Flush(); err != nil {
		return err
	}
	return p.store.Close()
}

// HasTable reports whether a table exists.
func (p *Package) HasTable(name string) bool {
	_, ok := p.Table(name)
	return ok
}

// Tables lists user table names, in catalog order.
func (p *Package) Tables() []string {
	names := make([]string, 0, len(p.order))
	for _, name := range p.order {
		if m := p.tables[name]; m != nil && !m.deleted {
			names = append(names, name)
		}
	}
	return names
}

// Table returns a table's schema, or false if it doesn't exist.
func (p *Package) Table(name string) (*core.Table, bool) {
	m, ok := p.tables[name]
	if !ok || m.deleted {
		return nil, false
	}
	return m.table, true
}

func (p *Package) addTableMeta(t *core.Table) {
	p.tables[t.Name] = &tableMeta{table: t}
	p.order = append(p.order, t.Name)
}

// sortedTableNames is used when rewriting _Tables deterministically.
func (p *Package) sortedTableNames() []string {
	names := p.Tables()
	sort.Strings(names)
	return names
}
