package core

import (
	"fmt"
	"sort"
)

// Table is an ordered list of columns plus primary-key column set and a
// stream name.
type Table struct {
	Name       string
	Columns    []*Column // primary-key columns first, per the on-disk invariant
	StreamName string    // the mangled CFB stream name (MangleName(Name))
}

// NewTable builds a Table from a name and a column list, reordering
// columns so primary-key columns come first (the on-disk requirement),
// and validating every column along the way.
func NewTable(name string, columns []*Column) (*Table, error) {
	if !ValidIdentifier(name) {
		return nil, NewError(KindSchema, "table", name, "identifier must be <=64 chars, alphanumeric/underscore, not starting with a digit")
	}

	seen := make(map[string]bool, len(columns))
	var pk, rest []*Column
	for _, c := range columns {
		if c == nil {
			continue
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if seen[c.Name] {
			return nil, NewError(KindSchema, "table", name, fmt.Sprintf("duplicate column name %q", c.Name))
		}
		seen[c.Name] = true
		if c.PrimaryKey {
			pk = append(pk, c)
		} else {
			rest = append(rest, c)
		}
	}
	if len(pk) == 0 {
		return nil, NewError(KindSchema, "table", name, "at least one primary-key column is required")
	}

	stream, err := MangleName(name)
	if err != nil {
		return nil, err
	}

	return &Table{
		Name:       name,
		Columns:    append(pk, rest...),
		StreamName: stream,
	}, nil
}

// FindColumn looks up a column by name.
func (t *Table) FindColumn(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// PrimaryKeyColumns returns the table's primary-key columns, in on-disk
// (and therefore sort-key) order.
func (t *Table) PrimaryKeyColumns() []*Column {
	var pk []*Column
	for _, c := range t.Columns {
		if !c.PrimaryKey {
			break // PK columns are always contiguous at the front
		}
		pk = append(pk, c)
	}
	return pk
}

// ColumnIndex returns the position of name within t.Columns, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Value is a single typed cell: an i16, an
// i32, a string (already decoded, not a raw StringRef), or NULL. Exactly
// one of the typed accessors is meaningful at a time; callers should
// switch on IsNull()/Kind() first.
type Value struct {
	kind   ColumnKind
	isNull bool
	i      int32
	s      string
}

// NullValue constructs a NULL of the given kind (the kind only matters
// for codec width selection; it carries no other meaning once decoded).
func NullValue(k ColumnKind) Value { return Value{kind: k, isNull: true} }

// IntValue constructs a non-NULL integer value.
func IntValue(k ColumnKind, v int32) Value { return Value{kind: k, i: v} }

// StrValue constructs a non-NULL string value.
func StrValue(s string) Value { return Value{kind: KindStr, s: s} }

func (v Value) Kind() ColumnKind { return v.kind }
func (v Value) IsNull() bool     { return v.isNull }
func (v Value) Int() int32       { return v.i }
func (v Value) Str() string      { return v.s }

func (v Value) String() string {
	if v.isNull {
		return "NULL"
	}
	if v.kind == KindStr {
		return v.s
	}
	return fmt.Sprintf("%d", v.i)
}

// Row is one record: one Value per column, in table-column order.
type Row []Value

// Compare orders two rows by the table's primary-key tuple, lexicographic
// over the PK columns, NULL sorting lower than any concrete value.
func (t *Table) Compare(a, b Row) int {
	pkLen := len(t.PrimaryKeyColumns())
	for i := 0; i < pkLen; i++ {
		if c := compareValue(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

func compareValue(a, b Value) int {
	if a.isNull && b.isNull {
		return 0
	}
	if a.isNull {
		return -1
	}
	if b.isNull {
		return 1
	}
	if a.kind == KindStr {
		switch {
		case a.s < b.s:
			return -1
		case a.s > b.s:
			return 1
		default:
			return 0
		}
	}
	switch {
	case a.i < b.i:
		return -1
	case a.i > b.i:
		return 1
	default:
		return 0
	}
}

// SortRows sorts rows in place by the table's primary-key order.
func (t *Table) SortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return t.Compare(rows[i], rows[j]) < 0
	})
}
