package msipkg

import (
	"strings"

	"msi/internal/core"
	"msi/internal/querylang"
)

// Rows is a forward-only cursor over a SELECT result. It is a snapshot:
// it stays valid after further mutations, but does not see them.
type Rows struct {
	columns []string
	rows    []core.Row
	i       int
}

// Columns returns the projected column headers, in projection order.
func (r *Rows) Columns() []string { return r.columns }

// Len reports the total number of result rows.
func (r *Rows) Len() int { return len(r.rows) }

// Next advances the cursor, reporting whether a row is available.
func (r *Rows) Next() bool {
	if r.i >= len(r.rows) {
		return false
	}
	r.i++
	return true
}

// Row returns the row the last Next call advanced to.
func (r *Rows) Row() core.Row { return r.rows[r.i-1] }

// SelectRows executes an already-parsed SELECT and returns a cursor
// over its result.
func (p *Package) SelectRows(s *querylang.SelectStatement) (*Rows, error) {
	res, err := p.execSelect(s)
	if err != nil {
		return nil, err
	}
	return &Rows{columns: res.Columns, rows: res.Rows}, nil
}

// InsertRows executes an already-parsed INSERT.
func (p *Package) InsertRows(s *querylang.InsertStatement) error { return p.execInsert(s) }

// UpdateRows executes an already-parsed UPDATE.
func (p *Package) UpdateRows(s *querylang.UpdateStatement) error { return p.execUpdate(s) }

// DeleteRows executes an already-parsed DELETE.
func (p *Package) DeleteRows(s *querylang.DeleteStatement) error { return p.execDelete(s) }

// ReadRawStream reads a stream the table layer does not manage, e.g. an
// embedded cabinet. The name is mangled the same way table names are;
// names beginning with 0x05 (property set streams) pass through as-is.
func (p *Package) ReadRawStream(name string) ([]byte, error) {
	stream, err := p.rawStreamName(name)
	if err != nil {
		return nil, err
	}
	data, err := p.store.ReadStream(stream)
	if err != nil {
		return nil, core.Wrap(core.KindIO, "stream", name, err)
	}
	return data, nil
}

// WriteRawStream writes a stream the table layer does not manage.
func (p *Package) WriteRawStream(name string, data []byte) error {
	stream, err := p.rawStreamName(name)
	if err != nil {
		return err
	}
	if err := p.store.WriteStream(stream, data); err != nil {
		return core.Wrap(core.KindIO, "stream", name, err)
	}
	return nil
}

func (p *Package) rawStreamName(name string) (string, error) {
	if core.IsSystemStreamName(name) {
		return "", core.NewError(core.KindSchema, "stream", name, "system streams are managed by the package layer")
	}
	if strings.HasPrefix(name, "\x05") {
		return name, nil
	}
	return core.MangleName(name)
}
