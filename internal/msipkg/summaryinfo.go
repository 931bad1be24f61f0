package msipkg

import (
	"errors"

	"msi/internal/cfb"
	"msi/internal/core"
	"msi/internal/summary"
)

// SummaryInfo reads the package's summary information property set. A
// package that doesn't have one yet gets an empty set using the
// package's codepage.
func (p *Package) SummaryInfo() (*summary.SummaryInfo, error) {
	data, err := p.store.ReadStream(summary.StreamName)
	if err != nil {
		if errors.Is(err, cfb.ErrNotExist) {
			return summary.New(p.pool.CodePage()), nil
		}
		return nil, core.Wrap(core.KindIO, "stream", summary.StreamName, err)
	}
	return summary.Decode(data)
}

// SetSummaryInfo serializes si and writes it back to the store,
// immediately: the property set stream has no dirty tracking.
func (p *Package) SetSummaryInfo(si *summary.SummaryInfo) error {
	data, err := si.Encode()
	if err != nil {
		return err
	}
	if err := p.store.WriteStream(summary.StreamName, data); err != nil {
		return core.Wrap(core.KindIO, "stream", summary.StreamName, err)
	}
	return nil
}
