package core

import (
	"encoding/binary"
	"fmt"
)

// Row codec: MSI stores a table's data column-major, one flat byte block
// per column, all in the same row order. Integers are
// biased so the all-zero bit pattern means NULL: Int16 by 0x8000, Int32
// by 0x80000000. StringRefs are stored unbiased; 0 already means
// NULL/empty per StringRef's own convention.

const (
	int16Bias = 0x8000
	int32Bias = 0x80000000
)

// EncodeRows packs rows into the column-major blocks MSI writes to a
// table's row stream: one contiguous block per column, in t.Columns
// order, each block rows-long at that column's on-disk width.
func EncodeRows(t *Table, rows []Row, longRefs bool) ([]byte, error) {
	var out []byte
	for ci, col := range t.Columns {
		width := col.Type.Width(longRefs)
		block := make([]byte, 0, width*len(rows))
		for ri, row := range rows {
			if len(row) != len(t.Columns) {
				return nil, NewError(KindMalformed, "row", fmt.Sprintf("%d", ri), "row has the wrong number of values for its table")
			}
			v := row[ci]
			switch col.Type.Kind {
			case KindInt16:
				var raw uint16
				if !v.isNull {
					raw = uint16(int32(v.i) + int16Bias)
				}
				var b [2]byte
				binary.LittleEndian.PutUint16(b[:], raw)
				block = append(block, b[:]...)
			case KindInt32:
				var raw uint32
				if !v.isNull {
					raw = uint32(v.i) + uint32(int32Bias)
				}
				var b [4]byte
				binary.LittleEndian.PutUint32(b[:], raw)
				block = append(block, b[:]...)
			case KindStr:
				var ref uint32
				if !v.isNull {
					ref = uint32(v.i)
				}
				block = append(block, encodeRef(ref, width)...)
			}
		}
		out = append(out, block...)
	}
	return out, nil
}

// DecodeRows reverses EncodeRows. The row count is inferred from the
// stream's total length divided by the table's per-row byte width; a
// stream length that isn't an exact multiple is reported as
// KindMalformed.
func DecodeRows(t *Table, data []byte, longRefs bool) ([]Row, error) {
	rowWidth := 0
	for _, col := range t.Columns {
		rowWidth += col.Type.Width(longRefs)
	}
	if rowWidth == 0 {
		return nil, nil
	}
	if len(data)%rowWidth != 0 {
		return nil, NewError(KindMalformed, "row_stream", t.Name, "stream length is not a multiple of the table's row width")
	}
	rowCount := len(data) / rowWidth

	rows := make([]Row, rowCount)
	for i := range rows {
		rows[i] = make(Row, len(t.Columns))
	}

	off := 0
	for ci, col := range t.Columns {
		width := col.Type.Width(longRefs)
		for ri := 0; ri < rowCount; ri++ {
			raw := data[off : off+width]
			off += width
			switch col.Type.Kind {
			case KindInt16:
				u := binary.LittleEndian.Uint16(raw)
				if u == 0 {
					rows[ri][ci] = NullValue(KindInt16)
				} else {
					rows[ri][ci] = IntValue(KindInt16, int32(u)-int16Bias)
				}
			case KindInt32:
				u := binary.LittleEndian.Uint32(raw)
				if u == 0 {
					rows[ri][ci] = NullValue(KindInt32)
				} else {
					rows[ri][ci] = IntValue(KindInt32, int32(u-int32Bias))
				}
			case KindStr:
				ref := decodeRef(raw)
				if ref == 0 {
					rows[ri][ci] = NullValue(KindStr)
				} else {
					rows[ri][ci] = IntValue(KindStr, int32(ref))
				}
			}
		}
	}
	return rows, nil
}

// ResolveStrings replaces the raw StringRef placeholders DecodeRows
// leaves in string columns (carried as an int32 StringRef inside Value)
// with their decoded text, looking them up in pool. Row codecs work in
// terms of refs; callers resolve text only once they have the pool.
func ResolveStrings(t *Table, rows []Row, pool *StringPool) error {
	for ci, col := range t.Columns {
		if col.Type.Kind != KindStr {
			continue
		}
		for _, row := range rows {
			if row[ci].isNull {
				continue
			}
			s, err := pool.Get(StringRef(row[ci].i))
			if err != nil {
				return err
			}
			row[ci] = StrValue(s)
		}
	}
	return nil
}

func encodeRef(ref uint32, width int) []byte {
	b := make([]byte, width)
	switch width {
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(ref))
	case 3:
		b[0] = byte(ref)
		b[1] = byte(ref >> 8)
		b[2] = byte(ref >> 16)
	}
	return b
}

func decodeRef(raw []byte) uint32 {
	switch len(raw) {
	case 2:
		return uint32(binary.LittleEndian.Uint16(raw))
	case 3:
		return uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16
	default:
		return 0
	}
}
