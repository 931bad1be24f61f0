// Package summary reads and writes the "\x05SummaryInformation" stream:
// a single-section property set holding the package's document-style
// metadata (title, author, timestamps, counts). The layout is the
// generic Windows property set serialization; MSI assigns its own
// meaning to several of the standard property IDs.
package summary

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	"msi/internal/core"
)

// StreamName is the CFB stream the property set lives in. The leading
// 0x05 byte marks it as a property set stream; it is not mangled.
const StreamName = "\x05SummaryInformation"

// Property IDs of the summary information set. MSI repurposes some of
// the document-oriented names (PageCount carries the minimum installer
// version, Security the read-only flags) but keeps the IDs and types.
const (
	PropCodepage       uint32 = 1
	PropTitle          uint32 = 2
	PropSubject        uint32 = 3
	PropAuthor         uint32 = 4
	PropKeywords       uint32 = 5
	PropComments       uint32 = 6
	PropTemplate       uint32 = 7
	PropLastAuthor     uint32 = 8
	PropRevisionNumber uint32 = 9
	PropEditTime       uint32 = 10
	PropLastPrinted    uint32 = 11
	PropCreateTime     uint32 = 12
	PropLastSaveTime   uint32 = 13
	PropPageCount      uint32 = 14
	PropWordCount      uint32 = 15
	PropCharCount      uint32 = 16
	PropAppName        uint32 = 18
	PropSecurity       uint32 = 19
)

// Kind is the property value type tag (a VT_* constant on disk).
type Kind int

const (
	KindI2       Kind = 2
	KindI4       Kind = 3
	KindLpstr    Kind = 30
	KindFiletime Kind = 64
)

// Value is one typed property value.
type Value struct {
	kind Kind
	i    int32
	s    string
	t    time.Time
}

// I2Value builds a 16-bit integer property value.
func I2Value(v int16) Value { return Value{kind: KindI2, i: int32(v)} }

// I4Value builds a 32-bit integer property value.
func I4Value(v int32) Value { return Value{kind: KindI4, i: v} }

// LpstrValue builds a codepage-encoded string property value.
func LpstrValue(s string) Value { return Value{kind: KindLpstr, s: s} }

// FiletimeValue builds a timestamp property value.
func FiletimeValue(t time.Time) Value { return Value{kind: KindFiletime, t: t} }

func (v Value) Kind() Kind      { return v.kind }
func (v Value) Int() int32      { return v.i }
func (v Value) Str() string     { return v.s }
func (v Value) Time() time.Time { return v.t }

func (v Value) String() string {
	switch v.kind {
	case KindI2, KindI4:
		return fmt.Sprintf("%d", v.i)
	case KindLpstr:
		return v.s
	case KindFiletime:
		return v.t.UTC().Format(time.RFC3339)
	default:
		return ""
	}
}

// propKinds is the expected value type per property ID. Set rejects
// mismatches so a package never round-trips a malformed property set.
var propKinds = map[uint32]Kind{
	PropCodepage:       KindI2,
	PropTitle:          KindLpstr,
	PropSubject:        KindLpstr,
	PropAuthor:         KindLpstr,
	PropKeywords:       KindLpstr,
	PropComments:       KindLpstr,
	PropTemplate:       KindLpstr,
	PropLastAuthor:     KindLpstr,
	PropRevisionNumber: KindLpstr,
	PropEditTime:       KindFiletime,
	PropLastPrinted:    KindFiletime,
	PropCreateTime:     KindFiletime,
	PropLastSaveTime:   KindFiletime,
	PropPageCount:      KindI4,
	PropWordCount:      KindI4,
	PropCharCount:      KindI4,
	PropAppName:        KindLpstr,
	PropSecurity:       KindI4,
}

// SummaryInfo is an in-memory view of the summary property set, keyed
// by property ID.
type SummaryInfo struct {
	codePage core.CodePage
	props    map[uint32]Value
}

// New returns an empty SummaryInfo whose strings will be encoded in cp.
func New(cp core.CodePage) *SummaryInfo {
	return &SummaryInfo{codePage: cp, props: make(map[uint32]Value)}
}

// CodePage returns the codepage LPSTR properties are encoded in.
func (si *SummaryInfo) CodePage() core.CodePage { return si.codePage }

// Get returns the value stored for id, if any.
func (si *SummaryInfo) Get(id uint32) (Value, bool) {
	v, ok := si.props[id]
	return v, ok
}

// Set stores a value for id, rejecting unknown IDs and type mismatches.
func (si *SummaryInfo) Set(id uint32, v Value) error {
	want, ok := propKinds[id]
	if !ok {
		return core.NewError(core.KindSchema, "property", fmt.Sprintf("%d", id), "unknown summary property id")
	}
	if v.kind != want {
		return core.NewError(core.KindSchema, "property", fmt.Sprintf("%d", id), "wrong value type for this property")
	}
	if id == PropCodepage {
		si.codePage = core.CodePage(v.i)
	}
	si.props[id] = v
	return nil
}

// Delete removes the value stored for id, if any.
func (si *SummaryInfo) Delete(id uint32) { delete(si.props, id) }

// IDs lists the property IDs currently set, ascending.
func (si *SummaryInfo) IDs() []uint32 {
	ids := make([]uint32, 0, len(si.props))
	for id := range si.props {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Property set serialization constants.
const (
	byteOrderMark    = 0xfffe
	headerLen        = 28 // byte order, version, system id, clsid, section count
	sectionDirLen    = 20 // fmtid + section offset
	sectionHeaderLen = 8  // byte count + property count
)

// fmtidSummaryInformation is FMTID_SummaryInformation
// (F29F85E0-4FF9-1068-AB91-08002B27B3D9) in packed little-endian GUID
// layout.
var fmtidSummaryInformation = [16]byte{
	0xe0, 0x85, 0x9f, 0xf2, 0xf9, 0x4f, 0x68, 0x10,
	0xab, 0x91, 0x08, 0x00, 0x2b, 0x27, 0xb3, 0xd9,
}

// filetimeEpochDelta is the number of seconds between the FILETIME
// epoch (1601-01-01) and the Unix epoch (1970-01-01).
const filetimeEpochDelta = 11644473600

func timeToFiletime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.Unix()+filetimeEpochDelta)*10_000_000 + uint64(t.Nanosecond()/100)
}

func filetimeToTime(ft uint64) time.Time {
	if ft == 0 {
		return time.Time{}
	}
	sec := int64(ft/10_000_000) - filetimeEpochDelta
	nsec := int64(ft%10_000_000) * 100
	return time.Unix(sec, nsec).UTC()
}

// Encode serializes the property set to stream bytes.
func (si *SummaryInfo) Encode() ([]byte, error) {
	ids := si.IDs()

	// Property values, each preceded by its type tag and padded to a
	// 4-byte boundary.
	var values bytes.Buffer
	offsets := make(map[uint32]uint32, len(ids))
	valueBase := uint32(sectionHeaderLen + 8*len(ids))
	for _, id := range ids {
		offsets[id] = valueBase + uint32(values.Len())
		v := si.props[id]
		var tag [4]byte
		binary.LittleEndian.PutUint32(tag[:], uint32(v.kind))
		values.Write(tag[:])
		switch v.kind {
		case KindI2:
			var b [4]byte
			binary.LittleEndian.PutUint16(b[:2], uint16(int16(v.i)))
			values.Write(b[:])
		case KindI4:
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], uint32(v.i))
			values.Write(b[:])
		case KindFiletime:
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], timeToFiletime(v.t))
			values.Write(b[:])
		case KindLpstr:
			raw, err := si.codePage.Encode(v.s)
			if err != nil {
				return nil, err
			}
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], uint32(len(raw)+1))
			values.Write(b[:])
			values.Write(raw)
			values.WriteByte(0)
			for values.Len()%4 != 0 {
				values.WriteByte(0)
			}
		}
	}

	sectionLen := valueBase + uint32(values.Len())

	var out bytes.Buffer
	var u16 [2]byte
	var u32 [4]byte
	binary.LittleEndian.PutUint16(u16[:], byteOrderMark)
	out.Write(u16[:])
	binary.LittleEndian.PutUint16(u16[:], 0) // format version
	out.Write(u16[:])
	binary.LittleEndian.PutUint32(u32[:], 0x00020005) // originating system
	out.Write(u32[:])
	out.Write(make([]byte, 16)) // null clsid
	binary.LittleEndian.PutUint32(u32[:], 1)
	out.Write(u32[:])

	out.Write(fmtidSummaryInformation[:])
	binary.LittleEndian.PutUint32(u32[:], headerLen+sectionDirLen)
	out.Write(u32[:])

	binary.LittleEndian.PutUint32(u32[:], sectionLen)
	out.Write(u32[:])
	binary.LittleEndian.PutUint32(u32[:], uint32(len(ids)))
	out.Write(u32[:])
	for _, id := range ids {
		binary.LittleEndian.PutUint32(u32[:], id)
		out.Write(u32[:])
		binary.LittleEndian.PutUint32(u32[:], offsets[id])
		out.Write(u32[:])
	}
	out.Write(values.Bytes())

	return out.Bytes(), nil
}

// Decode parses a property set stream. The codepage property, when
// present, governs how the section's LPSTR values are decoded.
func Decode(data []byte) (*SummaryInfo, error) {
	if len(data) < headerLen+sectionDirLen {
		return nil, core.NewError(core.KindMalformed, "summary", "", "property set stream too short")
	}
	if binary.LittleEndian.Uint16(data[0:2]) != byteOrderMark {
		return nil, core.NewError(core.KindMalformed, "summary", "", "bad property set byte-order mark")
	}
	sectionCount := binary.LittleEndian.Uint32(data[24:28])
	if sectionCount < 1 {
		return nil, core.NewError(core.KindMalformed, "summary", "", "property set has no sections")
	}
	if !bytes.Equal(data[headerLen:headerLen+16], fmtidSummaryInformation[:]) {
		return nil, core.NewError(core.KindMalformed, "summary", "", "first section is not the summary information set")
	}
	secOff := binary.LittleEndian.Uint32(data[headerLen+16 : headerLen+20])
	if int(secOff)+sectionHeaderLen > len(data) {
		return nil, core.NewError(core.KindMalformed, "summary", "", "section offset out of range")
	}
	sec := data[secOff:]

	propCount := binary.LittleEndian.Uint32(sec[4:8])
	if int(sectionHeaderLen+8*propCount) > len(sec) {
		return nil, core.NewError(core.KindMalformed, "summary", "", "property directory out of range")
	}

	si := New(core.CodePageDefault)

	type dirEntry struct {
		id  uint32
		off uint32
	}
	dir := make([]dirEntry, 0, propCount)
	for i := uint32(0); i < propCount; i++ {
		base := sectionHeaderLen + 8*i
		dir = append(dir, dirEntry{
			id:  binary.LittleEndian.Uint32(sec[base : base+4]),
			off: binary.LittleEndian.Uint32(sec[base+4 : base+8]),
		})
	}

	// The codepage property decodes first so LPSTR values that precede
	// it in the directory still decode with the right charmap.
	sort.Slice(dir, func(i, j int) bool {
		return (dir[i].id == PropCodepage) && dir[j].id != PropCodepage
	})

	for _, e := range dir {
		if _, known := propKinds[e.id]; !known {
			continue // tolerated: foreign tools write extra properties
		}
		v, err := decodeValue(sec, e.off, si.codePage)
		if err != nil {
			return nil, err
		}
		if err := si.Set(e.id, v); err != nil {
			return nil, err
		}
	}
	return si, nil
}

func decodeValue(sec []byte, off uint32, cp core.CodePage) (Value, error) {
	if int(off)+4 > len(sec) {
		return Value{}, core.NewError(core.KindMalformed, "summary", "", "property value offset out of range")
	}
	kind := Kind(binary.LittleEndian.Uint32(sec[off : off+4]))
	body := sec[off+4:]
	switch kind {
	case KindI2:
		if len(body) < 2 {
			return Value{}, core.NewError(core.KindMalformed, "summary", "", "truncated I2 value")
		}
		return I2Value(int16(binary.LittleEndian.Uint16(body[:2]))), nil
	case KindI4:
		if len(body) < 4 {
			return Value{}, core.NewError(core.KindMalformed, "summary", "", "truncated I4 value")
		}
		return I4Value(int32(binary.LittleEndian.Uint32(body[:4]))), nil
	case KindFiletime:
		if len(body) < 8 {
			return Value{}, core.NewError(core.KindMalformed, "summary", "", "truncated FILETIME value")
		}
		return FiletimeValue(filetimeToTime(binary.LittleEndian.Uint64(body[:8]))), nil
	case KindLpstr:
		if len(body) < 4 {
			return Value{}, core.NewError(core.KindMalformed, "summary", "", "truncated LPSTR value")
		}
		n := binary.LittleEndian.Uint32(body[:4])
		if int(n) > len(body)-4 {
			return Value{}, core.NewError(core.KindMalformed, "summary", "", "LPSTR length out of range")
		}
		raw := body[4 : 4+n]
		// Strip the NUL terminator the count includes.
		if i := bytes.IndexByte(raw, 0); i >= 0 {
			raw = raw[:i]
		}
		s, err := cp.Decode(raw)
		if err != nil {
			return Value{}, err
		}
		return LpstrValue(s), nil
	default:
		return Value{}, core.NewError(core.KindMalformed, "summary", "", fmt.Sprintf("unsupported property type %d", kind))
	}
}
