package core

import (
	"encoding/binary"
	"fmt"
)

// StringRef is a 1-based, non-zero index into a package's StringPool.
// Zero denotes the empty string / NULL.
type StringRef uint32

// poolEntry is one interned string and its liveness bookkeeping. A hole
// (decref'd to zero) keeps its index reserved; Text is emptied but the
// slot is never reused automatically.
type poolEntry struct {
	text     string
	refcount uint32
	live     bool
}

// StringPool is the refcounted, codepage-aware interning table persisted
// as the _StringData/_StringPool stream pair.
type StringPool struct {
	codePage CodePage
	longRefs bool
	entries  []poolEntry // 0-indexed; entries[i] is StringRef(i+1)
	byText   map[string]StringRef
}

// NewStringPool creates an empty pool using the given codepage.
func NewStringPool(cp CodePage) *StringPool {
	return &StringPool{
		codePage: cp,
		byText:   make(map[string]StringRef),
	}
}

// CodePage returns the pool's codepage.
func (p *StringPool) CodePage() CodePage { return p.codePage }

// LongRefMode reports whether StringRefs are currently serialized as
// 3-byte values. Once set, it is sticky for the package's lifetime.
func (p *StringPool) LongRefMode() bool { return p.longRefs }

// requireLongRefs switches the pool into long-ref mode. It never turns
// back off.
func (p *StringPool) requireLongRefs() { p.longRefs = true }

// Incref interns s, returning its StringRef. The empty string always maps
// to ref 0 without touching the pool.
func (p *StringPool) Incref(s string) StringRef {
	if s == "" {
		return 0
	}
	if ref, ok := p.byText[s]; ok {
		p.entries[ref-1].refcount++
		return ref
	}
	// Holes stay reserved, so new entries always append.
	p.entries = append(p.entries, poolEntry{text: s, refcount: 1, live: true})
	ref := StringRef(len(p.entries))
	p.byText[s] = ref
	if ref >= 1<<16 {
		p.requireLongRefs()
	}
	return ref
}

// Decref decrements the refcount of i. When it reaches zero the entry
// becomes a hole: its text is cleared but the index is never reused by
// Incref, preserving existing StringRefs stored in rows.
func (p *StringPool) Decref(i StringRef) error {
	if i == 0 {
		return nil
	}
	idx := int(i) - 1
	if idx < 0 || idx >= len(p.entries) || !p.entries[idx].live {
		return NewError(KindMalformed, "string_pool", fmt.Sprintf("%d", i), "decref of a ref that is not live")
	}
	e := &p.entries[idx]
	if e.refcount == 0 {
		return NewError(KindMalformed, "string_pool", fmt.Sprintf("%d", i), "refcount already zero")
	}
	e.refcount--
	if e.refcount == 0 {
		delete(p.byText, e.text)
		e.text = ""
		e.live = false
	}
	return nil
}

// DecrefText decrefs the entry holding s, looked up by its current
// text. A no-op for the empty string. Callers that keep rows in
// resolved (already-decoded) form use this instead of tracking raw
// StringRefs themselves, since the pool dedupes by text and so there is
// at most one live ref per distinct string.
func (p *StringPool) DecrefText(s string) error {
	if s == "" {
		return nil
	}
	ref, ok := p.byText[s]
	if !ok {
		return NewError(KindMalformed, "string_pool", s, "decref of a string not present in the pool")
	}
	return p.Decref(ref)
}

// RefOf looks up the current live StringRef for s without changing any
// refcount. The empty string always resolves to ref 0.
func (p *StringPool) RefOf(s string) (StringRef, bool) {
	if s == "" {
		return 0, true
	}
	ref, ok := p.byText[s]
	return ref, ok
}

// Get returns the live string stored at i. i == 0 returns "".
func (p *StringPool) Get(i StringRef) (string, error) {
	if i == 0 {
		return "", nil
	}
	idx := int(i) - 1
	if idx < 0 || idx >= len(p.entries) || !p.entries[idx].live {
		return "", NewError(KindMalformed, "string_pool", fmt.Sprintf("%d", i), "dangling StringRef")
	}
	return p.entries[idx].text, nil
}

// Refcount returns the current refcount of i, 0 for holes and for i == 0.
func (p *StringPool) Refcount(i StringRef) uint32 {
	if i == 0 {
		return 0
	}
	idx := int(i) - 1
	if idx < 0 || idx >= len(p.entries) {
		return 0
	}
	return p.entries[idx].refcount
}

// Len reports the number of slots the pool has allocated, live or hole.
func (p *StringPool) Len() int { return len(p.entries) }

// Compact rewrites the pool with all holes removed, returning a mapping
// from old StringRef to new StringRef (old refs with no entry map to 0).
// Callers that compact must rewrite every table's row stream afterward;
// StringPool itself does not know about tables.
func (p *StringPool) Compact() map[StringRef]StringRef {
	remap := make(map[StringRef]StringRef, len(p.entries))
	newEntries := make([]poolEntry, 0, len(p.entries))
	for idx, e := range p.entries {
		old := StringRef(idx + 1)
		if !e.live {
			remap[old] = 0
			continue
		}
		newEntries = append(newEntries, e)
		newRef := StringRef(len(newEntries))
		remap[old] = newRef
		p.byText[e.text] = newRef
	}
	p.entries = newEntries
	// Long-ref mode stays set even if compaction brings the pool back
	// under 2^16 entries: the flag is sticky once written.
	return remap
}

// refWidth is the on-disk width, in bytes, of a StringRef under the
// pool's current long-ref setting.
func (p *StringPool) refWidth() int {
	if p.longRefs {
		return 3
	}
	return 2
}

// poolHeaderLen is the fixed _StringPool header: codepage_id_low (u16)
// and flags (u16).
const poolHeaderLen = 4

const longRefFlag = 0x8000

// refcountOverflowMarker is the sentinel refcount value flagging that the
// entry's true refcount is carried by the record immediately following,
// rather than by this record's refcount field. A hole record is
// (length=0, refcount=0), so a zero-valued sentinel would be ambiguous
// with it; see DESIGN.md for the encoding choice.
const refcountOverflowMarker = 0xffff

// EncodeStreams serializes the pool into the bytes of _StringData and
// _StringPool.
func (p *StringPool) EncodeStreams() (stringData, stringPool []byte, err error) {
	var data []byte
	pool := make([]byte, poolHeaderLen)

	flags := uint16(p.codePage) & 0x7fff
	if p.longRefs {
		flags |= longRefFlag
	}
	binary.LittleEndian.PutUint16(pool[0:2], uint16(p.codePage))
	binary.LittleEndian.PutUint16(pool[2:4], flags)

	for _, e := range p.entries {
		var raw []byte
		if e.live {
			raw, err = p.codePage.Encode(e.text)
			if err != nil {
				return nil, nil, err
			}
		}
		length := len(raw)
		refcount := e.refcount

		// >= rather than >: a count of exactly 0xffff must also take
		// the two-record form, since 0xffff in the refcount field is
		// the overflow marker itself.
		if refcount >= refcountOverflowMarker {
			pool = appendRecord(pool, uint16(length), refcountOverflowMarker)
			pool = appendRecord(pool, uint16(refcount>>16), uint16(refcount&0xffff))
		} else {
			pool = appendRecord(pool, uint16(length), uint16(refcount))
		}
		data = append(data, raw...)
	}

	return data, pool, nil
}

func appendRecord(pool []byte, length, refcount uint16) []byte {
	var rec [4]byte
	binary.LittleEndian.PutUint16(rec[0:2], length)
	binary.LittleEndian.PutUint16(rec[2:4], refcount)
	return append(pool, rec[:]...)
}

// DecodeStreams rehydrates a pool from the raw bytes of _StringData and
// _StringPool. An empty or truncated header (fewer than 4 bytes) is
// reported as KindNotMsi: a container without a usable string pool is
// not an MSI package.
func DecodeStreams(stringData, stringPool []byte) (*StringPool, error) {
	if len(stringPool) < poolHeaderLen {
		return nil, NewError(KindNotMsi, "string_pool", "", "missing or truncated _StringPool header")
	}

	cpLow := binary.LittleEndian.Uint16(stringPool[0:2])
	flags := binary.LittleEndian.Uint16(stringPool[2:4])
	cp := CodePage(cpLow)
	longRefs := flags&longRefFlag != 0

	p := &StringPool{
		codePage: cp,
		longRefs: longRefs,
		byText:   make(map[string]StringRef),
	}

	off := poolHeaderLen
	dataOff := 0
	for off+4 <= len(stringPool) {
		length := binary.LittleEndian.Uint16(stringPool[off : off+2])
		refcount := binary.LittleEndian.Uint16(stringPool[off+2 : off+4])
		off += 4

		var entry poolEntry
		if length == 0 && refcount == 0 {
			// A hole: ref was decref'd to zero. Its slot stays reserved.
			entry = poolEntry{}
		} else {
			if dataOff+int(length) > len(stringData) {
				return nil, NewError(KindMalformed, "string_pool", "", "_StringData shorter than _StringPool records require")
			}
			raw := stringData[dataOff : dataOff+int(length)]
			dataOff += int(length)
			text, err := cp.Decode(raw)
			if err != nil {
				return nil, err
			}

			trueCount := uint32(refcount)
			if refcount == refcountOverflowMarker {
				if off+4 > len(stringPool) {
					return nil, NewError(KindMalformed, "string_pool", "", "refcount-overflow sentinel with no follow-up record")
				}
				hi := binary.LittleEndian.Uint16(stringPool[off : off+2])
				lo := binary.LittleEndian.Uint16(stringPool[off+2 : off+4])
				off += 4
				trueCount = uint32(hi)<<16 | uint32(lo)
			}
			entry = poolEntry{text: text, refcount: trueCount, live: true}
		}
		p.entries = append(p.entries, entry)
		if entry.live {
			p.byText[entry.text] = StringRef(len(p.entries))
		}
	}

	return p, nil
}
