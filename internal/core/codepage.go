package core

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// CodePage identifies one of the Windows code pages an MSI package is
// permitted to use for its string pool. It is persisted as the numeric
// codepage ID in the first u16 of _StringPool's header; the flags word
// that follows repeats the ID's low 15 bits beside the long-ref bit.
type CodePage uint16

// The codepage IDs a package may declare. CodePageDefault is Windows-1252,
// the id MSI tooling writes when no explicit codepage is requested.
const (
	CodePageDefault     CodePage = 1252
	CodePageWindows1250 CodePage = 1250
	CodePageWindows1251 CodePage = 1251
	CodePageWindows1252 CodePage = 1252
	CodePageWindows1253 CodePage = 1253
	CodePageWindows1254 CodePage = 1254
	CodePageWindows1255 CodePage = 1255
	CodePageWindows1256 CodePage = 1256
	CodePageWindows1257 CodePage = 1257
	CodePageWindows1258 CodePage = 1258
	CodePageUTF8        CodePage = 65001
	CodePageShiftJIS    CodePage = 932
	CodePageGBK         CodePage = 936
	CodePageKorean      CodePage = 949
	CodePageBig5        CodePage = 950
)

var codePageEncodings = map[CodePage]encoding.Encoding{
	CodePageWindows1250: charmap.Windows1250,
	CodePageWindows1251: charmap.Windows1251,
	CodePageWindows1252: charmap.Windows1252,
	CodePageWindows1253: charmap.Windows1253,
	CodePageWindows1254: charmap.Windows1254,
	CodePageWindows1255: charmap.Windows1255,
	CodePageWindows1256: charmap.Windows1256,
	CodePageWindows1257: charmap.Windows1257,
	CodePageWindows1258: charmap.Windows1258,
	CodePageShiftJIS:    japanese.ShiftJIS,
	CodePageGBK:         simplifiedchinese.GBK,
	CodePageKorean:      korean.EUCKR,
	CodePageBig5:        traditionalchinese.Big5,
}

// ValidCodePage reports whether cp is one of the codepages this library
// recognizes.
func ValidCodePage(cp CodePage) bool {
	if cp == CodePageUTF8 {
		return true
	}
	_, ok := codePageEncodings[cp]
	return ok
}

// Decode converts bytes encoded in cp to a Unicode string.
func (cp CodePage) Decode(b []byte) (string, error) {
	if cp == CodePageUTF8 {
		return string(b), nil
	}
	enc, ok := codePageEncodings[cp]
	if !ok {
		return "", fmt.Errorf("core: unsupported codepage %d", cp)
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("core: decode codepage %d: %w", cp, err)
	}
	return string(out), nil
}

// Encode converts a Unicode string to bytes in cp.
func (cp CodePage) Encode(s string) ([]byte, error) {
	if cp == CodePageUTF8 {
		return []byte(s), nil
	}
	enc, ok := codePageEncodings[cp]
	if !ok {
		return nil, fmt.Errorf("core: unsupported codepage %d", cp)
	}
	out, err := enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("core: encode codepage %d: %w", cp, err)
	}
	return out, nil
}

// ASCIICompatible reports whether s can be re-encoded into a different
// codepage without data loss, i.e. it contains only 7-bit ASCII. Package
// uses this to decide whether a codepage switch needs a full pool rewrite.
func ASCIICompatible(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}
