package barcode

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
)

// RepairShiftJIS undoes a known engine misdetection: an ISO-8859-1 payload
// with exactly two non-ASCII characters is sometimes decoded as Shift-JIS,
// because each accented byte pairs with its neighbour into one double-byte
// character. data is the UTF-8 text the engine produced.
//
// The text is re-encoded as Shift-JIS and those bytes are read back as
// ISO-8859-1. The candidate is returned when its ASCII character count is
// exactly two less than the byte count; any other text, including text that
// Shift-JIS cannot represent, comes back unchanged. Only JIS X 0208 counts
// as representable: the NEC and IBM extension characters the encoder also
// accepts, such as ① or Ⅰ, leave the text unchanged. This is a narrow
// empirical rule, not a charset detector.
func RepairShiftJIS(data []byte) string {
	text := strings.ToValidUTF8(string(data), "\uFFFD")
	sjis, err := japanese.ShiftJIS.NewEncoder().String(text)
	if err != nil || !plainShiftJIS(sjis) {
		return text
	}
	candidate, err := charmap.ISO8859_1.NewDecoder().String(sjis)
	if err != nil {
		return text
	}
	ascii := 0
	for _, r := range candidate {
		if r < utf8.RuneSelf {
			ascii++
		}
	}
	if ascii == len(sjis)-2 {
		return candidate
	}
	return text
}

// plainShiftJIS reports whether the Shift-JIS bytes stay within JIS X 0201
// and JIS X 0208. Lead byte 0x87 is the NEC special row, 0xED and 0xEE the
// NEC-selected IBM extensions and 0xFA to 0xFC the IBM extensions.
func plainShiftJIS(sjis string) bool {
	for i := 0; i < len(sjis); i++ {
		lead := sjis[i]
		switch {
		case lead < 0x80, lead >= 0xA1 && lead <= 0xDF:
			continue
		case lead == 0x87, lead == 0xED, lead == 0xEE, lead >= 0xFA:
			return false
		}
		i++
	}
	return true
}

// RepairLatin1 handles Data Matrix payloads that engines decode as
// ISO-8859-1 although the encoder wrote UTF-8. If text re-encodes to
// ISO-8859-1 bytes that form valid UTF-8, the UTF-8 reading is returned;
// otherwise text is returned unchanged.
func RepairLatin1(text string) string {
	raw, err := charmap.ISO8859_1.NewEncoder().String(text)
	if err != nil || !utf8.ValidString(raw) {
		return text
	}
	return raw
}
