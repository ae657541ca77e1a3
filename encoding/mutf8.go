package encoding

import (
	"fmt"
	"unicode/utf8"

	"github.com/arloliu/dexkit/errs"
)

const (
	surrogateMin = 0xd800
	surrogateMax = 0xdfff
	highSurrMax  = 0xdbff
	supplBase    = 0x10000
)

// DecodeMUTF8 decodes a zero-terminated MUTF-8 byte sequence into a Go string.
//
// Each UTF-16 code unit is stored as 1 to 3 bytes; supplementary code points
// appear as two 3-byte surrogates and are joined back into one rune. Unpaired
// surrogates are kept as their 3-byte form so the string re-encodes to the
// same bytes.
//
// Parameters:
//   - data: Input bytes starting at the first encoded unit
//
// Returns:
//   - string: Decoded text
//   - int: Number of UTF-16 code units decoded
//   - int: Number of bytes consumed, including the terminator
//   - error: ErrMalformedString on a bad lead or continuation byte or a missing terminator
func DecodeMUTF8(data []byte) (string, int, int, error) {
	units := make([]uint16, 0, len(data))
	pos := 0
	for {
		if pos >= len(data) {
			return "", 0, 0, fmt.Errorf("%w: missing terminator", errs.ErrMalformedString)
		}
		a := data[pos]
		switch {
		case a == 0:
			return unitsToString(units), len(units), pos + 1, nil
		case a < 0x80:
			units = append(units, uint16(a))
			pos++
		case a&0xe0 == 0xc0:
			if pos+1 >= len(data) || data[pos+1]&0xc0 != 0x80 {
				return "", 0, 0, fmt.Errorf("%w: bad second byte at %d", errs.ErrMalformedString, pos+1)
			}
			units = append(units, uint16(a&0x1f)<<6|uint16(data[pos+1]&0x3f))
			pos += 2
		case a&0xf0 == 0xe0:
			if pos+2 >= len(data) || data[pos+1]&0xc0 != 0x80 || data[pos+2]&0xc0 != 0x80 {
				return "", 0, 0, fmt.Errorf("%w: bad continuation at %d", errs.ErrMalformedString, pos+1)
			}
			units = append(units, uint16(a&0x0f)<<12|uint16(data[pos+1]&0x3f)<<6|uint16(data[pos+2]&0x3f))
			pos += 3
		default:
			return "", 0, 0, fmt.Errorf("%w: bad lead byte 0x%02x at %d", errs.ErrMalformedString, a, pos)
		}
	}
}

// ValidateString checks that s encodes to MUTF-8 without loss: it must be
// valid UTF-8, except that unpaired surrogates may appear in their 3-byte
// generalized form. A generalized high surrogate directly followed by a low
// one is rejected because it decodes as the supplementary code point instead.
//
// Returns:
//   - error: ErrMalformedString describing the first offending byte offset
func ValidateString(s string) error {
	for i := 0; i < len(s); {
		if u, ok := surrogateAt(s, i); ok {
			if lo, ok := surrogateAt(s, i+3); ok && u <= highSurrMax && lo > highSurrMax {
				return fmt.Errorf("%w: surrogate pair at %d is not a single code point", errs.ErrMalformedString, i)
			}
			i += 3

			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return fmt.Errorf("%w: invalid UTF-8 byte 0x%02x at %d", errs.ErrMalformedString, s[i], i)
		}
		i += size
	}

	return nil
}

// AppendMUTF8 appends the MUTF-8 encoding of s to dst without length prefix or terminator.
// Invalid UTF-8 bytes in s are encoded as U+FFFD; ValidateString rejects them up front.
func AppendMUTF8(dst []byte, s string) []byte {
	forEachUnit(s, func(u uint16) {
		switch {
		case u != 0 && u < 0x80:
			dst = append(dst, byte(u))
		case u < 0x800:
			dst = append(dst, 0xc0|byte(u>>6&0x1f), 0x80|byte(u&0x3f))
		default:
			dst = append(dst, 0xe0|byte(u>>12&0x0f), 0x80|byte(u>>6&0x3f), 0x80|byte(u&0x3f))
		}
	})

	return dst
}

// UTF16Length returns the number of UTF-16 code units needed for s, the
// value stored as the string_data_item length prefix.
func UTF16Length(s string) int {
	n := 0
	forEachUnit(s, func(uint16) { n++ })

	return n
}

// ReadStringData decodes a string_data_item: ULEB128 UTF-16 length followed by
// the MUTF-8 bytes and a zero terminator. The declared length must match.
func ReadStringData(data []byte) (string, int, error) {
	declared, n, err := ReadUleb128(data)
	if err != nil {
		return "", 0, err
	}
	s, units, used, err := DecodeMUTF8(data[n:])
	if err != nil {
		return "", 0, err
	}
	if uint32(units) != declared {
		return "", 0, fmt.Errorf("%w: declared length %d, decoded %d", errs.ErrMalformedString, declared, units)
	}

	return s, n + used, nil
}

// AppendStringData appends s as a string_data_item.
func AppendStringData(dst []byte, s string) []byte {
	dst = AppendUleb128(dst, uint32(UTF16Length(s)))
	dst = AppendMUTF8(dst, s)

	return append(dst, 0)
}

// forEachUnit walks s as UTF-16 code units. Three-byte sequences holding a
// surrogate code point (as produced by unitsToString) yield that unit directly.
func forEachUnit(s string, fn func(uint16)) {
	for i := 0; i < len(s); {
		if u, ok := surrogateAt(s, i); ok {
			fn(u)
			i += 3

			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if r >= supplBase {
			r -= supplBase
			fn(uint16(surrogateMin + (r>>10)&0x3ff))
			fn(uint16(0xdc00 + r&0x3ff))

			continue
		}
		fn(uint16(r))
	}
}

// surrogateAt reports whether s[i:] starts with the generalized UTF-8 form of a surrogate.
func surrogateAt(s string, i int) (uint16, bool) {
	if i+2 >= len(s) || s[i] != 0xed || s[i+1] < 0xa0 || s[i+1] > 0xbf || s[i+2]&0xc0 != 0x80 {
		return 0, false
	}

	return uint16(s[i]&0x0f)<<12 | uint16(s[i+1]&0x3f)<<6 | uint16(s[i+2]&0x3f), true
}

func unitsToString(units []uint16) string {
	buf := make([]byte, 0, len(units))
	for i := 0; i < len(units); i++ {
		u := units[i]
		if u >= surrogateMin && u <= highSurrMax && i+1 < len(units) {
			lo := units[i+1]
			if lo > highSurrMax && lo <= surrogateMax {
				r := supplBase + (rune(u)-surrogateMin)<<10 + (rune(lo) - 0xdc00)
				buf = utf8.AppendRune(buf, r)
				i++

				continue
			}
		}
		if u >= surrogateMin && u <= surrogateMax {
			buf = append(buf, 0xe0|byte(u>>12), 0x80|byte(u>>6&0x3f), 0x80|byte(u&0x3f))

			continue
		}
		buf = utf8.AppendRune(buf, rune(u))
	}

	return string(buf)
}
