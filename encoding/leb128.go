package encoding

import (
	"fmt"

	"github.com/arloliu/dexkit/errs"
)

// MaxLeb128Size is the longest encoding of a 32-bit LEB128 value.
const MaxLeb128Size = 5

// ReadUleb128 decodes an unsigned LEB128 value from the start of data.
//
// Parameters:
//   - data: Input bytes starting at the first byte of the value
//
// Returns:
//   - uint32: Decoded value (bits beyond 32 in the fifth byte are discarded)
//   - int: Number of bytes consumed
//   - error: ErrTruncatedInput if data ends early, ErrMalformedVarint if the
//     fifth byte still has its continuation bit set
func ReadUleb128(data []byte) (uint32, int, error) {
	var result uint32
	for i := range MaxLeb128Size {
		if i >= len(data) {
			return 0, 0, fmt.Errorf("%w: uleb128 at byte %d", errs.ErrTruncatedInput, i)
		}
		b := data[i]
		result |= uint32(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			return result, i + 1, nil
		}
	}

	return 0, 0, errs.ErrMalformedVarint
}

// ReadSleb128 decodes a signed LEB128 value from the start of data.
// The value is sign-extended from the highest bit carried by the last byte.
func ReadSleb128(data []byte) (int32, int, error) {
	var result int32
	for i := range MaxLeb128Size {
		if i >= len(data) {
			return 0, 0, fmt.Errorf("%w: sleb128 at byte %d", errs.ErrTruncatedInput, i)
		}
		b := data[i]
		shift := 7 * uint(i)
		result |= int32(b&0x7f) << shift
		if b&0x80 == 0 {
			shift += 7
			if shift < 32 && b&0x40 != 0 {
				result |= -1 << shift
			}

			return result, i + 1, nil
		}
	}

	return 0, 0, errs.ErrMalformedVarint
}

// ReadUleb128p1 decodes a ULEB128p1 value: the stored value minus one.
// A stored zero yields 0xFFFFFFFF, the "no index" sentinel.
func ReadUleb128p1(data []byte) (uint32, int, error) {
	v, n, err := ReadUleb128(data)
	if err != nil {
		return 0, 0, err
	}

	return v - 1, n, nil
}

// AppendUleb128 appends the unsigned LEB128 encoding of v to dst.
func AppendUleb128(dst []byte, v uint32) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}

	return append(dst, byte(v))
}

// AppendSleb128 appends the signed LEB128 encoding of v to dst.
func AppendSleb128(dst []byte, v int32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

// AppendUleb128p1 appends v+1 as unsigned LEB128, so 0xFFFFFFFF encodes as a single zero byte.
func AppendUleb128p1(dst []byte, v uint32) []byte {
	return AppendUleb128(dst, v+1)
}

// Uleb128Size returns the number of bytes AppendUleb128 writes for v.
func Uleb128Size(v uint32) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}

	return n
}
