package encoding

import "math/bits"

// Encoded values store integral payloads in the fewest little-endian bytes
// that represent them. The helpers below compute those widths and convert
// between the payload bytes and 64-bit values.

// SignedWidth returns the byte count (1..8) of the sign-extended form of v.
func SignedWidth(v int64) int {
	u := uint64(v ^ (v >> 63))
	return (64 - bits.LeadingZeros64(u) + 8) >> 3
}

// UnsignedWidth returns the byte count (1..8) of the zero-extended form of v.
func UnsignedWidth(v uint64) int {
	n := (64 - bits.LeadingZeros64(v) + 7) >> 3
	if n == 0 {
		return 1
	}

	return n
}

// RightZeroExtendedWidth returns the byte count (1..8) needed for v when the
// omitted low-order bytes are implied zeros (float and double payloads).
func RightZeroExtendedWidth(v uint64) int {
	n := (64 - bits.TrailingZeros64(v) + 7) >> 3
	if n == 0 {
		return 1
	}

	return n
}

// AppendSigned appends the low width bytes of v in little-endian order.
func AppendSigned(dst []byte, v int64, width int) []byte {
	return AppendUnsigned(dst, uint64(v), width)
}

// AppendUnsigned appends the low width bytes of v in little-endian order.
func AppendUnsigned(dst []byte, v uint64, width int) []byte {
	for range width {
		dst = append(dst, byte(v))
		v >>= 8
	}

	return dst
}

// AppendRightZeroExtended appends the high width bytes of v in little-endian order.
func AppendRightZeroExtended(dst []byte, v uint64, width int) []byte {
	return AppendUnsigned(dst, v>>(64-8*uint(width)), width)
}

// ParseSigned sign-extends a little-endian payload of len(b) bytes.
func ParseSigned(b []byte) int64 {
	shift := 64 - 8*uint(len(b))
	return int64(ParseUnsigned(b)<<shift) >> shift
}

// ParseUnsigned zero-extends a little-endian payload of len(b) bytes.
func ParseUnsigned(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}

	return v
}

// ParseRightZeroExtended places a little-endian payload in the high bytes of a 64-bit value.
func ParseRightZeroExtended(b []byte) uint64 {
	return ParseUnsigned(b) << (64 - 8*uint(len(b)))
}
