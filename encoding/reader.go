package encoding

import (
	"fmt"
	"math"

	"github.com/arloliu/dexkit/endian"
	"github.com/arloliu/dexkit/errs"
)

// Reader is a bounds-checked cursor over an immutable dex image.
//
// Every read either advances the cursor or returns an error; it never panics
// on short input. Fixed-width scalars use the engine supplied at construction.
type Reader struct {
	data   []byte
	pos    int
	engine endian.EndianEngine
}

// NewReader creates a Reader positioned at offset 0.
func NewReader(data []byte, engine endian.EndianEngine) *Reader {
	return &Reader{data: data, engine: engine}
}

// Pos returns the current absolute offset.
func (r *Reader) Pos() int {
	return r.pos
}

// Len returns the size of the underlying image.
func (r *Reader) Len() int {
	return len(r.data)
}

// Engine returns the byte order engine used for fixed-width reads.
func (r *Reader) Engine() endian.EndianEngine {
	return r.engine
}

// Seek moves the cursor to an absolute offset. Seeking to Len() is allowed.
func (r *Reader) Seek(off uint32) error {
	if uint64(off) > uint64(len(r.data)) {
		return fmt.Errorf("%w: offset 0x%x beyond image size 0x%x", errs.ErrTruncatedInput, off, len(r.data))
	}
	r.pos = int(off)

	return nil
}

// ExpectAligned fails with ErrAlignment unless the cursor sits on the given boundary.
func (r *Reader) ExpectAligned(alignment int) error {
	if !IsAligned(r.pos, alignment) {
		return fmt.Errorf("%w: offset 0x%x is not %d-byte aligned", errs.ErrAlignment, r.pos, alignment)
	}

	return nil
}

// SkipPadding advances to the next multiple of alignment.
func (r *Reader) SkipPadding(alignment int) error {
	next := AlignUp(r.pos, alignment)
	if next > len(r.data) {
		return fmt.Errorf("%w: padding at 0x%x", errs.ErrTruncatedInput, r.pos)
	}
	r.pos = next

	return nil
}

func (r *Reader) need(n int) error {
	if n < 0 || len(r.data)-r.pos < n {
		return fmt.Errorf("%w: need %d bytes at 0x%x, image size 0x%x", errs.ErrTruncatedInput, n, r.pos, len(r.data))
	}

	return nil
}

// Bytes returns the next n bytes without copying.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n

	return b, nil
}

// U8 reads one byte.
func (r *Reader) U8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++

	return v, nil
}

// U16 reads a 16-bit value in the reader's byte order.
func (r *Reader) U16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := r.engine.Uint16(r.data[r.pos:])
	r.pos += 2

	return v, nil
}

// U32 reads a 32-bit value in the reader's byte order.
func (r *Reader) U32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := r.engine.Uint32(r.data[r.pos:])
	r.pos += 4

	return v, nil
}

// U64 reads a 64-bit value in the reader's byte order.
func (r *Reader) U64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := r.engine.Uint64(r.data[r.pos:])
	r.pos += 8

	return v, nil
}

// U16Slice reads n consecutive 16-bit units into a new slice. It returns nil for n == 0.
func (r *Reader) U16Slice(n uint32) ([]uint16, error) {
	if n == 0 {
		return nil, nil
	}
	if uint64(n)*2 > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %d units", errs.ErrTruncatedInput, n)
	}
	if err := r.need(int(n) * 2); err != nil {
		return nil, err
	}
	out := make([]uint16, n)
	for i := range out {
		out[i] = r.engine.Uint16(r.data[r.pos:])
		r.pos += 2
	}

	return out, nil
}

// Uleb128 reads an unsigned LEB128 value of at most 5 bytes.
func (r *Reader) Uleb128() (uint32, error) {
	v, n, err := ReadUleb128(r.data[r.pos:])
	if err != nil {
		return 0, fmt.Errorf("at 0x%x: %w", r.pos, err)
	}
	r.pos += n

	return v, nil
}

// Sleb128 reads a signed LEB128 value of at most 5 bytes.
func (r *Reader) Sleb128() (int32, error) {
	v, n, err := ReadSleb128(r.data[r.pos:])
	if err != nil {
		return 0, fmt.Errorf("at 0x%x: %w", r.pos, err)
	}
	r.pos += n

	return v, nil
}

// Uleb128p1 reads a ULEB128p1 value; a stored zero yields 0xFFFFFFFF.
func (r *Reader) Uleb128p1() (uint32, error) {
	v, n, err := ReadUleb128p1(r.data[r.pos:])
	if err != nil {
		return 0, fmt.Errorf("at 0x%x: %w", r.pos, err)
	}
	r.pos += n

	return v, nil
}

// StringData reads a string_data_item at the cursor.
func (r *Reader) StringData() (string, error) {
	s, n, err := ReadStringData(r.data[r.pos:])
	if err != nil {
		return "", fmt.Errorf("string data at 0x%x: %w", r.pos, err)
	}
	r.pos += n

	return s, nil
}
