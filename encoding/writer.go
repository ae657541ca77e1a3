package encoding

import (
	"github.com/arloliu/dexkit/endian"
	"github.com/arloliu/dexkit/internal/pool"
)

// Writer appends dex primitives to a pooled byte buffer.
//
// Positions returned by Pos are absolute offsets into the final image when the
// writer starts at offset 0, which is how the layout resolver uses it.
type Writer struct {
	buf    *pool.ByteBuffer
	engine endian.EndianEngine
}

// NewWriter creates a Writer backed by a buffer from the image pool.
// Call Release when the bytes have been copied out.
func NewWriter(engine endian.EndianEngine) *Writer {
	return &Writer{
		buf:    pool.GetImageBuffer(),
		engine: engine,
	}
}

// Engine returns the byte order engine used for fixed-width writes.
func (w *Writer) Engine() endian.EndianEngine {
	return w.engine
}

// Pos returns the number of bytes written so far.
func (w *Writer) Pos() int {
	return w.buf.Len()
}

// Bytes returns the written bytes. The slice is only valid until Release.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Release returns the backing buffer to the pool.
func (w *Writer) Release() {
	pool.PutImageBuffer(w.buf)
	w.buf = nil
}

// U8 appends one byte.
func (w *Writer) U8(v uint8) {
	w.buf.B = append(w.buf.B, v)
}

// U16 appends a 16-bit value in the writer's byte order.
func (w *Writer) U16(v uint16) {
	w.buf.B = w.engine.AppendUint16(w.buf.B, v)
}

// U32 appends a 32-bit value in the writer's byte order.
func (w *Writer) U32(v uint32) {
	w.buf.B = w.engine.AppendUint32(w.buf.B, v)
}

// U64 appends a 64-bit value in the writer's byte order.
func (w *Writer) U64(v uint64) {
	w.buf.B = w.engine.AppendUint64(w.buf.B, v)
}

// Uleb128 appends v as unsigned LEB128.
func (w *Writer) Uleb128(v uint32) {
	w.buf.B = AppendUleb128(w.buf.B, v)
}

// Sleb128 appends v as signed LEB128.
func (w *Writer) Sleb128(v int32) {
	w.buf.B = AppendSleb128(w.buf.B, v)
}

// Uleb128p1 appends v+1 as unsigned LEB128.
func (w *Writer) Uleb128p1(v uint32) {
	w.buf.B = AppendUleb128p1(w.buf.B, v)
}

// Write appends raw bytes.
func (w *Writer) Write(data []byte) {
	w.buf.B = append(w.buf.B, data...)
}

// StringData writes s as a string_data_item.
func (w *Writer) StringData(s string) {
	w.buf.B = AppendStringData(w.buf.B, s)
}

// Zeros appends n zero bytes.
func (w *Writer) Zeros(n int) {
	w.buf.AppendZeros(n)
}

// Align pads with zero bytes up to the next multiple of alignment.
func (w *Writer) Align(alignment int) {
	if pad := AlignUp(w.Pos(), alignment) - w.Pos(); pad > 0 {
		w.Zeros(pad)
	}
}

// PutU32At overwrites a previously written 32-bit field.
func (w *Writer) PutU32At(pos int, v uint32) {
	w.engine.PutUint32(w.buf.B[pos:pos+4], v)
}

// WriteAt overwrites previously written bytes starting at pos.
func (w *Writer) WriteAt(pos int, data []byte) {
	copy(w.buf.B[pos:pos+len(data)], data)
}
