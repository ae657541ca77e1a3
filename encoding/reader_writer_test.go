package encoding

import (
	"testing"

	"github.com/arloliu/dexkit/endian"
	"github.com/arloliu/dexkit/errs"
	"github.com/stretchr/testify/require"
)

func TestWriterReader_RoundTrip(t *testing.T) {
	for _, engine := range []endian.EndianEngine{endian.GetLittleEndianEngine(), endian.GetBigEndianEngine()} {
		w := NewWriter(engine)
		w.U8(0xab)
		w.Align(4)
		w.U32(0xdeadbeef)
		w.U16(0x1234)
		w.U64(0x0102030405060708)
		w.Uleb128(300)
		w.Sleb128(-5)
		w.Uleb128p1(0xffffffff)
		w.StringData("Ljava/lang/Object;")
		patch := w.Pos()
		w.U32(0)
		w.PutU32At(patch, 42)

		data := append([]byte(nil), w.Bytes()...)
		w.Release()

		r := NewReader(data, engine)
		b, err := r.U8()
		require.NoError(t, err)
		require.Equal(t, uint8(0xab), b)
		require.NoError(t, r.SkipPadding(4))
		require.NoError(t, r.ExpectAligned(4))

		u32, err := r.U32()
		require.NoError(t, err)
		require.Equal(t, uint32(0xdeadbeef), u32)

		u16, err := r.U16()
		require.NoError(t, err)
		require.Equal(t, uint16(0x1234), u16)

		u64, err := r.U64()
		require.NoError(t, err)
		require.Equal(t, uint64(0x0102030405060708), u64)

		uleb, err := r.Uleb128()
		require.NoError(t, err)
		require.Equal(t, uint32(300), uleb)

		sleb, err := r.Sleb128()
		require.NoError(t, err)
		require.Equal(t, int32(-5), sleb)

		p1, err := r.Uleb128p1()
		require.NoError(t, err)
		require.Equal(t, uint32(0xffffffff), p1)

		s, err := r.StringData()
		require.NoError(t, err)
		require.Equal(t, "Ljava/lang/Object;", s)

		patched, err := r.U32()
		require.NoError(t, err)
		require.Equal(t, uint32(42), patched)
		require.Equal(t, r.Len(), r.Pos())
	}
}

func TestReader_Bounds(t *testing.T) {
	r := NewReader([]byte{1, 2, 3}, endian.GetLittleEndianEngine())

	_, err := r.U32()
	require.ErrorIs(t, err, errs.ErrTruncatedInput)

	require.NoError(t, r.Seek(3))
	_, err = r.U8()
	require.ErrorIs(t, err, errs.ErrTruncatedInput)

	require.ErrorIs(t, r.Seek(4), errs.ErrTruncatedInput)

	require.NoError(t, r.Seek(1))
	require.ErrorIs(t, r.ExpectAligned(4), errs.ErrAlignment)

	_, err = r.U16Slice(2)
	require.ErrorIs(t, err, errs.ErrTruncatedInput)
}

func TestWriter_Zeros(t *testing.T) {
	w := NewWriter(endian.GetLittleEndianEngine())
	defer w.Release()

	w.U8(1)
	w.Zeros(3)
	w.Align(8)
	require.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, w.Bytes())
}
