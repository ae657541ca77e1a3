package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewByteBuffer(t *testing.T) {
	bb := NewByteBuffer(ScratchBufferDefaultSize)

	require.NotNil(t, bb)
	require.Equal(t, 0, bb.Len())
	require.Equal(t, ScratchBufferDefaultSize, bb.Cap())
}

func TestByteBuffer_WriteAndReset(t *testing.T) {
	bb := NewByteBuffer(16)
	_, _ = bb.Write([]byte{1, 2, 3})
	n, err := bb.Write([]byte{4, 5})

	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []byte{1, 2, 3, 4, 5}, bb.Bytes())

	capBefore := bb.Cap()
	bb.Reset()
	require.Equal(t, 0, bb.Len())
	require.Equal(t, capBefore, bb.Cap(), "reset keeps capacity")
}

func TestByteBuffer_Grow(t *testing.T) {
	t.Run("sufficient capacity", func(t *testing.T) {
		bb := NewByteBuffer(ImageBufferDefaultSize)
		ptr := &bb.B[:1][0]
		bb.Grow(100)
		assert.Same(t, ptr, &bb.B[:1][0], "no reallocation expected")
	})

	t.Run("small buffer grows by default size", func(t *testing.T) {
		bb := NewByteBuffer(ImageBufferDefaultSize)
		bb.B = append(bb.B, make([]byte, ImageBufferDefaultSize)...)
		bb.Grow(1024)
		assert.GreaterOrEqual(t, bb.Cap(), 2*ImageBufferDefaultSize)
		assert.Equal(t, ImageBufferDefaultSize, bb.Len(), "length should not change")
	})

	t.Run("large buffer grows by a quarter", func(t *testing.T) {
		size := 8 * ImageBufferDefaultSize
		bb := NewByteBuffer(size)
		bb.B = append(bb.B, make([]byte, size)...)
		bb.Grow(1)
		assert.GreaterOrEqual(t, bb.Cap(), size+size/4)
	})

	t.Run("request larger than growth step", func(t *testing.T) {
		bb := NewByteBuffer(16)
		bb.B = append(bb.B, make([]byte, 16)...)
		bb.Grow(10 * ImageBufferDefaultSize)
		assert.GreaterOrEqual(t, bb.Cap()-bb.Len(), 10*ImageBufferDefaultSize)
	})
}

func TestByteBuffer_AppendZeros(t *testing.T) {
	bb := NewByteBuffer(4)
	bb.B = append(bb.B, 9, 9, 9, 9)
	bb.B = bb.B[:1]

	bb.AppendZeros(3)
	require.Equal(t, []byte{9, 0, 0, 0}, bb.Bytes(), "reused capacity is cleared")

	bb.AppendZeros(8)
	require.Equal(t, 12, bb.Len())
	require.Equal(t, byte(9), bb.Bytes()[0])

	bb.AppendZeros(0)
	bb.AppendZeros(-1)
	require.Equal(t, 12, bb.Len())
}

func TestByteBufferPool(t *testing.T) {
	p := NewByteBufferPool(32, 64)

	bb := p.Get()
	require.NotNil(t, bb)
	_, _ = bb.Write([]byte("dex"))
	p.Put(bb)

	reused := p.Get()
	require.Equal(t, 0, reused.Len(), "pooled buffers come back empty")

	// oversize buffers are dropped rather than retained
	big := NewByteBuffer(128)
	p.Put(big)
	p.Put(nil)
}

func TestDefaultPools(t *testing.T) {
	img := GetImageBuffer()
	require.GreaterOrEqual(t, img.Cap(), ImageBufferDefaultSize)
	PutImageBuffer(img)

	scratch := GetScratchBuffer()
	require.GreaterOrEqual(t, scratch.Cap(), ScratchBufferDefaultSize)
	PutScratchBuffer(scratch)
}
