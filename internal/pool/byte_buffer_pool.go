package pool

import "sync"

// Buffer classes used by dexkit. Scratch buffers hold a single data item while
// it is rendered and deduplicated; image buffers hold a whole encoded file.
const (
	ScratchBufferDefaultSize  = 1024 * 4         // 4KiB
	ScratchBufferMaxThreshold = 1024 * 64        // 64KiB
	ImageBufferDefaultSize    = 1024 * 64        // 64KiB
	ImageBufferMaxThreshold   = 1024 * 1024 * 16 // 16MiB
)

// ByteBuffer is an append-only byte slice that can be returned to a pool.
// Callers append to B directly; the methods cover the cases that need growth
// decisions.
type ByteBuffer struct {
	B []byte
}

// NewByteBuffer creates an empty ByteBuffer with the given capacity.
func NewByteBuffer(capacity int) *ByteBuffer {
	return &ByteBuffer{B: make([]byte, 0, capacity)}
}

func (bb *ByteBuffer) Bytes() []byte { return bb.B }
func (bb *ByteBuffer) Len() int      { return len(bb.B) }
func (bb *ByteBuffer) Cap() int      { return cap(bb.B) }

// Reset empties the buffer and keeps its backing array.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Write appends data. It implements io.Writer and never fails.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// AppendZeros appends n zero bytes, growing the buffer when needed.
func (bb *ByteBuffer) AppendZeros(n int) {
	if n <= 0 {
		return
	}
	bb.Grow(n)
	start := len(bb.B)
	bb.B = bb.B[:start+n]
	clear(bb.B[start:])
}

// Grow makes room for at least n more bytes.
//
// Images below four default-sized chunks grow one chunk at a time; past that
// the capacity grows by a quarter, or by n when that is larger.
func (bb *ByteBuffer) Grow(n int) {
	if cap(bb.B)-len(bb.B) >= n {
		return
	}

	step := ImageBufferDefaultSize
	if cap(bb.B) > 4*ImageBufferDefaultSize {
		step = cap(bb.B) / 4
	}
	step = max(step, n)

	grown := make([]byte, len(bb.B), len(bb.B)+step)
	copy(grown, bb.B)
	bb.B = grown
}

// ByteBufferPool recycles ByteBuffers through a sync.Pool. Buffers whose
// capacity exceeds maxThreshold are dropped on Put so one large image does not
// pin memory for the life of the process.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a pool handing out buffers of defaultSize
// capacity. A maxThreshold of zero keeps every returned buffer.
func NewByteBufferPool(defaultSize int, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any { return NewByteBuffer(defaultSize) },
		},
		maxThreshold: maxThreshold,
	}
}

func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	return bb
}

func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil || (bbp.maxThreshold > 0 && cap(bb.B) > bbp.maxThreshold) {
		return
	}
	bb.Reset()
	bbp.pool.Put(bb)
}

var (
	scratchDefaultPool = NewByteBufferPool(ScratchBufferDefaultSize, ScratchBufferMaxThreshold)
	imageDefaultPool   = NewByteBufferPool(ImageBufferDefaultSize, ImageBufferMaxThreshold)
)

// GetScratchBuffer returns a buffer for rendering a single data item.
func GetScratchBuffer() *ByteBuffer { return scratchDefaultPool.Get() }

// PutScratchBuffer releases a buffer obtained from GetScratchBuffer.
func PutScratchBuffer(bb *ByteBuffer) { scratchDefaultPool.Put(bb) }

// GetImageBuffer returns a buffer sized for a whole dex image.
func GetImageBuffer() *ByteBuffer { return imageDefaultPool.Get() }

// PutImageBuffer releases a buffer obtained from GetImageBuffer.
func PutImageBuffer(bb *ByteBuffer) { imageDefaultPool.Put(bb) }
