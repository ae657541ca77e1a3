package compress

// ZstdCompressor provides Zstandard compression for dex images.
//
// Dex files carry large string and code sections with heavy repetition, so
// zstd gives the best ratio of the built-in codecs and is the usual choice
// for archives kept on disk.
//
// The default build uses the pure Go klauspost/compress implementation.
// Building with the gozstd tag (and cgo enabled) switches to valyala/gozstd.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
//
// Example:
//
//	compressor := NewZstdCompressor()
//	compressed, err := compressor.Compress(image)
//	if err != nil {
//		return err
//	}
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
