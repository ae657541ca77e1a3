// Package compress provides the compression codecs used by dex archives.
//
// A dex image is already densely packed, but its string data, type
// descriptors and code items repeat heavily across classes and across the
// images of a multi-dex application. The archive package compresses each
// entry with one of the codecs defined here.
//
// # Supported Algorithms
//
//   - None (format.CompressionNone): entries are stored verbatim
//   - Zstd (format.CompressionZstd): best ratio, the usual choice on disk
//   - S2 (format.CompressionS2): balanced speed and ratio
//   - LZ4 (format.CompressionLZ4): fastest decompression
//
// # Interfaces
//
//	type Compressor interface {
//	    Compress(data []byte) ([]byte, error)
//	}
//
//	type Decompressor interface {
//	    Decompress(data []byte) ([]byte, error)
//	}
//
//	type Codec interface {
//	    Compressor
//	    Decompressor
//	}
//
// GetCodec returns a shared codec for a format.CompressionType and
// CreateCodec returns a fresh one. All built-in codecs are safe for
// concurrent use; the zstd and lz4 codecs pool their internal state.
//
// # Zstd Build Variants
//
// The default build uses the pure Go github.com/klauspost/compress/zstd.
// Build with -tags gozstd (and cgo enabled) to use github.com/valyala/gozstd
// instead. Both produce standard zstd frames, so archives written by one
// build are readable by the other.
//
// # Usage
//
//	codec, err := compress.GetCodec(format.CompressionZstd)
//	if err != nil {
//	    return err
//	}
//	packed, err := codec.Compress(image)
package compress
