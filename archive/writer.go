package archive

import (
	"bytes"
	"fmt"
	"math"

	"github.com/arloliu/dexkit/compress"
	"github.com/arloliu/dexkit/dex"
	"github.com/arloliu/dexkit/encoding"
	"github.com/arloliu/dexkit/endian"
	"github.com/arloliu/dexkit/errs"
	"github.com/arloliu/dexkit/format"
	"github.com/arloliu/dexkit/internal/hash"
	"github.com/arloliu/dexkit/internal/options"
)

// WriterConfig holds archive writer settings.
type WriterConfig struct {
	compression format.CompressionType
}

// WriterOption represents a functional option for NewWriter.
type WriterOption = options.Option[*WriterConfig]

// WithCompression selects the codec applied to every entry.
// The default is format.CompressionZstd.
func WithCompression(ct format.CompressionType) WriterOption {
	return options.New(func(cfg *WriterConfig) error {
		if _, err := compress.GetCodec(ct); err != nil {
			return fmt.Errorf("%w: %w", errs.ErrInvalidArchive, err)
		}
		cfg.compression = ct

		return nil
	})
}

// Writer accumulates named dex images and frames them into an archive.
//
// Entries are compressed as they are added and kept in insertion order.
// A Writer is not safe for concurrent use.
type Writer struct {
	cfg     WriterConfig
	codec   compress.Codec
	entries []Entry
	names   map[string]struct{}
}

// NewWriter creates an archive writer.
//
// Parameters:
//   - opts: Writer options (WithCompression)
//
// Returns:
//   - *Writer: Empty writer
//   - error: Invalid option
func NewWriter(opts ...WriterOption) (*Writer, error) {
	cfg := WriterConfig{compression: format.CompressionZstd}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	codec, err := compress.CreateCodec(cfg.compression, "archive")
	if err != nil {
		return nil, err
	}

	return &Writer{
		cfg:   cfg,
		codec: codec,
		names: make(map[string]struct{}),
	}, nil
}

// Compression returns the codec type applied to entries.
func (w *Writer) Compression() format.CompressionType {
	return w.cfg.compression
}

// Len returns the number of entries added so far.
func (w *Writer) Len() int {
	return len(w.entries)
}

// Add appends an already encoded dex image under name.
//
// The image is copied, so the caller may reuse it after Add returns.
//
// Parameters:
//   - name: Unique, non-empty entry name of at most 65535 bytes
//   - image: Encoded dex image
//
// Returns:
//   - error: ErrDuplicateEntry for a repeated name, ErrInvalidArchive for a bad name or oversized image
func (w *Writer) Add(name string, image []byte) error {
	if name == "" || len(name) > maxNameLen {
		return fmt.Errorf("%w: entry name length %d", errs.ErrInvalidArchive, len(name))
	}
	if _, ok := w.names[name]; ok {
		return fmt.Errorf("%w: archive entry %q", errs.ErrDuplicateEntry, name)
	}

	stored, err := w.codec.Compress(image)
	if err != nil {
		return fmt.Errorf("compress %q: %w", name, err)
	}
	if uint64(len(image)) > math.MaxUint32 || uint64(len(stored)) > math.MaxUint32 {
		return fmt.Errorf("%w: entry %q exceeds 4GiB", errs.ErrInvalidArchive, name)
	}

	// NoOp returns the input slice
	if w.cfg.compression == format.CompressionNone {
		stored = bytes.Clone(image)
	}

	w.entries = append(w.entries, Entry{
		Name:       name,
		RawSize:    uint32(len(image)),  //nolint: gosec
		StoredSize: uint32(len(stored)), //nolint: gosec
		Hash:       hash.Sum(image),
		stored:     stored,
	})
	w.names[name] = struct{}{}

	return nil
}

// AddContainer encodes c and appends the image under name.
func (w *Writer) AddContainer(name string, c *dex.Container, opts ...dex.EncodeOption) error {
	image, err := dex.Encode(c, opts...)
	if err != nil {
		return fmt.Errorf("encode %q: %w", name, err)
	}

	return w.Add(name, image)
}

// Bytes frames all entries into a new archive.
//
// The Writer stays usable; later Add calls extend the next Bytes result.
func (w *Writer) Bytes() ([]byte, error) {
	ew := encoding.NewWriter(endian.GetLittleEndianEngine())
	defer ew.Release()

	header{
		version:     Version,
		compression: w.cfg.compression,
		count:       uint32(len(w.entries)), //nolint: gosec
	}.write(ew)

	for _, e := range w.entries {
		e.write(ew)
	}

	return bytes.Clone(ew.Bytes()), nil
}
