package archive

import (
	"errors"
	"fmt"
	"iter"
	"math"

	"github.com/arloliu/dexkit/compress"
	"github.com/arloliu/dexkit/dex"
	"github.com/arloliu/dexkit/encoding"
	"github.com/arloliu/dexkit/endian"
	"github.com/arloliu/dexkit/errs"
	"github.com/arloliu/dexkit/format"
	"github.com/arloliu/dexkit/internal/hash"
)

// Reader gives access to the entries of an archive.
//
// Open parses only the entry table; images are decompressed and verified on
// demand. Entries reference the slice passed to Open, which must not be
// modified while the Reader is in use. A Reader is safe for concurrent use.
type Reader struct {
	compression format.CompressionType
	codec       compress.Codec
	entries     []Entry
	index       map[string]int
}

// Open parses the archive header and entry table.
//
// Parameters:
//   - data: Complete archive bytes
//
// Returns:
//   - *Reader: Reader over the entries
//   - error: ErrInvalidArchive for a bad header, truncated table, unknown codec or duplicate name
func Open(data []byte) (*Reader, error) {
	r := encoding.NewReader(data, endian.GetLittleEndianEngine())

	h, err := parseHeader(r)
	if err != nil {
		return nil, err
	}

	codec, err := compress.GetCodec(h.compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidArchive, err)
	}

	// every entry needs at least its fixed fields
	if uint64(h.count)*entryFixedSize > uint64(r.Len()-r.Pos()) {
		return nil, fmt.Errorf("%w: %d entries do not fit in %d bytes", errs.ErrInvalidArchive, h.count, len(data))
	}

	ar := &Reader{
		compression: h.compression,
		codec:       codec,
		entries:     make([]Entry, 0, h.count),
		index:       make(map[string]int, h.count),
	}
	for i := range h.count {
		e, err := parseEntry(r)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", errs.ErrInvalidArchive, i, err)
		}
		if _, ok := ar.index[e.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate entry %q", errs.ErrInvalidArchive, e.Name)
		}
		ar.index[e.Name] = len(ar.entries)
		ar.entries = append(ar.entries, e)
	}

	if r.Pos() != r.Len() {
		return nil, fmt.Errorf("%w: %d trailing bytes", errs.ErrInvalidArchive, r.Len()-r.Pos())
	}

	return ar, nil
}

// Compression returns the codec type of the archive.
func (r *Reader) Compression() format.CompressionType {
	return r.compression
}

// Len returns the number of entries.
func (r *Reader) Len() int {
	return len(r.entries)
}

// Names returns the entry names in archive order.
func (r *Reader) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Name
	}

	return names
}

// Entries iterates the entry descriptors in archive order.
func (r *Reader) Entries() iter.Seq2[int, Entry] {
	return func(yield func(int, Entry) bool) {
		for i, e := range r.entries {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Entry returns the descriptor of the named entry.
func (r *Reader) Entry(name string) (Entry, bool) {
	i, ok := r.index[name]
	if !ok {
		return Entry{}, false
	}

	return r.entries[i], true
}

// Stats reports the compression effect for the named entry.
func (r *Reader) Stats(name string) (compress.CompressionStats, error) {
	e, ok := r.Entry(name)
	if !ok {
		return compress.CompressionStats{}, fmt.Errorf("%w: %q", errs.ErrEntryNotFound, name)
	}

	return compress.CompressionStats{
		Algorithm:      r.compression,
		OriginalSize:   int64(e.RawSize),
		CompressedSize: int64(e.StoredSize),
	}, nil
}

// Read decompresses the named entry and verifies its size and hash.
//
// Returns:
//   - []byte: Raw dex image owned by the caller
//   - error: ErrEntryNotFound, ErrInvalidArchive on a size mismatch or codec failure, ErrHashMismatch
func (r *Reader) Read(name string) ([]byte, error) {
	e, ok := r.Entry(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrEntryNotFound, name)
	}

	var raw []byte
	var err error
	if sd, ok := r.codec.(compress.SizedDecompressor); ok {
		raw, err = sd.DecompressSized(e.stored, int(e.RawSize))
	} else {
		raw, err = r.codec.Decompress(e.stored)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: entry %q: %w", errs.ErrInvalidArchive, name, err)
	}
	if uint64(len(raw)) > math.MaxUint32 || uint32(len(raw)) != e.RawSize { //nolint: gosec
		return nil, fmt.Errorf("%w: entry %q has %d bytes, want %d", errs.ErrInvalidArchive, name, len(raw), e.RawSize)
	}
	if got := hash.Sum(raw); got != e.Hash {
		return nil, fmt.Errorf("%w: entry %q: got %#016x, want %#016x", errs.ErrHashMismatch, name, got, e.Hash)
	}

	if r.compression == format.CompressionNone {
		raw = append([]byte(nil), raw...)
	}

	return raw, nil
}

// Decode reads the named entry and decodes it into a Container.
//
// An integrity mismatch reported by dex.Decode is returned together with the
// container, as dex.Decode does.
func (r *Reader) Decode(name string, opts ...dex.DecodeOption) (*dex.Container, error) {
	raw, err := r.Read(name)
	if err != nil {
		return nil, err
	}

	c, err := dex.Decode(raw, opts...)
	if err != nil && !errors.Is(err, errs.ErrIntegrityMismatch) {
		return nil, fmt.Errorf("decode %q: %w", name, err)
	}

	return c, err
}
