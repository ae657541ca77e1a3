package archive

import (
	"fmt"

	"github.com/arloliu/dexkit/encoding"
	"github.com/arloliu/dexkit/errs"
	"github.com/arloliu/dexkit/format"
)

const (
	// Magic identifies an archive.
	Magic = "DXAR"
	// Version is the archive format version written by Writer.
	Version uint16 = 1

	headerSize = 12
	// entryFixedSize covers the name length, raw size, stored size and hash.
	entryFixedSize = 2 + 4 + 4 + 8
	maxNameLen     = 0xFFFF
)

// Entry describes one image stored in an archive.
type Entry struct {
	Name       string
	RawSize    uint32
	StoredSize uint32
	Hash       uint64

	stored []byte
}

type header struct {
	version     uint16
	compression format.CompressionType
	count       uint32
}

func (h header) write(w *encoding.Writer) {
	w.Write([]byte(Magic))
	w.U16(h.version)
	w.U8(uint8(h.compression))
	w.U8(0)
	w.U32(h.count)
}

func parseHeader(r *encoding.Reader) (header, error) {
	magic, err := r.Bytes(len(Magic))
	if err != nil {
		return header{}, fmt.Errorf("%w: short header", errs.ErrInvalidArchive)
	}
	if string(magic) != Magic {
		return header{}, fmt.Errorf("%w: bad magic %q", errs.ErrInvalidArchive, magic)
	}

	var h header
	if h.version, err = r.U16(); err != nil {
		return header{}, fmt.Errorf("%w: short header", errs.ErrInvalidArchive)
	}
	if h.version != Version {
		return header{}, fmt.Errorf("%w: unsupported version %d", errs.ErrInvalidArchive, h.version)
	}

	ct, err := r.U8()
	if err != nil {
		return header{}, fmt.Errorf("%w: short header", errs.ErrInvalidArchive)
	}
	h.compression = format.CompressionType(ct)

	reserved, err := r.U8()
	if err != nil {
		return header{}, fmt.Errorf("%w: short header", errs.ErrInvalidArchive)
	}
	if reserved != 0 {
		return header{}, fmt.Errorf("%w: reserved byte is %#x", errs.ErrInvalidArchive, reserved)
	}

	if h.count, err = r.U32(); err != nil {
		return header{}, fmt.Errorf("%w: short header", errs.ErrInvalidArchive)
	}

	return h, nil
}

func (e Entry) write(w *encoding.Writer) {
	w.U16(uint16(len(e.Name))) //nolint: gosec
	w.Write([]byte(e.Name))
	w.U32(e.RawSize)
	w.U32(e.StoredSize)
	w.U64(e.Hash)
	w.Write(e.stored)
}

func parseEntry(r *encoding.Reader) (Entry, error) {
	var e Entry

	nameLen, err := r.U16()
	if err != nil {
		return e, err
	}
	name, err := r.Bytes(int(nameLen))
	if err != nil {
		return e, err
	}
	e.Name = string(name)

	if e.RawSize, err = r.U32(); err != nil {
		return e, err
	}
	if e.StoredSize, err = r.U32(); err != nil {
		return e, err
	}
	if e.Hash, err = r.U64(); err != nil {
		return e, err
	}
	if e.stored, err = r.Bytes(int(e.StoredSize)); err != nil {
		return e, err
	}

	return e, nil
}
