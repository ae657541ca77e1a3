package section

import (
	"fmt"

	"github.com/arloliu/dexkit/endian"
	"github.com/arloliu/dexkit/errs"
	"github.com/arloliu/dexkit/format"
)

// Extent is a (size, offset) pair as stored in the header for each id table.
type Extent struct {
	Size   uint32
	Offset uint32
}

// End returns the offset just past the extent for an element size.
func (e Extent) End(elemSize uint32) uint64 {
	return uint64(e.Offset) + uint64(e.Size)*uint64(elemSize)
}

// Header represents the fixed-size header_item at the start of a dex image.
type Header struct {
	// Version is the revision encoded in the magic.
	Version format.Version // byte offset 0-7
	// Checksum is the Adler-32 of everything after this field.
	Checksum uint32 // byte offset 8-11
	// Signature is the SHA-1 of everything after this field.
	Signature [SignatureSize]byte // byte offset 12-31
	FileSize  uint32              // byte offset 32-35
	// HeaderSize is always 0x70.
	HeaderSize uint32 // byte offset 36-39
	// EndianTag is the raw tag value read little-endian.
	EndianTag uint32 // byte offset 40-43

	Link      Extent // byte offset 44-51
	MapOffset uint32 // byte offset 52-55
	StringIDs Extent // byte offset 56-63
	TypeIDs   Extent // byte offset 64-71
	ProtoIDs  Extent // byte offset 72-79
	FieldIDs  Extent // byte offset 80-87
	MethodIDs Extent // byte offset 88-95
	ClassDefs Extent // byte offset 96-103
	Data      Extent // byte offset 104-111
}

// NewHeader creates a header for the given revision and byte order.
// Sizes and offsets are filled in by the encoder.
func NewHeader(version format.Version, engine endian.EndianEngine) *Header {
	tag := endian.EndianConstant
	if !endian.IsLittleEndian(engine) {
		tag = endian.ReverseEndianConstant
	}

	return &Header{
		Version:    version,
		HeaderSize: HeaderSize,
		EndianTag:  tag,
	}
}

// GetEndianEngine returns the byte order engine selected by the endian tag.
// It falls back to little-endian for a zero-value header.
func (h *Header) GetEndianEngine() endian.EndianEngine {
	engine, err := endian.EngineForTag(h.EndianTag)
	if err != nil {
		return endian.GetLittleEndianEngine()
	}

	return engine
}

// ParseMagic extracts the revision from the first 8 bytes of an image.
//
// Returns:
//   - format.Version: Parsed revision
//   - error: ErrUnsupportedVersion if the magic is malformed or the revision unknown
func ParseMagic(data []byte) (format.Version, error) {
	if len(data) < MagicSize || string(data[:4]) != MagicPrefix || data[7] != 0 {
		return 0, fmt.Errorf("%w: bad magic %q", errs.ErrUnsupportedVersion, data[:min(len(data), MagicSize)])
	}

	var v format.Version
	for _, c := range data[4:7] {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: bad version digits %q", errs.ErrUnsupportedVersion, data[4:7])
		}
		v = v*10 + format.Version(c-'0')
	}
	if !v.IsSupported() {
		return 0, fmt.Errorf("%w: %s", errs.ErrUnsupportedVersion, v)
	}

	return v, nil
}

// Parse parses the header from a byte slice.
//
// Parameters:
//   - data: Byte slice containing header (must be exactly 112 bytes)
//
// Returns:
//   - error: ErrInvalidHeaderSize, ErrUnsupportedVersion or ErrInvalidEndianTag
func (h *Header) Parse(data []byte) error {
	if len(data) != HeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	version, err := ParseMagic(data)
	if err != nil {
		return err
	}
	h.Version = version

	// the tag is read little-endian to decide the order of every other field
	h.EndianTag = endian.GetLittleEndianEngine().Uint32(data[EndianTagOffset:])
	engine, err := endian.EngineForTag(h.EndianTag)
	if err != nil {
		return err
	}

	h.Checksum = engine.Uint32(data[8:12])
	copy(h.Signature[:], data[12:32])
	h.FileSize = engine.Uint32(data[32:36])
	h.HeaderSize = engine.Uint32(data[36:40])
	if h.HeaderSize != HeaderSize {
		return fmt.Errorf("%w: header_size 0x%x", errs.ErrInvalidHeaderSize, h.HeaderSize)
	}

	h.Link = parseExtent(engine, data[44:52])
	h.MapOffset = engine.Uint32(data[52:56])
	h.StringIDs = parseExtent(engine, data[56:64])
	h.TypeIDs = parseExtent(engine, data[64:72])
	h.ProtoIDs = parseExtent(engine, data[72:80])
	h.FieldIDs = parseExtent(engine, data[80:88])
	h.MethodIDs = parseExtent(engine, data[88:96])
	h.ClassDefs = parseExtent(engine, data[96:104])
	h.Data = parseExtent(engine, data[104:112])

	return nil
}

// Bytes serializes the Header into a byte slice.
func (h *Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	engine := h.GetEndianEngine()

	copy(b[0:4], MagicPrefix)
	copy(b[4:7], h.Version.String())
	engine.PutUint32(b[8:12], h.Checksum)
	copy(b[12:32], h.Signature[:])
	engine.PutUint32(b[32:36], h.FileSize)
	engine.PutUint32(b[36:40], HeaderSize)
	engine.PutUint32(b[40:44], endian.EndianConstant)
	putExtent(engine, b[44:52], h.Link)
	engine.PutUint32(b[52:56], h.MapOffset)
	putExtent(engine, b[56:64], h.StringIDs)
	putExtent(engine, b[64:72], h.TypeIDs)
	putExtent(engine, b[72:80], h.ProtoIDs)
	putExtent(engine, b[80:88], h.FieldIDs)
	putExtent(engine, b[88:96], h.MethodIDs)
	putExtent(engine, b[96:104], h.ClassDefs)
	putExtent(engine, b[104:112], h.Data)

	return b
}

// ParseHeader parses a Header from the start of an image.
//
// Parameters:
//   - data: Byte slice starting with the header (must be at least 112 bytes)
//
// Returns:
//   - Header: Parsed header struct
//   - error: ErrTruncatedInput if data is shorter than the header, or Parse errors
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes, header needs %d", errs.ErrTruncatedInput, len(data), HeaderSize)
	}

	h := Header{}
	if err := h.Parse(data[:HeaderSize]); err != nil {
		return Header{}, err
	}

	return h, nil
}

func parseExtent(engine endian.EndianEngine, b []byte) Extent {
	return Extent{Size: engine.Uint32(b[0:4]), Offset: engine.Uint32(b[4:8])}
}

// putExtent writes a zero offset for empty extents.
func putExtent(engine endian.EndianEngine, b []byte, e Extent) {
	engine.PutUint32(b[0:4], e.Size)
	if e.Size == 0 {
		e.Offset = 0
	}
	engine.PutUint32(b[4:8], e.Offset)
}
