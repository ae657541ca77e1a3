package section

import (
	"fmt"
	"slices"

	"github.com/arloliu/dexkit/endian"
	"github.com/arloliu/dexkit/errs"
	"github.com/arloliu/dexkit/format"
)

// MapItem is one map_list directory entry.
//
// On disk: type u16, unused u16, size u32, offset u32.
type MapItem struct {
	Type   format.SectionType
	Size   uint32
	Offset uint32
}

// MapList is the section directory of a dex image, ordered by offset.
type MapList struct {
	Items []MapItem
}

// Add appends an entry. Empty sections are skipped.
func (m *MapList) Add(t format.SectionType, size uint32, offset uint32) {
	if size == 0 {
		return
	}
	m.Items = append(m.Items, MapItem{Type: t, Size: size, Offset: offset})
}

// Sort orders the entries by ascending offset.
func (m *MapList) Sort() {
	slices.SortStableFunc(m.Items, func(a, b MapItem) int {
		switch {
		case a.Offset < b.Offset:
			return -1
		case a.Offset > b.Offset:
			return 1
		default:
			return 0
		}
	})
}

// Find returns the entry for a section type.
func (m *MapList) Find(t format.SectionType) (MapItem, bool) {
	for _, it := range m.Items {
		if it.Type == t {
			return it, true
		}
	}

	return MapItem{}, false
}

// ByteSize returns the encoded size of the map list.
func (m *MapList) ByteSize() int {
	return 4 + len(m.Items)*MapItemSize
}

// Bytes serializes the map list using the specified endian engine.
func (m *MapList) Bytes(engine endian.EndianEngine) []byte {
	b := make([]byte, 0, m.ByteSize())
	b = engine.AppendUint32(b, uint32(len(m.Items))) //nolint: gosec
	for _, it := range m.Items {
		b = engine.AppendUint16(b, uint16(it.Type))
		b = engine.AppendUint16(b, 0)
		b = engine.AppendUint32(b, it.Size)
		b = engine.AppendUint32(b, it.Offset)
	}

	return b
}

// ParseMapList parses the map list located at offset within an image.
//
// Parameters:
//   - data: Whole image
//   - offset: map_off from the header
//   - engine: Endian engine for byte order
//
// Returns:
//   - MapList: Parsed directory
//   - error: ErrAlignment, ErrTruncatedInput, or ErrMalformedSection for
//     duplicate types or entries out of offset order
func ParseMapList(data []byte, offset uint32, engine endian.EndianEngine) (MapList, error) {
	if offset%DataAlignment != 0 {
		return MapList{}, fmt.Errorf("%w: map_off 0x%x", errs.ErrAlignment, offset)
	}
	if uint64(offset)+4 > uint64(len(data)) {
		return MapList{}, fmt.Errorf("%w: map list at 0x%x", errs.ErrTruncatedInput, offset)
	}

	count := engine.Uint32(data[offset:])
	end := uint64(offset) + 4 + uint64(count)*MapItemSize
	if end > uint64(len(data)) {
		return MapList{}, fmt.Errorf("%w: map list with %d entries at 0x%x", errs.ErrTruncatedInput, count, offset)
	}

	m := MapList{Items: make([]MapItem, 0, count)}
	seen := make(map[format.SectionType]bool, count)
	pos := offset + 4
	for i := range count {
		it := MapItem{
			Type:   format.SectionType(engine.Uint16(data[pos:])),
			Size:   engine.Uint32(data[pos+4:]),
			Offset: engine.Uint32(data[pos+8:]),
		}
		pos += MapItemSize

		if seen[it.Type] {
			return MapList{}, fmt.Errorf("%w: duplicate map entry %s", errs.ErrMalformedSection, it.Type)
		}
		seen[it.Type] = true
		if i > 0 && it.Offset < m.Items[i-1].Offset {
			return MapList{}, fmt.Errorf("%w: map entry %s out of order", errs.ErrMalformedSection, it.Type)
		}
		m.Items = append(m.Items, it)
	}

	return m, nil
}
