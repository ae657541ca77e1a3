package dex

import (
	"fmt"

	"github.com/arloliu/dexkit/encoding"
	"github.com/arloliu/dexkit/endian"
	"github.com/arloliu/dexkit/errs"
	"github.com/arloliu/dexkit/format"
	"github.com/arloliu/dexkit/integrity"
	"github.com/arloliu/dexkit/internal/options"
	"github.com/arloliu/dexkit/section"
)

// DecoderConfig holds decode settings.
type DecoderConfig struct {
	verifyIntegrity bool
}

// DecodeOption represents a functional option for Decode.
type DecodeOption = options.Option[*DecoderConfig]

// WithVerifyIntegrity recomputes the checksum and signature after decoding.
// A mismatch is reported as an error wrapping ErrIntegrityMismatch that
// accompanies the decoded container.
func WithVerifyIntegrity() DecodeOption {
	return options.NoError(func(cfg *DecoderConfig) {
		cfg.verifyIntegrity = true
	})
}

// decodeState carries the raw items of one decode pass. Data items are keyed
// by their file offset until the link phase resolves them into the model.
type decodeState struct {
	c      *Container
	data   []byte
	hdr    section.Header
	engine endian.EndianEngine

	stringOffs   []uint32
	protoItems   []section.ProtoIDItem
	classItems   []section.ClassDefItem
	callSiteOffs []uint32
	hiddenAPI    *section.MapItem

	stringData  map[uint32]string
	typeLists   map[uint32]uint32 // offset -> TypeLists index
	codes       map[uint32]*rawCode
	debugInfos  map[uint32]*DebugInfo
	arrays      map[uint32]*EncodedArray
	annotations map[uint32]*Annotation
	sets        map[uint32][]uint32
	refLists    map[uint32][]uint32
	directories map[uint32]*rawDirectory
	classData   map[uint32]*rawClassData
}

type rawCode struct {
	code     *Code
	debugOff uint32
}

type rawMember struct {
	idx   uint32
	flags format.AccessFlags
	code  uint32
}

type rawClassData struct {
	staticFields, instanceFields  []rawMember
	directMethods, virtualMethods []rawMember
}

type rawDirectory struct {
	classOff   uint32
	fields     [][2]uint32
	methods    [][2]uint32
	parameters [][2]uint32
}

type sectionReader func(s *decodeState, item section.MapItem) error

// sectionReaders dispatches each map list entry to its reader.
var sectionReaders map[format.SectionType]sectionReader

func init() {
	sectionReaders = map[format.SectionType]sectionReader{
		format.SectionHeader:               (*decodeState).readHeaderItem,
		format.SectionStringID:             (*decodeState).readStringIDs,
		format.SectionTypeID:               (*decodeState).readTypeIDs,
		format.SectionProtoID:              (*decodeState).readProtoIDs,
		format.SectionFieldID:              (*decodeState).readFieldIDs,
		format.SectionMethodID:             (*decodeState).readMethodIDs,
		format.SectionClassDef:             (*decodeState).readClassDefs,
		format.SectionCallSiteID:           (*decodeState).readCallSiteIDs,
		format.SectionMethodHandle:         (*decodeState).readMethodHandles,
		format.SectionMapList:              (*decodeState).readMapListItem,
		format.SectionTypeList:             (*decodeState).readTypeLists,
		format.SectionAnnotationSetRefList: (*decodeState).readRefLists,
		format.SectionAnnotationSet:        (*decodeState).readAnnotationSets,
		format.SectionClassData:            (*decodeState).readClassData,
		format.SectionCode:                 (*decodeState).readCodeItems,
		format.SectionStringData:           (*decodeState).readStringData,
		format.SectionDebugInfo:            (*decodeState).readDebugInfos,
		format.SectionAnnotation:           (*decodeState).readAnnotations,
		format.SectionEncodedArray:         (*decodeState).readEncodedArrays,
		format.SectionAnnotationsDirectory: (*decodeState).readDirectories,
		format.SectionHiddenAPIClassData:   (*decodeState).readHiddenAPIItem,
	}
}

// Decode parses a complete dex image into a Container.
//
// Decoding is a single pass driven by the map list: every entry is handed to
// its section reader in file order, then offsets are linked into the model.
// The container owns copies of everything; data is not retained.
//
// Parameters:
//   - data: Complete dex image
//   - opts: Decode options (WithVerifyIntegrity)
//
// Returns:
//   - *Container: Decoded model
//   - error: ErrTruncatedInput, ErrUnsupportedVersion, ErrInvalidEndianTag,
//     ErrMalformedSection, ErrInvalidOffset or a primitive codec error. With
//     WithVerifyIntegrity, an ErrIntegrityMismatch error is returned together
//     with a non-nil container.
func Decode(data []byte, opts ...DecodeOption) (*Container, error) {
	cfg := &DecoderConfig{}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	if len(data) < section.HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, header needs %d", errs.ErrTruncatedInput, len(data), section.HeaderSize)
	}
	hdr, err := section.ParseHeader(data)
	if err != nil {
		return nil, err
	}
	if uint64(hdr.FileSize) > uint64(len(data)) {
		return nil, fmt.Errorf("%w: file_size 0x%x, have 0x%x bytes", errs.ErrTruncatedInput, hdr.FileSize, len(data))
	}
	if hdr.FileSize < section.HeaderSize {
		return nil, fmt.Errorf("%w: file_size 0x%x smaller than header", errs.ErrMalformedSection, hdr.FileSize)
	}
	data = data[:hdr.FileSize]

	s := newDecodeState(data, hdr)
	if err := s.run(); err != nil {
		return nil, err
	}

	if cfg.verifyIntegrity {
		if _, err := integrity.Verify(data, s.engine); err != nil {
			return s.c, err
		}
	}

	return s.c, nil
}

func newDecodeState(data []byte, hdr section.Header) *decodeState {
	c := newContainer()
	c.version = hdr.Version
	c.engine = hdr.GetEndianEngine()

	return &decodeState{
		c:           c,
		data:        data,
		hdr:         hdr,
		engine:      c.engine,
		stringData:  make(map[uint32]string),
		typeLists:   make(map[uint32]uint32),
		codes:       make(map[uint32]*rawCode),
		debugInfos:  make(map[uint32]*DebugInfo),
		arrays:      make(map[uint32]*EncodedArray),
		annotations: make(map[uint32]*Annotation),
		sets:        make(map[uint32][]uint32),
		refLists:    make(map[uint32][]uint32),
		directories: make(map[uint32]*rawDirectory),
		classData:   make(map[uint32]*rawClassData),
	}
}

func (s *decodeState) run() error {
	if err := s.checkExtents(); err != nil {
		return err
	}

	maps, err := section.ParseMapList(s.data, s.hdr.MapOffset, s.engine)
	if err != nil {
		return err
	}
	for _, item := range maps.Items {
		read, ok := sectionReaders[item.Type]
		if !ok {
			return fmt.Errorf("%w: unknown map item type 0x%04x", errs.ErrMalformedSection, uint16(item.Type))
		}
		if err := read(s, item); err != nil {
			return fmt.Errorf("%s section: %w", item.Type, err)
		}
	}

	if err := s.link(); err != nil {
		return err
	}
	s.c.link = append([]byte(nil), s.data[s.hdr.Link.Offset:s.hdr.Link.End(1)]...)
	if len(s.c.link) == 0 {
		s.c.link = nil
	}

	return s.c.Validate()
}

// checkExtents verifies every extent declared in the header lies inside the image.
func (s *decodeState) checkExtents() error {
	extents := []struct {
		name string
		ext  section.Extent
		elem uint32
	}{
		{"link", s.hdr.Link, 1},
		{"string_ids", s.hdr.StringIDs, section.StringIDSize},
		{"type_ids", s.hdr.TypeIDs, section.TypeIDSize},
		{"proto_ids", s.hdr.ProtoIDs, section.ProtoIDSize},
		{"field_ids", s.hdr.FieldIDs, section.FieldIDSize},
		{"method_ids", s.hdr.MethodIDs, section.MethodIDSize},
		{"class_defs", s.hdr.ClassDefs, section.ClassDefSize},
		{"data", s.hdr.Data, 1},
	}
	for _, e := range extents {
		if e.ext.Size == 0 {
			continue
		}
		if e.ext.End(e.elem) > uint64(len(s.data)) {
			return fmt.Errorf("%w: %s [0x%x, 0x%x) past end 0x%x",
				errs.ErrTruncatedInput, e.name, e.ext.Offset, e.ext.End(e.elem), len(s.data))
		}
	}
	if s.hdr.Link.Size == 0 {
		s.hdr.Link.Offset = 0
	}

	return nil
}

// idTable returns the bytes of a fixed-size id table after checking the map
// entry agrees with the header extent.
func (s *decodeState) idTable(item section.MapItem, ext section.Extent, elem uint32) ([]byte, error) {
	if item.Size != ext.Size || item.Offset != ext.Offset {
		return nil, fmt.Errorf("%w: map entry (%d @ 0x%x) disagrees with header (%d @ 0x%x)",
			errs.ErrMalformedSection, item.Size, item.Offset, ext.Size, ext.Offset)
	}

	return s.table(item, elem)
}

func (s *decodeState) table(item section.MapItem, elem uint32) ([]byte, error) {
	if item.Offset%section.DataAlignment != 0 {
		return nil, fmt.Errorf("%w: table at 0x%x", errs.ErrAlignment, item.Offset)
	}
	end := uint64(item.Offset) + uint64(item.Size)*uint64(elem)
	if end > uint64(len(s.data)) {
		return nil, fmt.Errorf("%w: table [0x%x, 0x%x) past end 0x%x", errs.ErrTruncatedInput, item.Offset, end, len(s.data))
	}

	return s.data[item.Offset:end], nil
}

func (s *decodeState) readHeaderItem(item section.MapItem) error {
	if item.Offset != 0 || item.Size != 1 {
		return fmt.Errorf("%w: header entry (%d @ 0x%x)", errs.ErrMalformedSection, item.Size, item.Offset)
	}

	return nil
}

func (s *decodeState) readMapListItem(item section.MapItem) error {
	if item.Offset != s.hdr.MapOffset || item.Size != 1 {
		return fmt.Errorf("%w: map list entry (%d @ 0x%x), map_off 0x%x",
			errs.ErrMalformedSection, item.Size, item.Offset, s.hdr.MapOffset)
	}

	return nil
}

func (s *decodeState) readStringIDs(item section.MapItem) error {
	b, err := s.idTable(item, s.hdr.StringIDs, section.StringIDSize)
	if err != nil {
		return err
	}
	s.stringOffs = make([]uint32, item.Size)
	for i := range s.stringOffs {
		s.stringOffs[i] = s.engine.Uint32(b[i*section.StringIDSize:])
	}

	return nil
}

func (s *decodeState) readTypeIDs(item section.MapItem) error {
	b, err := s.idTable(item, s.hdr.TypeIDs, section.TypeIDSize)
	if err != nil {
		return err
	}
	for i := range int(item.Size) {
		if _, err := s.c.types.add(TypeID{Descriptor: s.engine.Uint32(b[i*section.TypeIDSize:])}); err != nil {
			return err
		}
	}

	return nil
}

func (s *decodeState) readProtoIDs(item section.MapItem) error {
	b, err := s.idTable(item, s.hdr.ProtoIDs, section.ProtoIDSize)
	if err != nil {
		return err
	}
	s.protoItems = make([]section.ProtoIDItem, item.Size)
	for i := range s.protoItems {
		s.protoItems[i].Parse(b[i*section.ProtoIDSize:], s.engine)
	}

	return nil
}

func (s *decodeState) readFieldIDs(item section.MapItem) error {
	b, err := s.idTable(item, s.hdr.FieldIDs, section.FieldIDSize)
	if err != nil {
		return err
	}
	for i := range int(item.Size) {
		var m section.MemberIDItem
		m.Parse(b[i*section.FieldIDSize:], s.engine)
		f := FieldID{Class: uint32(m.ClassIdx), Type: uint32(m.TypeOrProtoIdx), Name: m.NameIdx}
		if _, err := s.c.fields.add(f); err != nil {
			return err
		}
	}

	return nil
}

func (s *decodeState) readMethodIDs(item section.MapItem) error {
	b, err := s.idTable(item, s.hdr.MethodIDs, section.MethodIDSize)
	if err != nil {
		return err
	}
	for i := range int(item.Size) {
		var m section.MemberIDItem
		m.Parse(b[i*section.MethodIDSize:], s.engine)
		mid := MethodID{Class: uint32(m.ClassIdx), Proto: uint32(m.TypeOrProtoIdx), Name: m.NameIdx}
		if _, err := s.c.methods.add(mid); err != nil {
			return err
		}
	}

	return nil
}

func (s *decodeState) readClassDefs(item section.MapItem) error {
	b, err := s.idTable(item, s.hdr.ClassDefs, section.ClassDefSize)
	if err != nil {
		return err
	}
	s.classItems = make([]section.ClassDefItem, item.Size)
	for i := range s.classItems {
		s.classItems[i].Parse(b[i*section.ClassDefSize:], s.engine)
	}

	return nil
}

func (s *decodeState) readCallSiteIDs(item section.MapItem) error {
	b, err := s.table(item, section.CallSiteIDSize)
	if err != nil {
		return err
	}
	s.callSiteOffs = make([]uint32, item.Size)
	for i := range s.callSiteOffs {
		s.callSiteOffs[i] = s.engine.Uint32(b[i*section.CallSiteIDSize:])
	}

	return nil
}

func (s *decodeState) readMethodHandles(item section.MapItem) error {
	b, err := s.table(item, section.MethodHandleSize)
	if err != nil {
		return err
	}
	for i := range int(item.Size) {
		var m section.MethodHandleItem
		m.Parse(b[i*section.MethodHandleSize:], s.engine)
		h := MethodHandle{Kind: format.MethodHandleType(m.Type), Member: uint32(m.MemberIdx)}
		if _, err := s.c.methodHandles.add(h); err != nil {
			return err
		}
	}

	return nil
}

// walk visits the items of a data section in order, aligning the cursor
// before each item when the section type requires it.
func (s *decodeState) walk(item section.MapItem, fn func(r *encoding.Reader, off uint32) error) error {
	r := encoding.NewReader(s.data, s.engine)
	if err := r.Seek(item.Offset); err != nil {
		return err
	}
	align := item.Type.Alignment()
	if err := r.ExpectAligned(align); err != nil {
		return err
	}

	for i := range item.Size {
		if err := r.SkipPadding(align); err != nil {
			return err
		}
		off := uint32(r.Pos()) //nolint: gosec
		if err := fn(r, off); err != nil {
			return fmt.Errorf("item %d at 0x%x: %w", i, off, err)
		}
	}

	return nil
}

func (s *decodeState) readTypeLists(item section.MapItem) error {
	return s.walk(item, func(r *encoding.Reader, off uint32) error {
		n, err := r.U32()
		if err != nil {
			return err
		}
		units, err := r.U16Slice(n)
		if err != nil {
			return err
		}
		types := make([]uint32, n)
		for i, u := range units {
			types[i] = uint32(u)
		}

		// identical lists may appear twice in hand-built files; share the pool entry
		list := NewTypeList(types...)
		idx, ok := s.c.typeLists.Lookup(list)
		if !ok {
			idx, _ = s.c.typeLists.add(list)
		}
		s.typeLists[off] = idx

		return nil
	})
}

func (s *decodeState) readStringData(item section.MapItem) error {
	return s.walk(item, func(r *encoding.Reader, off uint32) error {
		str, err := r.StringData()
		if err != nil {
			return err
		}
		s.stringData[off] = str

		return nil
	})
}

func (s *decodeState) readDebugInfos(item section.MapItem) error {
	return s.walk(item, func(r *encoding.Reader, off uint32) error {
		d, err := readDebugInfo(r)
		if err != nil {
			return err
		}
		s.debugInfos[off] = d

		return nil
	})
}

func (s *decodeState) readEncodedArrays(item section.MapItem) error {
	return s.walk(item, func(r *encoding.Reader, off uint32) error {
		vals, err := readArrayBody(r, 0)
		if err != nil {
			return err
		}
		s.arrays[off] = &EncodedArray{Values: vals}

		return nil
	})
}

func (s *decodeState) readAnnotations(item section.MapItem) error {
	return s.walk(item, func(r *encoding.Reader, off uint32) error {
		vis, err := r.U8()
		if err != nil {
			return err
		}
		a, err := readEncodedAnnotation(r, 0)
		if err != nil {
			return err
		}
		s.annotations[off] = &Annotation{Visibility: format.Visibility(vis), Value: a}

		return nil
	})
}

// readOffsetList reads a u32 count followed by that many u32 entries.
func readOffsetList(r *encoding.Reader) ([]uint32, error) {
	n, err := r.U32()
	if err != nil {
		return nil, err
	}
	if uint64(n)*4 > uint64(r.Len()-r.Pos()) {
		return nil, fmt.Errorf("%w: list of %d offsets at 0x%x", errs.ErrTruncatedInput, n, r.Pos())
	}
	out := make([]uint32, n)
	for i := range out {
		if out[i], err = r.U32(); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (s *decodeState) readAnnotationSets(item section.MapItem) error {
	return s.walk(item, func(r *encoding.Reader, off uint32) error {
		offs, err := readOffsetList(r)
		s.sets[off] = offs

		return err
	})
}

func (s *decodeState) readRefLists(item section.MapItem) error {
	return s.walk(item, func(r *encoding.Reader, off uint32) error {
		offs, err := readOffsetList(r)
		s.refLists[off] = offs

		return err
	})
}

func (s *decodeState) readDirectories(item section.MapItem) error {
	return s.walk(item, func(r *encoding.Reader, off uint32) error {
		d := &rawDirectory{}
		var counts [3]uint32
		if err := readU32s(r, &d.classOff, &counts[0], &counts[1], &counts[2]); err != nil {
			return err
		}
		if (uint64(counts[0])+uint64(counts[1])+uint64(counts[2]))*8 > uint64(r.Len()-r.Pos()) {
			return fmt.Errorf("%w: annotations directory entries", errs.ErrTruncatedInput)
		}
		lists := []*[][2]uint32{&d.fields, &d.methods, &d.parameters}
		for i, list := range lists {
			*list = make([][2]uint32, counts[i])
			for j := range *list {
				if err := readU32s(r, &(*list)[j][0], &(*list)[j][1]); err != nil {
					return err
				}
			}
		}
		s.directories[off] = d

		return nil
	})
}

func readU32s(r *encoding.Reader, dst ...*uint32) error {
	for _, d := range dst {
		v, err := r.U32()
		if err != nil {
			return err
		}
		*d = v
	}

	return nil
}

func (s *decodeState) readClassData(item section.MapItem) error {
	return s.walk(item, func(r *encoding.Reader, off uint32) error {
		var counts [4]uint32
		if err := readUlebs(r, &counts[0], &counts[1], &counts[2], &counts[3]); err != nil {
			return err
		}
		// each encoded member takes at least two bytes
		if (uint64(counts[0])+uint64(counts[1])+uint64(counts[2])+uint64(counts[3]))*2 > uint64(r.Len()-r.Pos()) {
			return fmt.Errorf("%w: class data member counts", errs.ErrTruncatedInput)
		}

		cd := &rawClassData{}
		lists := []*[]rawMember{&cd.staticFields, &cd.instanceFields, &cd.directMethods, &cd.virtualMethods}
		for i, list := range lists {
			isMethod := i >= 2
			members := make([]rawMember, counts[i])
			var prev uint32
			for j := range members {
				var diff, flags uint32
				if err := readUlebs(r, &diff, &flags); err != nil {
					return err
				}
				if j > 0 && diff == 0 {
					return fmt.Errorf("%w: repeated member index %d", errs.ErrMalformedSection, prev)
				}
				prev += diff
				members[j] = rawMember{idx: prev, flags: format.AccessFlags(flags)}
				if isMethod {
					if err := readUlebs(r, &members[j].code); err != nil {
						return err
					}
				}
			}
			*list = members
		}
		s.classData[off] = cd

		return nil
	})
}

func (s *decodeState) readCodeItems(item section.MapItem) error {
	return s.walk(item, func(r *encoding.Reader, off uint32) error {
		code, debugOff, err := readCodeItem(r)
		if err != nil {
			return err
		}
		s.codes[off] = &rawCode{code: code, debugOff: debugOff}

		return nil
	})
}

func readCodeItem(r *encoding.Reader) (*Code, uint32, error) {
	code := &Code{}
	var triesSize uint16
	var debugOff, insnsSize uint32
	for _, p := range []*uint16{&code.Registers, &code.Ins, &code.Outs, &triesSize} {
		v, err := r.U16()
		if err != nil {
			return nil, 0, err
		}
		*p = v
	}
	if err := readU32s(r, &debugOff, &insnsSize); err != nil {
		return nil, 0, err
	}

	var err error
	if code.Insns, err = r.U16Slice(insnsSize); err != nil {
		return nil, 0, err
	}
	if triesSize == 0 {
		return code, debugOff, nil
	}
	if insnsSize%2 == 1 {
		if _, err := r.U16(); err != nil {
			return nil, 0, err
		}
	}

	type rawTry struct {
		start      uint32
		count      uint16
		handlerOff uint16
	}
	tries := make([]rawTry, triesSize)
	for i := range tries {
		if tries[i].start, err = r.U32(); err != nil {
			return nil, 0, err
		}
		if tries[i].count, err = r.U16(); err != nil {
			return nil, 0, err
		}
		if tries[i].handlerOff, err = r.U16(); err != nil {
			return nil, 0, err
		}
	}

	listStart := r.Pos()
	handlers, err := readCatchHandlers(r)
	if err != nil {
		return nil, 0, err
	}

	code.Tries = make([]TryBlock, triesSize)
	for i, t := range tries {
		h, ok := handlers[uint32(listStart)+uint32(t.handlerOff)] //nolint: gosec
		if !ok {
			return nil, 0, fmt.Errorf("%w: try %d handler offset 0x%x", errs.ErrInvalidOffset, i, t.handlerOff)
		}
		code.Tries[i] = TryBlock{StartAddr: t.start, InsnCount: t.count, Handler: h.clone()}
	}

	return code, debugOff, nil
}

func (h CatchHandler) clone() CatchHandler {
	h.Handlers = append([]TypeAddrPair(nil), h.Handlers...)
	return h
}

// readCatchHandlers reads an encoded_catch_handler_list, keyed by absolute offset.
func readCatchHandlers(r *encoding.Reader) (map[uint32]CatchHandler, error) {
	n, err := r.Uleb128()
	if err != nil {
		return nil, err
	}
	if int64(n) > int64(r.Len()-r.Pos()) {
		return nil, fmt.Errorf("%w: %d catch handlers", errs.ErrTruncatedInput, n)
	}

	out := make(map[uint32]CatchHandler, n)
	for range n {
		off := uint32(r.Pos()) //nolint: gosec
		size, err := r.Sleb128()
		if err != nil {
			return nil, err
		}
		h := CatchHandler{HasCatchAll: size <= 0}
		count := int64(size)
		if count < 0 {
			count = -count
		}
		if count*2 > int64(r.Len()-r.Pos()) {
			return nil, fmt.Errorf("%w: catch handler with %d clauses", errs.ErrTruncatedInput, count)
		}
		if count > 0 {
			h.Handlers = make([]TypeAddrPair, count)
		}
		for i := range h.Handlers {
			if err := readUlebs(r, &h.Handlers[i].Type, &h.Handlers[i].Addr); err != nil {
				return nil, err
			}
		}
		if h.HasCatchAll {
			if h.CatchAllAddr, err = r.Uleb128(); err != nil {
				return nil, err
			}
		}
		out[off] = h
	}

	return out, nil
}

func (s *decodeState) readHiddenAPIItem(item section.MapItem) error {
	if item.Size != 1 {
		return fmt.Errorf("%w: hidden api entry size %d", errs.ErrMalformedSection, item.Size)
	}
	it := item
	s.hiddenAPI = &it

	return nil
}
