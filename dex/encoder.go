package dex

import (
	"bytes"
	"fmt"

	"github.com/arloliu/dexkit/encoding"
	"github.com/arloliu/dexkit/endian"
	"github.com/arloliu/dexkit/errs"
	"github.com/arloliu/dexkit/format"
	"github.com/arloliu/dexkit/integrity"
	"github.com/arloliu/dexkit/internal/dedup"
	"github.com/arloliu/dexkit/internal/options"
	"github.com/arloliu/dexkit/internal/pool"
	"github.com/arloliu/dexkit/section"
)

// Encode serializes the container into a complete dex image.
//
// When a pool was mutated since decode (or the container was built from
// scratch), the pools are first rebuilt in canonical order and every
// reference is rewritten; see Canonicalize. The output is then laid out in
// one forward pass, and the signature and checksum are written last.
//
// Parameters:
//   - c: Container to encode
//   - opts: Encode options (WithDeduplication, WithCanonicalize, WithInstructionRewriter)
//
// Returns:
//   - []byte: Complete dex image
//   - error: ErrIndexOutOfRange for dangling references, ErrDuplicateEntry
//     for repeated class members, or a rewriter error
func Encode(c *Container, opts ...EncodeOption) ([]byte, error) {
	cfg := NewEncoderConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	if cfg.canonicalize && c.Dirty() {
		remap, err := c.Canonicalize()
		if err != nil {
			return nil, err
		}
		if cfg.rewriter != nil {
			if err := c.rewriteInstructions(cfg.rewriter, remap); err != nil {
				return nil, err
			}
		}
	} else if err := c.Validate(); err != nil {
		return nil, err
	}
	c.normalize()

	e := newEncoder(c, cfg)
	defer e.release()

	if err := e.encode(); err != nil {
		return nil, err
	}

	return bytes.Clone(e.w.Bytes()), nil
}

func (c *Container) rewriteInstructions(fn InstructionRewriter, remap *Remap) error {
	done := make(map[*Code]struct{})
	for _, cd := range c.classes {
		for _, m := range cd.Methods() {
			if m.Code == nil {
				continue
			}
			if _, ok := done[m.Code]; ok {
				continue
			}
			done[m.Code] = struct{}{}
			if err := fn(m.Code, remap); err != nil {
				return fmt.Errorf("rewrite method %d: %w", m.Method, err)
			}
		}
	}

	return nil
}

// normalize restores the ascending orders the wire form requires without
// touching any pool.
func (c *Container) normalize() {
	for _, cd := range c.classes {
		c.sortClass(cd)
	}
	for _, cs := range c.callSites {
		for i := range cs.Values {
			cs.Values[i] = sortValue(cs.Values[i])
		}
	}
}

// encoder is the state of one layout pass. It is scoped to a single Encode
// call, so independent containers can be encoded concurrently.
type encoder struct {
	c      *Container
	cfg    *EncoderConfig
	w      *encoding.Writer
	engine endian.EndianEngine
	hdr    *section.Header
	maps   section.MapList

	stringIDs, typeIDs, protoIDs, fieldIDs, methodIDs, classDefs int
	callSiteIDs, methodHandles                                   int

	trackers map[format.SectionType]*dedup.Tracker
	counts   map[format.SectionType]uint32
	starts   map[format.SectionType]uint32

	debugOffs     map[*DebugInfo]uint32
	codeOffs      map[*Code]uint32
	arrayOffs     map[*EncodedArray]uint32
	itemOffs      map[*AnnotationSet][]uint32
	setOffs       map[*AnnotationSet]uint32
	refListOffs   map[*ParameterAnnotation]uint32
	dirOffs       map[*AnnotationsDirectory]uint32
	typeListOffs  []uint32
	classDataOffs []uint32
	stringOffs    []uint32

	// scratch renders one data item before it is deduplicated and copied
	scratch *pool.ByteBuffer
}

func newEncoder(c *Container, cfg *EncoderConfig) *encoder {
	return &encoder{
		c:           c,
		cfg:         cfg,
		w:           encoding.NewWriter(c.engine),
		engine:      c.engine,
		hdr:         section.NewHeader(c.version, c.engine),
		trackers:    make(map[format.SectionType]*dedup.Tracker),
		counts:      make(map[format.SectionType]uint32),
		starts:      make(map[format.SectionType]uint32),
		debugOffs:   make(map[*DebugInfo]uint32),
		codeOffs:    make(map[*Code]uint32),
		arrayOffs:   make(map[*EncodedArray]uint32),
		itemOffs:    make(map[*AnnotationSet][]uint32),
		setOffs:     make(map[*AnnotationSet]uint32),
		refListOffs: make(map[*ParameterAnnotation]uint32),
		dirOffs:     make(map[*AnnotationsDirectory]uint32),
		scratch:     pool.GetScratchBuffer(),
	}
}

func (e *encoder) release() {
	e.w.Release()
	pool.PutScratchBuffer(e.scratch)
	e.scratch = nil
}

func (e *encoder) encode() error {
	if len(e.c.callSites) > 0 || e.c.methodHandles.Len() > 0 {
		if e.c.version < format.Version038 {
			return fmt.Errorf("%w: call sites and method handles need version 038, have %s",
				errs.ErrUnsupportedVersion, e.c.version)
		}
	}
	e.reserveIDTables()

	e.w.Align(section.DataAlignment)
	dataStart := e.w.Pos()

	steps := []func() error{
		e.writeDebugInfos,
		e.writeCodeItems,
		e.writeEncodedArrays,
		e.writeAnnotationItems,
		e.writeAnnotationSets,
		e.writeRefLists,
		e.writeDirectories,
		e.writeTypeLists,
		e.writeClassData,
		e.writeStringData,
		e.writeHiddenAPI,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	e.writeLink()
	e.writeMapList()

	e.hdr.Data = section.Extent{
		Size:   uint32(e.w.Pos() - dataStart), //nolint: gosec
		Offset: uint32(dataStart),             //nolint: gosec
	}
	e.fillIDTables()

	e.hdr.FileSize = uint32(e.w.Pos()) //nolint: gosec
	e.w.WriteAt(0, e.hdr.Bytes())

	return integrity.Finalize(e.w.Bytes(), e.engine)
}

// reserveIDTables writes the header and zeroed id tables; their contents are
// filled in once every data offset is known.
func (e *encoder) reserveIDTables() {
	e.w.Zeros(section.HeaderSize)
	e.maps.Add(format.SectionHeader, 1, 0)

	reserve := func(t format.SectionType, n int, size int) int {
		off := e.w.Pos()
		e.maps.Add(t, uint32(n), uint32(off)) //nolint: gosec
		e.w.Zeros(n * size)

		return off
	}

	c := e.c
	e.stringIDs = reserve(format.SectionStringID, c.strings.Len(), section.StringIDSize)
	e.typeIDs = reserve(format.SectionTypeID, c.types.Len(), section.TypeIDSize)
	e.protoIDs = reserve(format.SectionProtoID, c.protos.Len(), section.ProtoIDSize)
	e.fieldIDs = reserve(format.SectionFieldID, c.fields.Len(), section.FieldIDSize)
	e.methodIDs = reserve(format.SectionMethodID, c.methods.Len(), section.MethodIDSize)
	e.classDefs = reserve(format.SectionClassDef, len(c.classes), section.ClassDefSize)
	e.callSiteIDs = reserve(format.SectionCallSiteID, len(c.callSites), section.CallSiteIDSize)
	e.methodHandles = reserve(format.SectionMethodHandle, c.methodHandles.Len(), section.MethodHandleSize)

	e.hdr.StringIDs = extent(c.strings.Len(), e.stringIDs)
	e.hdr.TypeIDs = extent(c.types.Len(), e.typeIDs)
	e.hdr.ProtoIDs = extent(c.protos.Len(), e.protoIDs)
	e.hdr.FieldIDs = extent(c.fields.Len(), e.fieldIDs)
	e.hdr.MethodIDs = extent(c.methods.Len(), e.methodIDs)
	e.hdr.ClassDefs = extent(len(c.classes), e.classDefs)
}

func extent(n, off int) section.Extent {
	return section.Extent{Size: uint32(n), Offset: uint32(off)} //nolint: gosec
}

// emit writes one data item of section t, or returns the offset of an
// identical earlier item when dedup is set and enabled.
func (e *encoder) emit(t format.SectionType, data []byte, dedupable bool) uint32 {
	var tracker *dedup.Tracker
	if dedupable && e.cfg.dedup {
		tracker = e.trackers[t]
		if tracker == nil {
			tracker = dedup.NewTracker()
			e.trackers[t] = tracker
		}
		if off, ok := tracker.Lookup(data); ok {
			return off
		}
	}

	e.w.Align(t.Alignment())
	off := uint32(e.w.Pos()) //nolint: gosec
	if e.counts[t] == 0 {
		e.starts[t] = off
	}
	e.counts[t]++
	e.w.Write(data)
	if tracker != nil {
		tracker.Track(data, off)
	}

	return off
}

// closeSection records a map entry for every item emitted under t.
func (e *encoder) closeSection(t format.SectionType) {
	e.maps.Add(t, e.counts[t], e.starts[t])
}

func (e *encoder) writeLink() {
	if len(e.c.link) == 0 {
		return
	}
	e.hdr.Link = extent(len(e.c.link), e.w.Pos())
	e.w.Write(e.c.link)
}

func (e *encoder) writeMapList() {
	e.w.Align(section.DataAlignment)
	off := e.w.Pos()
	e.hdr.MapOffset = uint32(off)                     //nolint: gosec
	e.maps.Add(format.SectionMapList, 1, uint32(off)) //nolint: gosec
	e.maps.Sort()
	e.w.Write(e.maps.Bytes(e.engine))
}

func (e *encoder) fillIDTables() {
	c := e.c
	buf := e.scratch.B[:0]

	for i := range c.strings.items {
		buf = e.engine.AppendUint32(buf, e.stringOffs[i])
	}
	e.w.WriteAt(e.stringIDs, buf)

	buf = buf[:0]
	for _, t := range c.types.items {
		buf = e.engine.AppendUint32(buf, t.Descriptor)
	}
	e.w.WriteAt(e.typeIDs, buf)

	buf = buf[:0]
	for _, p := range c.protos.items {
		item := section.ProtoIDItem{ShortyIdx: p.Shorty, ReturnTypeIdx: p.Return}
		if p.Parameters != NoIndex {
			item.ParametersOff = e.typeListOffs[p.Parameters]
		}
		buf = item.Append(buf, e.engine)
	}
	e.w.WriteAt(e.protoIDs, buf)

	buf = buf[:0]
	for _, f := range c.fields.items {
		item := section.MemberIDItem{ClassIdx: uint16(f.Class), TypeOrProtoIdx: uint16(f.Type), NameIdx: f.Name} //nolint: gosec
		buf = item.Append(buf, e.engine)
	}
	e.w.WriteAt(e.fieldIDs, buf)

	buf = buf[:0]
	for _, m := range c.methods.items {
		item := section.MemberIDItem{ClassIdx: uint16(m.Class), TypeOrProtoIdx: uint16(m.Proto), NameIdx: m.Name} //nolint: gosec
		buf = item.Append(buf, e.engine)
	}
	e.w.WriteAt(e.methodIDs, buf)

	buf = buf[:0]
	for i, cd := range c.classes {
		item := section.ClassDefItem{
			ClassIdx:      cd.Class,
			AccessFlags:   uint32(cd.AccessFlags),
			SuperclassIdx: cd.Superclass,
			SourceFileIdx: cd.SourceFile,
			ClassDataOff:  e.classDataOffs[i],
		}
		if cd.Interfaces != NoIndex {
			item.InterfacesOff = e.typeListOffs[cd.Interfaces]
		}
		if cd.Annotations != nil {
			item.AnnotationsOff = e.dirOffs[cd.Annotations]
		}
		if cd.StaticValues != nil {
			item.StaticValuesOff = e.arrayOffs[cd.StaticValues]
		}
		buf = item.Append(buf, e.engine)
	}
	e.w.WriteAt(e.classDefs, buf)

	buf = buf[:0]
	for _, cs := range c.callSites {
		buf = e.engine.AppendUint32(buf, e.arrayOffs[cs])
	}
	e.w.WriteAt(e.callSiteIDs, buf)

	buf = buf[:0]
	for _, h := range c.methodHandles.items {
		item := section.MethodHandleItem{Type: uint16(h.Kind), MemberIdx: uint16(h.Member)} //nolint: gosec
		buf = item.Append(buf, e.engine)
	}
	e.w.WriteAt(e.methodHandles, buf)
	e.scratch.B = buf
}
