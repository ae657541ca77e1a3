package dex

import (
	"fmt"

	"github.com/arloliu/dexkit/encoding"
	"github.com/arloliu/dexkit/errs"
	"github.com/arloliu/dexkit/format"
)

// codes yields every code body in class-def order.
func (c *Container) codes(fn func(*Code)) {
	for _, cd := range c.classes {
		for _, m := range cd.Methods() {
			if m.Code != nil {
				fn(m.Code)
			}
		}
	}
}

// directorySets yields the annotation sets of a directory in wire order.
func directorySets(d *AnnotationsDirectory, fn func(*AnnotationSet)) {
	if d.Class != nil {
		fn(d.Class)
	}
	for i := range d.Fields {
		fn(&d.Fields[i].Set)
	}
	for i := range d.Methods {
		fn(&d.Methods[i].Set)
	}
	for i := range d.Parameters {
		for _, s := range d.Parameters[i].Sets {
			if s != nil {
				fn(s)
			}
		}
	}
}

func (c *Container) directories(fn func(*AnnotationsDirectory)) {
	for _, cd := range c.classes {
		if cd.Annotations != nil {
			fn(cd.Annotations)
		}
	}
}

func (e *encoder) writeDebugInfos() error {
	e.c.codes(func(code *Code) {
		if code.Debug == nil {
			return
		}
		e.scratch.B = appendDebugInfo(e.scratch.B[:0], code.Debug)
		e.debugOffs[code.Debug] = e.emit(format.SectionDebugInfo, e.scratch.B, true)
	})
	e.closeSection(format.SectionDebugInfo)

	return nil
}

func (e *encoder) writeCodeItems() error {
	var err error
	e.c.codes(func(code *Code) {
		if err != nil {
			return
		}
		var data []byte
		if data, err = e.appendCodeItem(e.scratch.B[:0], code); err == nil {
			e.scratch.B = data
			e.codeOffs[code] = e.emit(format.SectionCode, data, false)
		}
	})
	e.closeSection(format.SectionCode)

	return err
}

// appendCodeItem encodes a code_item. Catch handlers are shared by value in
// first-use order; try blocks keep their order.
func (e *encoder) appendCodeItem(dst []byte, code *Code) ([]byte, error) {
	if len(code.Tries) > 0xFFFF {
		return nil, fmt.Errorf("%w: %d try blocks", errs.ErrIndexOutOfRange, len(code.Tries))
	}

	var debugOff uint32
	if code.Debug != nil {
		debugOff = e.debugOffs[code.Debug]
	}
	dst = e.engine.AppendUint16(dst, code.Registers)
	dst = e.engine.AppendUint16(dst, code.Ins)
	dst = e.engine.AppendUint16(dst, code.Outs)
	dst = e.engine.AppendUint16(dst, uint16(len(code.Tries))) //nolint: gosec
	dst = e.engine.AppendUint32(dst, debugOff)
	dst = e.engine.AppendUint32(dst, uint32(len(code.Insns))) //nolint: gosec
	for _, u := range code.Insns {
		dst = e.engine.AppendUint16(dst, u)
	}
	if len(code.Tries) == 0 {
		return dst, nil
	}
	if len(code.Insns)%2 == 1 {
		dst = e.engine.AppendUint16(dst, 0)
	}

	var unique [][]byte
	index := make(map[string]int)
	handlerOf := make([]int, len(code.Tries))
	for i, t := range code.Tries {
		enc := appendCatchHandler(nil, t.Handler)
		j, ok := index[string(enc)]
		if !ok {
			j = len(unique)
			index[string(enc)] = j
			unique = append(unique, enc)
		}
		handlerOf[i] = j
	}

	list := encoding.AppendUleb128(nil, uint32(len(unique))) //nolint: gosec
	offsets := make([]int, len(unique))
	for i, h := range unique {
		offsets[i] = len(list)
		list = append(list, h...)
	}

	for i, t := range code.Tries {
		off := offsets[handlerOf[i]]
		if off > 0xFFFF {
			return nil, fmt.Errorf("%w: catch handler offset 0x%x", errs.ErrIndexOutOfRange, off)
		}
		dst = e.engine.AppendUint32(dst, t.StartAddr)
		dst = e.engine.AppendUint16(dst, t.InsnCount)
		dst = e.engine.AppendUint16(dst, uint16(off)) //nolint: gosec
	}

	return append(dst, list...), nil
}

func (e *encoder) writeEncodedArrays() error {
	write := func(arr *EncodedArray) error {
		data, err := appendArrayBody(e.scratch.B[:0], arr.Values)
		if err != nil {
			return err
		}
		e.scratch.B = data
		e.arrayOffs[arr] = e.emit(format.SectionEncodedArray, data, true)

		return nil
	}

	for i, cs := range e.c.callSites {
		if err := write(cs); err != nil {
			return fmt.Errorf("call site %d: %w", i, err)
		}
	}
	for i, cd := range e.c.classes {
		if cd.StaticValues == nil {
			continue
		}
		if err := write(cd.StaticValues); err != nil {
			return fmt.Errorf("class %d static values: %w", i, err)
		}
	}
	e.closeSection(format.SectionEncodedArray)

	return nil
}

func (e *encoder) writeAnnotationItems() error {
	var err error
	e.c.directories(func(d *AnnotationsDirectory) {
		directorySets(d, func(set *AnnotationSet) {
			if err != nil {
				return
			}
			offs := make([]uint32, len(set.Items))
			for i, a := range set.Items {
				data := append(e.scratch.B[:0], byte(a.Visibility))
				if data, err = appendEncodedAnnotation(data, a.Value); err != nil {
					return
				}
				e.scratch.B = data
				offs[i] = e.emit(format.SectionAnnotation, data, true)
			}
			e.itemOffs[set] = offs
		})
	})
	e.closeSection(format.SectionAnnotation)

	return err
}

func (e *encoder) appendOffsetList(dst []byte, offs []uint32) []byte {
	dst = e.engine.AppendUint32(dst, uint32(len(offs))) //nolint: gosec
	for _, off := range offs {
		dst = e.engine.AppendUint32(dst, off)
	}

	return dst
}

func (e *encoder) writeAnnotationSets() error {
	e.c.directories(func(d *AnnotationsDirectory) {
		directorySets(d, func(set *AnnotationSet) {
			e.scratch.B = e.appendOffsetList(e.scratch.B[:0], e.itemOffs[set])
			e.setOffs[set] = e.emit(format.SectionAnnotationSet, e.scratch.B, true)
		})
	})
	e.closeSection(format.SectionAnnotationSet)

	return nil
}

func (e *encoder) writeRefLists() error {
	e.c.directories(func(d *AnnotationsDirectory) {
		for i := range d.Parameters {
			p := &d.Parameters[i]
			offs := make([]uint32, len(p.Sets))
			for j, s := range p.Sets {
				if s != nil {
					offs[j] = e.setOffs[s]
				}
			}
			e.scratch.B = e.appendOffsetList(e.scratch.B[:0], offs)
			e.refListOffs[p] = e.emit(format.SectionAnnotationSetRefList, e.scratch.B, true)
		}
	})
	e.closeSection(format.SectionAnnotationSetRefList)

	return nil
}

func (e *encoder) writeDirectories() error {
	e.c.directories(func(d *AnnotationsDirectory) {
		var classOff uint32
		if d.Class != nil {
			classOff = e.setOffs[d.Class]
		}
		buf := e.engine.AppendUint32(e.scratch.B[:0], classOff)
		buf = e.engine.AppendUint32(buf, uint32(len(d.Fields)))     //nolint: gosec
		buf = e.engine.AppendUint32(buf, uint32(len(d.Methods)))    //nolint: gosec
		buf = e.engine.AppendUint32(buf, uint32(len(d.Parameters))) //nolint: gosec
		for i := range d.Fields {
			buf = e.engine.AppendUint32(buf, d.Fields[i].Field)
			buf = e.engine.AppendUint32(buf, e.setOffs[&d.Fields[i].Set])
		}
		for i := range d.Methods {
			buf = e.engine.AppendUint32(buf, d.Methods[i].Method)
			buf = e.engine.AppendUint32(buf, e.setOffs[&d.Methods[i].Set])
		}
		for i := range d.Parameters {
			buf = e.engine.AppendUint32(buf, d.Parameters[i].Method)
			buf = e.engine.AppendUint32(buf, e.refListOffs[&d.Parameters[i]])
		}
		e.scratch.B = buf
		e.dirOffs[d] = e.emit(format.SectionAnnotationsDirectory, buf, true)
	})
	e.closeSection(format.SectionAnnotationsDirectory)

	return nil
}

func (e *encoder) writeTypeLists() error {
	e.typeListOffs = make([]uint32, e.c.typeLists.Len())
	for i, l := range e.c.typeLists.items {
		buf := e.engine.AppendUint32(e.scratch.B[:0], uint32(l.Len())) //nolint: gosec
		for j := range l.Len() {
			buf = e.engine.AppendUint16(buf, uint16(l.At(j))) //nolint: gosec
		}
		e.scratch.B = buf
		e.typeListOffs[i] = e.emit(format.SectionTypeList, buf, false)
	}
	e.closeSection(format.SectionTypeList)

	return nil
}

func (e *encoder) writeClassData() error {
	e.classDataOffs = make([]uint32, len(e.c.classes))
	for i, cd := range e.c.classes {
		if !cd.HasClassData() {
			continue
		}
		data, err := e.appendClassData(e.scratch.B[:0], cd)
		if err != nil {
			return fmt.Errorf("class %d: %w", i, err)
		}
		e.scratch.B = data
		e.classDataOffs[i] = e.emit(format.SectionClassData, data, false)
	}
	e.closeSection(format.SectionClassData)

	return nil
}

// appendClassData encodes a class_data_item; member indices become deltas
// within each list.
func (e *encoder) appendClassData(dst []byte, cd *ClassDef) ([]byte, error) {
	for _, n := range []int{len(cd.StaticFields), len(cd.InstanceFields), len(cd.DirectMethods), len(cd.VirtualMethods)} {
		dst = encoding.AppendUleb128(dst, uint32(n)) //nolint: gosec
	}

	for _, list := range [][]EncodedField{cd.StaticFields, cd.InstanceFields} {
		var prev uint32
		for j, f := range list {
			if j > 0 && f.Field <= prev {
				return nil, fmt.Errorf("%w: field %d listed twice", errs.ErrDuplicateEntry, f.Field)
			}
			dst = encoding.AppendUleb128(dst, f.Field-prev)
			dst = encoding.AppendUleb128(dst, uint32(f.AccessFlags))
			prev = f.Field
		}
	}
	for _, list := range [][]EncodedMethod{cd.DirectMethods, cd.VirtualMethods} {
		var prev uint32
		for j, m := range list {
			if j > 0 && m.Method <= prev {
				return nil, fmt.Errorf("%w: method %d listed twice", errs.ErrDuplicateEntry, m.Method)
			}
			dst = encoding.AppendUleb128(dst, m.Method-prev)
			dst = encoding.AppendUleb128(dst, uint32(m.AccessFlags))
			var codeOff uint32
			if m.Code != nil {
				codeOff = e.codeOffs[m.Code]
			}
			dst = encoding.AppendUleb128(dst, codeOff)
			prev = m.Method
		}
	}

	return dst, nil
}

func (e *encoder) writeStringData() error {
	e.stringOffs = make([]uint32, e.c.strings.Len())
	for i, s := range e.c.strings.items {
		e.scratch.B = encoding.AppendStringData(e.scratch.B[:0], s)
		e.stringOffs[i] = e.emit(format.SectionStringData, e.scratch.B, false)
	}
	e.closeSection(format.SectionStringData)

	return nil
}

// writeHiddenAPI emits the hidden API section: total size, one offset per
// class relative to the section start (0 for classes without members), then
// one ULEB128 flag per member in static, instance, direct, virtual order.
func (e *encoder) writeHiddenAPI() error {
	if !e.c.hiddenAPI {
		return nil
	}

	n := len(e.c.classes)
	buf := make([]byte, 4+4*n)
	for i, cd := range e.c.classes {
		if !cd.HasClassData() {
			continue
		}
		e.engine.PutUint32(buf[4+4*i:], uint32(len(buf))) //nolint: gosec
		for _, list := range [][]EncodedField{cd.StaticFields, cd.InstanceFields} {
			for _, f := range list {
				buf = encoding.AppendUleb128(buf, f.HiddenAPIFlags)
			}
		}
		for _, m := range cd.Methods() {
			buf = encoding.AppendUleb128(buf, m.HiddenAPIFlags)
		}
	}
	e.engine.PutUint32(buf, uint32(len(buf))) //nolint: gosec

	e.emit(format.SectionHiddenAPIClassData, buf, false)
	e.closeSection(format.SectionHiddenAPIClassData)

	return nil
}
