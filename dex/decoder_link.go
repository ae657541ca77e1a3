package dex

import (
	"fmt"

	"github.com/arloliu/dexkit/encoding"
	"github.com/arloliu/dexkit/errs"
	"github.com/arloliu/dexkit/format"
)

// link resolves the offsets gathered by the section readers into the model.
// Items shared by several owners on disk are cloned so every owner holds its
// own copy.
func (s *decodeState) link() error {
	if err := s.linkStrings(); err != nil {
		return err
	}
	if err := s.linkProtos(); err != nil {
		return err
	}

	for i, off := range s.callSiteOffs {
		arr, ok := s.arrays[off]
		if !ok {
			return fmt.Errorf("%w: call site %d array at 0x%x", errs.ErrInvalidOffset, i, off)
		}
		s.c.callSites = append(s.c.callSites, arr.Clone())
	}

	s.c.classes = make([]*ClassDef, 0, len(s.classItems))
	for i := range s.classItems {
		cd, err := s.linkClass(i)
		if err != nil {
			return fmt.Errorf("class %d: %w", i, err)
		}
		s.c.classes = append(s.c.classes, cd)
	}

	if s.hiddenAPI != nil {
		return s.linkHiddenAPI()
	}

	return nil
}

func (s *decodeState) linkStrings() error {
	for i, off := range s.stringOffs {
		str, ok := s.stringData[off]
		if !ok {
			// tolerate string data that the map list does not describe
			r := encoding.NewReader(s.data, s.engine)
			if err := r.Seek(off); err != nil {
				return fmt.Errorf("string %d: %w", i, err)
			}
			var err error
			if str, err = r.StringData(); err != nil {
				return fmt.Errorf("string %d: %w", i, err)
			}
		}
		if _, err := s.c.strings.add(str); err != nil {
			return fmt.Errorf("string %d: %w", i, err)
		}
	}

	return nil
}

func (s *decodeState) linkProtos() error {
	for i, p := range s.protoItems {
		params, err := s.typeListAt(p.ParametersOff)
		if err != nil {
			return fmt.Errorf("proto %d: %w", i, err)
		}
		proto := ProtoID{Shorty: p.ShortyIdx, Return: p.ReturnTypeIdx, Parameters: params}
		if _, err := s.c.protos.add(proto); err != nil {
			return fmt.Errorf("proto %d: %w", i, err)
		}
	}

	return nil
}

// typeListAt maps a type_list offset to its pool index; 0 means no list.
func (s *decodeState) typeListAt(off uint32) (uint32, error) {
	if off == 0 {
		return NoIndex, nil
	}
	idx, ok := s.typeLists[off]
	if !ok {
		return 0, fmt.Errorf("%w: no type list at 0x%x", errs.ErrInvalidOffset, off)
	}

	return idx, nil
}

func (s *decodeState) linkClass(i int) (*ClassDef, error) {
	item := s.classItems[i]
	cd := NewClassDef(item.ClassIdx, format.AccessFlags(item.AccessFlags))
	cd.Superclass = item.SuperclassIdx
	cd.SourceFile = item.SourceFileIdx

	var err error
	if cd.Interfaces, err = s.typeListAt(item.InterfacesOff); err != nil {
		return nil, fmt.Errorf("interfaces: %w", err)
	}

	if item.AnnotationsOff != 0 {
		if cd.Annotations, err = s.directoryAt(item.AnnotationsOff); err != nil {
			return nil, err
		}
	}

	if item.ClassDataOff != 0 {
		raw, ok := s.classData[item.ClassDataOff]
		if !ok {
			return nil, fmt.Errorf("%w: no class data at 0x%x", errs.ErrInvalidOffset, item.ClassDataOff)
		}
		cd.StaticFields = linkFields(raw.staticFields)
		cd.InstanceFields = linkFields(raw.instanceFields)
		if cd.DirectMethods, err = s.linkMethods(raw.directMethods); err != nil {
			return nil, err
		}
		if cd.VirtualMethods, err = s.linkMethods(raw.virtualMethods); err != nil {
			return nil, err
		}
	}

	if item.StaticValuesOff != 0 {
		arr, ok := s.arrays[item.StaticValuesOff]
		if !ok {
			return nil, fmt.Errorf("%w: no static values at 0x%x", errs.ErrInvalidOffset, item.StaticValuesOff)
		}
		cd.StaticValues = arr.Clone()
	}

	return cd, nil
}

func linkFields(raw []rawMember) []EncodedField {
	if len(raw) == 0 {
		return nil
	}
	out := make([]EncodedField, len(raw))
	for i, m := range raw {
		out[i] = EncodedField{Field: m.idx, AccessFlags: m.flags}
	}

	return out
}

func (s *decodeState) linkMethods(raw []rawMember) ([]EncodedMethod, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]EncodedMethod, len(raw))
	for i, m := range raw {
		out[i] = EncodedMethod{Method: m.idx, AccessFlags: m.flags}
		if m.code == 0 {
			continue
		}
		rc, ok := s.codes[m.code]
		if !ok {
			return nil, fmt.Errorf("%w: method %d code at 0x%x", errs.ErrInvalidOffset, m.idx, m.code)
		}
		code := rc.code.Clone()
		if rc.debugOff != 0 {
			d, ok := s.debugInfos[rc.debugOff]
			if !ok {
				return nil, fmt.Errorf("%w: method %d debug info at 0x%x", errs.ErrInvalidOffset, m.idx, rc.debugOff)
			}
			code.Debug = d.Clone()
		}
		out[i].Code = code
	}

	return out, nil
}

func (s *decodeState) setAt(off uint32) (*AnnotationSet, error) {
	offs, ok := s.sets[off]
	if !ok {
		return nil, fmt.Errorf("%w: no annotation set at 0x%x", errs.ErrInvalidOffset, off)
	}
	set := &AnnotationSet{}
	if len(offs) > 0 {
		set.Items = make([]Annotation, len(offs))
	}
	for i, aoff := range offs {
		a, ok := s.annotations[aoff]
		if !ok {
			return nil, fmt.Errorf("%w: no annotation at 0x%x", errs.ErrInvalidOffset, aoff)
		}
		set.Items[i] = Annotation{Visibility: a.Visibility, Value: a.Value.Clone()}
	}

	return set, nil
}

func (s *decodeState) directoryAt(off uint32) (*AnnotationsDirectory, error) {
	raw, ok := s.directories[off]
	if !ok {
		return nil, fmt.Errorf("%w: no annotations directory at 0x%x", errs.ErrInvalidOffset, off)
	}

	d := &AnnotationsDirectory{}
	var err error
	if raw.classOff != 0 {
		if d.Class, err = s.setAt(raw.classOff); err != nil {
			return nil, err
		}
	}
	for _, f := range raw.fields {
		set, err := s.setAt(f[1])
		if err != nil {
			return nil, err
		}
		d.Fields = append(d.Fields, FieldAnnotation{Field: f[0], Set: *set})
	}
	for _, m := range raw.methods {
		set, err := s.setAt(m[1])
		if err != nil {
			return nil, err
		}
		d.Methods = append(d.Methods, MethodAnnotation{Method: m[0], Set: *set})
	}
	for _, p := range raw.parameters {
		offs, ok := s.refLists[p[1]]
		if !ok {
			return nil, fmt.Errorf("%w: no annotation set ref list at 0x%x", errs.ErrInvalidOffset, p[1])
		}
		pa := ParameterAnnotation{Method: p[0], Sets: make([]*AnnotationSet, len(offs))}
		for i, soff := range offs {
			if soff == 0 {
				continue
			}
			if pa.Sets[i], err = s.setAt(soff); err != nil {
				return nil, err
			}
		}
		d.Parameters = append(d.Parameters, pa)
	}

	return d, nil
}

// linkHiddenAPI reads the per-member restriction flags. The section starts
// with its total size and one offset per class, relative to the section start.
func (s *decodeState) linkHiddenAPI() error {
	base := s.hiddenAPI.Offset
	r := encoding.NewReader(s.data, s.engine)
	if err := r.Seek(base); err != nil {
		return err
	}
	if err := r.ExpectAligned(format.SectionHiddenAPIClassData.Alignment()); err != nil {
		return err
	}
	size, err := r.U32()
	if err != nil {
		return err
	}
	if uint64(base)+uint64(size) > uint64(len(s.data)) {
		return fmt.Errorf("%w: hidden api section of %d bytes at 0x%x", errs.ErrTruncatedInput, size, base)
	}
	bounded := s.data[:uint64(base)+uint64(size)]
	r = encoding.NewReader(bounded, s.engine)
	if err := r.Seek(base + 4); err != nil {
		return err
	}

	offs := make([]uint32, len(s.c.classes))
	for i := range offs {
		if offs[i], err = r.U32(); err != nil {
			return fmt.Errorf("hidden api offsets: %w", err)
		}
	}

	for i, off := range offs {
		if off == 0 {
			continue
		}
		if err := r.Seek(base + off); err != nil {
			return fmt.Errorf("hidden api class %d: %w", i, err)
		}
		cd := s.c.classes[i]
		for _, list := range [][]EncodedField{cd.StaticFields, cd.InstanceFields} {
			for j := range list {
				if list[j].HiddenAPIFlags, err = r.Uleb128(); err != nil {
					return fmt.Errorf("hidden api class %d: %w", i, err)
				}
			}
		}
		for _, m := range cd.Methods() {
			if m.HiddenAPIFlags, err = r.Uleb128(); err != nil {
				return fmt.Errorf("hidden api class %d: %w", i, err)
			}
		}
	}
	s.c.hiddenAPI = true

	return nil
}
