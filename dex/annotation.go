package dex

import (
	"slices"

	"github.com/arloliu/dexkit/format"
)

// AnnotationElement is one name/value pair of an encoded annotation.
type AnnotationElement struct {
	Name  uint32 // string index
	Value Value
}

// EncodedAnnotation is an encoded_annotation: a type and its elements.
// On the wire the elements are ordered by name index.
type EncodedAnnotation struct {
	Type     uint32
	Elements []AnnotationElement
}

// Clone returns a deep copy.
func (a EncodedAnnotation) Clone() EncodedAnnotation {
	out := EncodedAnnotation{Type: a.Type}
	if a.Elements != nil {
		out.Elements = make([]AnnotationElement, len(a.Elements))
		for i, e := range a.Elements {
			out.Elements[i] = AnnotationElement{Name: e.Name, Value: cloneValue(e.Value)}
		}
	}

	return out
}

// Annotation is an annotation_item.
type Annotation struct {
	Visibility format.Visibility
	Value      EncodedAnnotation
}

// AnnotationSet is an annotation_set_item. On the wire entries are ordered by type index.
type AnnotationSet struct {
	Items []Annotation
}

// Clone returns a deep copy of the set.
func (s *AnnotationSet) Clone() *AnnotationSet {
	if s == nil {
		return nil
	}
	out := &AnnotationSet{}
	if s.Items != nil {
		out.Items = make([]Annotation, len(s.Items))
		for i, a := range s.Items {
			out.Items[i] = Annotation{Visibility: a.Visibility, Value: a.Value.Clone()}
		}
	}

	return out
}

// FieldAnnotation attaches an annotation set to a field.
type FieldAnnotation struct {
	Field uint32
	Set   AnnotationSet
}

// MethodAnnotation attaches an annotation set to a method.
type MethodAnnotation struct {
	Method uint32
	Set    AnnotationSet
}

// ParameterAnnotation attaches one annotation set per parameter to a method.
// A nil entry means the parameter has no annotations.
type ParameterAnnotation struct {
	Method uint32
	Sets   []*AnnotationSet
}

// AnnotationsDirectory is an annotations_directory_item.
type AnnotationsDirectory struct {
	Class      *AnnotationSet
	Fields     []FieldAnnotation
	Methods    []MethodAnnotation
	Parameters []ParameterAnnotation
}

// Clone returns a deep copy of the directory.
func (d *AnnotationsDirectory) Clone() *AnnotationsDirectory {
	if d == nil {
		return nil
	}
	out := &AnnotationsDirectory{Class: d.Class.Clone()}
	if d.Fields != nil {
		out.Fields = make([]FieldAnnotation, len(d.Fields))
		for i, f := range d.Fields {
			out.Fields[i] = FieldAnnotation{Field: f.Field, Set: *f.Set.Clone()}
		}
	}
	if d.Methods != nil {
		out.Methods = make([]MethodAnnotation, len(d.Methods))
		for i, m := range d.Methods {
			out.Methods[i] = MethodAnnotation{Method: m.Method, Set: *m.Set.Clone()}
		}
	}
	if d.Parameters != nil {
		out.Parameters = make([]ParameterAnnotation, len(d.Parameters))
		for i, p := range d.Parameters {
			sets := make([]*AnnotationSet, len(p.Sets))
			for j, s := range p.Sets {
				sets[j] = s.Clone()
			}
			out.Parameters[i] = ParameterAnnotation{Method: p.Method, Sets: sets}
		}
	}

	return out
}

// IsEmpty reports whether the directory carries no annotations at all.
func (d *AnnotationsDirectory) IsEmpty() bool {
	return d.Class == nil && len(d.Fields) == 0 && len(d.Methods) == 0 && len(d.Parameters) == 0
}

func sortAnnotationSet(s *AnnotationSet) {
	for i := range s.Items {
		sortElements(&s.Items[i].Value)
	}
	slices.SortStableFunc(s.Items, func(a, b Annotation) int { return cmpU32(a.Value.Type, b.Value.Type) })
}

func sortElements(a *EncodedAnnotation) {
	for i := range a.Elements {
		a.Elements[i].Value = sortValue(a.Elements[i].Value)
	}
	slices.SortStableFunc(a.Elements, func(x, y AnnotationElement) int { return cmpU32(x.Name, y.Name) })
}

func sortValue(v Value) Value {
	switch tv := v.(type) {
	case ArrayValue:
		for i := range tv {
			tv[i] = sortValue(tv[i])
		}

		return tv
	case AnnotationValue:
		ea := EncodedAnnotation(tv)
		sortElements(&ea)

		return AnnotationValue(ea)
	default:
		return v
	}
}

// sortDirectory orders every annotation list the way the wire form requires.
func sortDirectory(d *AnnotationsDirectory) {
	if d.Class != nil {
		sortAnnotationSet(d.Class)
	}
	for i := range d.Fields {
		sortAnnotationSet(&d.Fields[i].Set)
	}
	for i := range d.Methods {
		sortAnnotationSet(&d.Methods[i].Set)
	}
	for i := range d.Parameters {
		for _, s := range d.Parameters[i].Sets {
			if s != nil {
				sortAnnotationSet(s)
			}
		}
	}
	slices.SortStableFunc(d.Fields, func(a, b FieldAnnotation) int { return cmpU32(a.Field, b.Field) })
	slices.SortStableFunc(d.Methods, func(a, b MethodAnnotation) int { return cmpU32(a.Method, b.Method) })
	slices.SortStableFunc(d.Parameters, func(a, b ParameterAnnotation) int { return cmpU32(a.Method, b.Method) })
}
