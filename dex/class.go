package dex

import (
	"slices"

	"github.com/arloliu/dexkit/format"
)

// EncodedField is a field declared by a class. Field is an absolute field
// pool index; the wire form stores deltas within each list.
type EncodedField struct {
	Field       uint32
	AccessFlags format.AccessFlags
	// HiddenAPIFlags is the restriction flag written when the container carries hidden API data.
	HiddenAPIFlags uint32
}

// EncodedMethod is a method declared by a class. Code is nil for abstract and native methods.
type EncodedMethod struct {
	Method         uint32
	AccessFlags    format.AccessFlags
	Code           *Code
	HiddenAPIFlags uint32
}

// ClassDef is a class_def_item together with its class data, annotations and
// static values. Optional indices hold NoIndex when absent.
type ClassDef struct {
	Class       uint32 // type index
	AccessFlags format.AccessFlags
	Superclass  uint32 // type index or NoIndex
	Interfaces  uint32 // TypeLists index or NoIndex
	SourceFile  uint32 // string index or NoIndex

	Annotations *AnnotationsDirectory

	StaticFields   []EncodedField
	InstanceFields []EncodedField
	DirectMethods  []EncodedMethod
	VirtualMethods []EncodedMethod

	// StaticValues holds initial values for the leading static fields.
	StaticValues *EncodedArray
}

// NewClassDef creates a class definition with no superclass, interfaces or source file.
func NewClassDef(class uint32, flags format.AccessFlags) *ClassDef {
	return &ClassDef{
		Class:       class,
		AccessFlags: flags,
		Superclass:  NoIndex,
		Interfaces:  NoIndex,
		SourceFile:  NoIndex,
	}
}

// HasClassData reports whether the class declares any field or method.
func (c *ClassDef) HasClassData() bool {
	return len(c.StaticFields) > 0 || len(c.InstanceFields) > 0 ||
		len(c.DirectMethods) > 0 || len(c.VirtualMethods) > 0
}

// MemberCount returns the total number of declared fields and methods.
func (c *ClassDef) MemberCount() int {
	return len(c.StaticFields) + len(c.InstanceFields) + len(c.DirectMethods) + len(c.VirtualMethods)
}

// Methods iterates over direct then virtual methods.
func (c *ClassDef) Methods() []*EncodedMethod {
	out := make([]*EncodedMethod, 0, len(c.DirectMethods)+len(c.VirtualMethods))
	for i := range c.DirectMethods {
		out = append(out, &c.DirectMethods[i])
	}
	for i := range c.VirtualMethods {
		out = append(out, &c.VirtualMethods[i])
	}

	return out
}

// Clone returns a deep copy of the class definition.
func (c *ClassDef) Clone() *ClassDef {
	out := *c
	out.Annotations = c.Annotations.Clone()
	out.StaticFields = slices.Clone(c.StaticFields)
	out.InstanceFields = slices.Clone(c.InstanceFields)
	out.DirectMethods = cloneMethods(c.DirectMethods)
	out.VirtualMethods = cloneMethods(c.VirtualMethods)
	out.StaticValues = c.StaticValues.Clone()

	return &out
}

func cloneMethods(ms []EncodedMethod) []EncodedMethod {
	if ms == nil {
		return nil
	}
	out := make([]EncodedMethod, len(ms))
	for i, m := range ms {
		m.Code = m.Code.Clone()
		out[i] = m
	}

	return out
}

func sortFields(fs []EncodedField) {
	slices.SortStableFunc(fs, func(a, b EncodedField) int { return cmpU32(a.Field, b.Field) })
}

func sortMethods(ms []EncodedMethod) {
	slices.SortStableFunc(ms, func(a, b EncodedMethod) int { return cmpU32(a.Method, b.Method) })
}
