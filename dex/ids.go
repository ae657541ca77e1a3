package dex

import (
	"encoding/binary"
	"slices"

	"github.com/arloliu/dexkit/format"
	"github.com/arloliu/dexkit/section"
)

// NoIndex marks an absent optional reference.
const NoIndex = section.NoIndex

// TypeID is a type_id_item: the string index of a type descriptor.
type TypeID struct {
	Descriptor uint32
}

// TypeList is an immutable, comparable list of type indices (a type_list item).
// It is comparable so it can live in a Pool and be referenced by index from
// prototypes and class definitions.
type TypeList struct {
	packed string
}

// NewTypeList builds a TypeList from type indices.
func NewTypeList(types ...uint32) TypeList {
	b := make([]byte, 0, 4*len(types))
	for _, t := range types {
		b = binary.LittleEndian.AppendUint32(b, t)
	}

	return TypeList{packed: string(b)}
}

// Len returns the number of types in the list.
func (l TypeList) Len() int {
	return len(l.packed) / 4
}

// At returns the type index at position i.
func (l TypeList) At(i int) uint32 {
	return binary.LittleEndian.Uint32([]byte(l.packed[4*i : 4*i+4]))
}

// Types returns the type indices as a new slice.
func (l TypeList) Types() []uint32 {
	out := make([]uint32, l.Len())
	for i := range out {
		out[i] = l.At(i)
	}

	return out
}

// compareTypeLists orders lists element-wise, shorter first on a common prefix.
func compareTypeLists(a, b TypeList) int {
	return slices.Compare(a.Types(), b.Types())
}

// ProtoID is a proto_id_item. Parameters is a TypeLists index or NoIndex.
type ProtoID struct {
	Shorty     uint32
	Return     uint32
	Parameters uint32
}

// FieldID is a field_id_item.
type FieldID struct {
	Class uint32
	Type  uint32
	Name  uint32
}

// MethodID is a method_id_item.
type MethodID struct {
	Class uint32
	Proto uint32
	Name  uint32
}

// MethodHandle is a method_handle_item. Member indexes the field pool for
// accessor kinds and the method pool for invoke kinds.
type MethodHandle struct {
	Kind   format.MethodHandleType
	Member uint32
}

func cmpU32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
