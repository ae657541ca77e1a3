package dex

import (
	"fmt"
	"slices"
	"strings"

	"github.com/arloliu/dexkit/errs"
)

// Remap holds, per pool, the new index of every old index after a
// canonicalization pass. Each slice is indexed by the old index.
type Remap struct {
	Strings       []uint32
	Types         []uint32
	TypeLists     []uint32
	Protos        []uint32
	Fields        []uint32
	Methods       []uint32
	MethodHandles []uint32
}

func mapIndex(table []uint32, old uint32) uint32 {
	if old == NoIndex || uint64(old) >= uint64(len(table)) {
		return old
	}

	return table[old]
}

// String returns the new index of an old string index. NoIndex maps to itself.
func (r *Remap) String(old uint32) uint32 { return mapIndex(r.Strings, old) }

// Type returns the new index of an old type index.
func (r *Remap) Type(old uint32) uint32 { return mapIndex(r.Types, old) }

// Proto returns the new index of an old prototype index.
func (r *Remap) Proto(old uint32) uint32 { return mapIndex(r.Protos, old) }

// Field returns the new index of an old field index.
func (r *Remap) Field(old uint32) uint32 { return mapIndex(r.Fields, old) }

// Method returns the new index of an old method index.
func (r *Remap) Method(old uint32) uint32 { return mapIndex(r.Methods, old) }

// MethodHandle returns the new index of an old method handle index.
func (r *Remap) MethodHandle(old uint32) uint32 { return mapIndex(r.MethodHandles, old) }

func (r *Remap) table(kind refKind) []uint32 {
	switch kind {
	case refString:
		return r.Strings
	case refType:
		return r.Types
	case refTypeList:
		return r.TypeLists
	case refProto:
		return r.Protos
	case refField:
		return r.Fields
	case refMethod:
		return r.Methods
	case refMethodHandle:
		return r.MethodHandles
	default:
		return nil
	}
}

// Canonicalize rebuilds every pool in canonical order and rewrites all
// structural references through the resulting remap table. Member lists,
// annotation sets and annotation directories are re-sorted by their new
// indices. Instruction words are left untouched; the returned Remap lets
// callers patch indices embedded in them.
//
// Returns:
//   - *Remap: Old to new index tables
//   - error: ErrIndexOutOfRange if the model holds a dangling reference
func (c *Container) Canonicalize() (*Remap, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	r := &Remap{}
	r.Strings = c.strings.rebuild(nil, strings.Compare)
	r.Types = c.types.rebuild(
		func(t TypeID) TypeID { return TypeID{Descriptor: r.String(t.Descriptor)} },
		func(a, b TypeID) int { return cmpU32(a.Descriptor, b.Descriptor) },
	)
	r.TypeLists = c.typeLists.rebuild(func(l TypeList) TypeList {
		types := l.Types()
		for i, t := range types {
			types[i] = r.Type(t)
		}

		return NewTypeList(types...)
	}, nil)
	r.Protos = c.protos.rebuild(
		func(p ProtoID) ProtoID {
			return ProtoID{Shorty: r.String(p.Shorty), Return: r.Type(p.Return), Parameters: mapIndex(r.TypeLists, p.Parameters)}
		},
		func(a, b ProtoID) int {
			if n := cmpU32(a.Return, b.Return); n != 0 {
				return n
			}

			return compareTypeLists(c.paramList(a.Parameters), c.paramList(b.Parameters))
		},
	)
	r.Fields = c.fields.rebuild(
		func(f FieldID) FieldID {
			return FieldID{Class: r.Type(f.Class), Type: r.Type(f.Type), Name: r.String(f.Name)}
		},
		func(a, b FieldID) int {
			if n := cmpU32(a.Class, b.Class); n != 0 {
				return n
			}
			if n := cmpU32(a.Name, b.Name); n != 0 {
				return n
			}

			return cmpU32(a.Type, b.Type)
		},
	)
	r.Methods = c.methods.rebuild(
		func(m MethodID) MethodID {
			return MethodID{Class: r.Type(m.Class), Proto: r.Proto(m.Proto), Name: r.String(m.Name)}
		},
		func(a, b MethodID) int {
			if n := cmpU32(a.Class, b.Class); n != 0 {
				return n
			}
			if n := cmpU32(a.Name, b.Name); n != 0 {
				return n
			}

			return cmpU32(a.Proto, b.Proto)
		},
	)
	r.MethodHandles = c.methodHandles.rebuild(func(h MethodHandle) MethodHandle {
		if h.Kind.IsField() {
			h.Member = r.Field(h.Member)
		} else {
			h.Member = r.Method(h.Member)
		}

		return h
	}, nil)

	w := newRewriteWalker(func(kind refKind, idx uint32) (uint32, error) {
		table := r.table(kind)
		if uint64(idx) >= uint64(len(table)) {
			return idx, fmt.Errorf("%w: %s index %d >= %d", errs.ErrIndexOutOfRange, kind, idx, len(table))
		}

		return table[idx], nil
	})
	if err := w.container(c); err != nil {
		return nil, err
	}

	for _, cd := range c.classes {
		c.sortClass(cd)
	}
	for _, cs := range c.callSites {
		for i := range cs.Values {
			cs.Values[i] = sortValue(cs.Values[i])
		}
	}

	return r, nil
}

func (c *Container) paramList(idx uint32) TypeList {
	if l, err := c.typeLists.Get(idx); err == nil {
		return l
	}

	return TypeList{}
}

// sortClass restores the ascending member order the wire form needs. Static
// values follow their fields; a field left without a value before the last
// initialized one gets the zero value of its type. An array left empty is
// dropped, since an absent static_values_off already means all defaults.
func (c *Container) sortClass(cd *ClassDef) {
	if cd.StaticValues != nil && len(cd.StaticValues.Values) > 0 {
		type pair struct {
			field EncodedField
			value Value
		}
		pairs := make([]pair, len(cd.StaticFields))
		for i, f := range cd.StaticFields {
			pairs[i].field = f
			if i < len(cd.StaticValues.Values) {
				pairs[i].value = cd.StaticValues.Values[i]
			}
		}
		slices.SortStableFunc(pairs, func(a, b pair) int { return cmpU32(a.field.Field, b.field.Field) })

		last := -1
		for i, p := range pairs {
			cd.StaticFields[i] = p.field
			if p.value != nil {
				last = i
			}
		}
		values := make([]Value, last+1)
		for i := range values {
			if pairs[i].value != nil {
				values[i] = sortValue(pairs[i].value)
				continue
			}
			values[i] = c.zeroValue(pairs[i].field.Field)
		}
		cd.StaticValues.Values = values
	} else {
		sortFields(cd.StaticFields)
	}
	if cd.StaticValues != nil && len(cd.StaticValues.Values) == 0 {
		cd.StaticValues = nil
	}

	sortFields(cd.InstanceFields)
	sortMethods(cd.DirectMethods)
	sortMethods(cd.VirtualMethods)
	if cd.Annotations != nil {
		sortDirectory(cd.Annotations)
	}
}

// zeroValue returns the default initial value of a field.
func (c *Container) zeroValue(fieldIdx uint32) Value {
	f, err := c.fields.Get(fieldIdx)
	if err != nil {
		return NullValue{}
	}
	desc, err := c.TypeDescriptor(f.Type)
	if err != nil || desc == "" {
		return NullValue{}
	}

	switch desc[0] {
	case 'Z':
		return BooleanValue(false)
	case 'B':
		return ByteValue(0)
	case 'S':
		return ShortValue(0)
	case 'C':
		return CharValue(0)
	case 'I':
		return IntValue(0)
	case 'J':
		return LongValue(0)
	case 'F':
		return FloatValue(0)
	case 'D':
		return DoubleValue(0)
	default:
		return NullValue{}
	}
}
