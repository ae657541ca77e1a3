package dex

import (
	"fmt"
	"slices"
	"strings"

	"github.com/arloliu/dexkit/endian"
	"github.com/arloliu/dexkit/errs"
	"github.com/arloliu/dexkit/format"
	"github.com/arloliu/dexkit/internal/options"
)

// Container is the in-memory model of one dex image. It owns every pool and
// structure reachable from it.
//
// A Container is not safe for concurrent mutation. Concurrent readers are
// fine as long as nobody mutates or encodes it (Encode may rebuild pools).
type Container struct {
	version format.Version
	engine  endian.EndianEngine

	strings       *Pool[string]
	types         *Pool[TypeID]
	typeLists     *Pool[TypeList]
	protos        *Pool[ProtoID]
	fields        *Pool[FieldID]
	methods       *Pool[MethodID]
	methodHandles *Pool[MethodHandle]

	callSites []*EncodedArray
	classes   []*ClassDef

	link      []byte
	hiddenAPI bool
}

// ContainerOption represents a functional option for configuring a new Container.
type ContainerOption = options.Option[*Container]

// WithVersion sets the revision written to the magic.
func WithVersion(v format.Version) ContainerOption {
	return options.New(func(c *Container) error {
		return c.SetVersion(v)
	})
}

// WithLittleEndian selects little-endian fixed-width fields. It is the default option.
func WithLittleEndian() ContainerOption {
	return options.NoError(func(c *Container) {
		c.engine = endian.GetLittleEndianEngine()
	})
}

// WithBigEndian selects the reverse endian tag. It rarely needs to be used.
func WithBigEndian() ContainerOption {
	return options.NoError(func(c *Container) {
		c.engine = endian.GetBigEndianEngine()
	})
}

// WithHiddenAPI makes the container carry a hidden API section.
func WithHiddenAPI(enabled bool) ContainerOption {
	return options.NoError(func(c *Container) {
		c.hiddenAPI = enabled
	})
}

// New creates an empty container for building a dex image.
//
// Parameters:
//   - opts: Container options (version, byte order, hidden API)
//
// Returns:
//   - *Container: Empty container, version 035 little-endian by default
//   - error: Option error, e.g. ErrUnsupportedVersion
func New(opts ...ContainerOption) (*Container, error) {
	c := newContainer()
	if err := options.Apply(c, opts...); err != nil {
		return nil, err
	}

	return c, nil
}

func newContainer() *Container {
	return &Container{
		version:       format.DefaultVersion,
		engine:        endian.GetLittleEndianEngine(),
		strings:       NewPool[string](),
		types:         NewPool[TypeID](),
		typeLists:     NewPool[TypeList](),
		protos:        NewPool[ProtoID](),
		fields:        NewPool[FieldID](),
		methods:       NewPool[MethodID](),
		methodHandles: NewPool[MethodHandle](),
	}
}

// Version returns the revision written to the magic.
func (c *Container) Version() format.Version {
	return c.version
}

// SetVersion changes the revision.
func (c *Container) SetVersion(v format.Version) error {
	if !v.IsSupported() {
		return fmt.Errorf("%w: %s", errs.ErrUnsupportedVersion, v)
	}
	c.version = v

	return nil
}

// Endianness returns the byte order engine of fixed-width fields.
func (c *Container) Endianness() endian.EndianEngine {
	return c.engine
}

// SetEndianness changes the byte order used by Encode.
func (c *Container) SetEndianness(engine endian.EndianEngine) {
	c.engine = engine
}

func (c *Container) Strings() *Pool[string]             { return c.strings }
func (c *Container) Types() *Pool[TypeID]               { return c.types }
func (c *Container) TypeLists() *Pool[TypeList]         { return c.typeLists }
func (c *Container) Protos() *Pool[ProtoID]             { return c.protos }
func (c *Container) Fields() *Pool[FieldID]             { return c.fields }
func (c *Container) Methods() *Pool[MethodID]           { return c.methods }
func (c *Container) MethodHandles() *Pool[MethodHandle] { return c.methodHandles }

// CallSites returns the call site arrays in index order.
func (c *Container) CallSites() []*EncodedArray {
	return c.callSites
}

// AddCallSite appends a call site and returns its index.
func (c *Container) AddCallSite(arr *EncodedArray) uint32 {
	c.callSites = append(c.callSites, arr)
	return uint32(len(c.callSites) - 1) //nolint: gosec
}

// Link returns the opaque link section bytes.
func (c *Container) Link() []byte {
	return c.link
}

// SetLink replaces the opaque link section bytes.
func (c *Container) SetLink(data []byte) {
	c.link = slices.Clone(data)
}

// HasHiddenAPI reports whether Encode writes a hidden API section.
func (c *Container) HasHiddenAPI() bool {
	return c.hiddenAPI
}

// SetHiddenAPI toggles the hidden API section.
func (c *Container) SetHiddenAPI(enabled bool) {
	c.hiddenAPI = enabled
}

// Dirty reports whether any pool changed since decode or the last canonicalization.
func (c *Container) Dirty() bool {
	return c.strings.Dirty() || c.types.Dirty() || c.typeLists.Dirty() || c.protos.Dirty() ||
		c.fields.Dirty() || c.methods.Dirty() || c.methodHandles.Dirty()
}

// Classes returns the class definitions in table order.
func (c *Container) Classes() []*ClassDef {
	return c.classes
}

// Class returns the class definition at position i.
func (c *Container) Class(i int) (*ClassDef, error) {
	if i < 0 || i >= len(c.classes) {
		return nil, fmt.Errorf("%w: class %d of %d", errs.ErrIndexOutOfRange, i, len(c.classes))
	}

	return c.classes[i], nil
}

// AddClass appends a class definition.
//
// Returns:
//   - error: ErrIndexOutOfRange if the class type is not in the type pool,
//     ErrDuplicateEntry if another class already defines that type
func (c *Container) AddClass(cd *ClassDef) error {
	if !c.types.Contains(cd.Class) {
		return fmt.Errorf("%w: class type %d", errs.ErrIndexOutOfRange, cd.Class)
	}
	for _, existing := range c.classes {
		if existing.Class == cd.Class {
			return fmt.Errorf("%w: class type %d already defined", errs.ErrDuplicateEntry, cd.Class)
		}
	}
	c.classes = append(c.classes, cd)

	return nil
}

// RemoveClass deletes the class definition at position i.
func (c *Container) RemoveClass(i int) error {
	if i < 0 || i >= len(c.classes) {
		return fmt.Errorf("%w: class %d of %d", errs.ErrIndexOutOfRange, i, len(c.classes))
	}
	c.classes = slices.Delete(c.classes, i, i+1)

	return nil
}

// FindClass returns the class defining the given type descriptor.
func (c *Container) FindClass(descriptor string) (*ClassDef, bool) {
	sidx, ok := c.strings.Lookup(descriptor)
	if !ok {
		return nil, false
	}
	tidx, ok := c.types.Lookup(TypeID{Descriptor: sidx})
	if !ok {
		return nil, false
	}
	for _, cd := range c.classes {
		if cd.Class == tidx {
			return cd, true
		}
	}

	return nil, false
}

// SortClassesByHierarchy reorders class definitions so that superclasses and
// interfaces defined in this container precede their subclasses. Unrelated
// classes keep their relative order.
func (c *Container) SortClassesByHierarchy() {
	byType := make(map[uint32]*ClassDef, len(c.classes))
	for _, cd := range c.classes {
		byType[cd.Class] = cd
	}

	visited := make(map[*ClassDef]bool, len(c.classes))
	sorted := make([]*ClassDef, 0, len(c.classes))

	var visit func(cd *ClassDef)
	visit = func(cd *ClassDef) {
		if visited[cd] {
			return
		}
		visited[cd] = true
		if sup, ok := byType[cd.Superclass]; ok && cd.Superclass != NoIndex {
			visit(sup)
		}
		if list, err := c.typeLists.Get(cd.Interfaces); err == nil {
			for _, t := range list.Types() {
				if iface, ok := byType[t]; ok {
					visit(iface)
				}
			}
		}
		sorted = append(sorted, cd)
	}

	for _, cd := range c.classes {
		visit(cd)
	}
	c.classes = sorted
}

// InternString returns the index of s in the string pool.
func (c *Container) InternString(s string) uint32 {
	return c.strings.Intern(s)
}

// InternType returns the type index of a descriptor such as "Ljava/lang/Object;".
func (c *Container) InternType(descriptor string) uint32 {
	return c.types.Intern(TypeID{Descriptor: c.InternString(descriptor)})
}

// InternTypeList returns the TypeLists index for the descriptors, or NoIndex for an empty list.
func (c *Container) InternTypeList(descriptors ...string) uint32 {
	if len(descriptors) == 0 {
		return NoIndex
	}
	types := make([]uint32, len(descriptors))
	for i, d := range descriptors {
		types[i] = c.InternType(d)
	}

	return c.typeLists.Intern(NewTypeList(types...))
}

// InternProto returns the prototype index for a return type and parameter types.
func (c *Container) InternProto(returnType string, params ...string) uint32 {
	return c.protos.Intern(ProtoID{
		Shorty:     c.InternString(Shorty(returnType, params...)),
		Return:     c.InternType(returnType),
		Parameters: c.InternTypeList(params...),
	})
}

// InternField returns the field index for class, name and type descriptors.
func (c *Container) InternField(class, name, fieldType string) uint32 {
	return c.fields.Intern(FieldID{
		Class: c.InternType(class),
		Type:  c.InternType(fieldType),
		Name:  c.InternString(name),
	})
}

// InternMethod returns the method index for a class, name and signature.
func (c *Container) InternMethod(class, name, returnType string, params ...string) uint32 {
	return c.methods.Intern(MethodID{
		Class: c.InternType(class),
		Proto: c.InternProto(returnType, params...),
		Name:  c.InternString(name),
	})
}

// InternMethodHandle returns the method handle index for a kind and member index.
func (c *Container) InternMethodHandle(kind format.MethodHandleType, member uint32) uint32 {
	return c.methodHandles.Intern(MethodHandle{Kind: kind, Member: member})
}

// Shorty computes the short-form descriptor of a prototype: one character per
// type, with all reference and array types collapsed to 'L'.
func Shorty(returnType string, params ...string) string {
	var b strings.Builder
	b.Grow(1 + len(params))
	for _, t := range append([]string{returnType}, params...) {
		if t == "" {
			continue
		}
		switch t[0] {
		case 'L', '[':
			b.WriteByte('L')
		default:
			b.WriteByte(t[0])
		}
	}

	return b.String()
}

// TypeDescriptor resolves a type index to its descriptor string.
func (c *Container) TypeDescriptor(typeIdx uint32) (string, error) {
	t, err := c.types.Get(typeIdx)
	if err != nil {
		return "", fmt.Errorf("type: %w", err)
	}

	return c.strings.Get(t.Descriptor)
}

// TypeListDescriptors resolves a TypeLists index; NoIndex yields an empty list.
func (c *Container) TypeListDescriptors(listIdx uint32) ([]string, error) {
	if listIdx == NoIndex {
		return nil, nil
	}
	list, err := c.typeLists.Get(listIdx)
	if err != nil {
		return nil, fmt.Errorf("type list: %w", err)
	}
	out := make([]string, list.Len())
	for i := range out {
		if out[i], err = c.TypeDescriptor(list.At(i)); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// ProtoSignature renders a prototype as "(params)return".
func (c *Container) ProtoSignature(protoIdx uint32) (string, error) {
	p, err := c.protos.Get(protoIdx)
	if err != nil {
		return "", fmt.Errorf("proto: %w", err)
	}
	params, err := c.TypeListDescriptors(p.Parameters)
	if err != nil {
		return "", err
	}
	ret, err := c.TypeDescriptor(p.Return)
	if err != nil {
		return "", err
	}

	return "(" + strings.Join(params, "") + ")" + ret, nil
}

// FieldString renders a field reference as "Lclass;->name:type".
func (c *Container) FieldString(fieldIdx uint32) (string, error) {
	f, err := c.fields.Get(fieldIdx)
	if err != nil {
		return "", fmt.Errorf("field: %w", err)
	}
	class, err := c.TypeDescriptor(f.Class)
	if err != nil {
		return "", err
	}
	name, err := c.strings.Get(f.Name)
	if err != nil {
		return "", err
	}
	typ, err := c.TypeDescriptor(f.Type)
	if err != nil {
		return "", err
	}

	return class + "->" + name + ":" + typ, nil
}

// MethodString renders a method reference as "Lclass;->name(params)return".
func (c *Container) MethodString(methodIdx uint32) (string, error) {
	m, err := c.methods.Get(methodIdx)
	if err != nil {
		return "", fmt.Errorf("method: %w", err)
	}
	class, err := c.TypeDescriptor(m.Class)
	if err != nil {
		return "", err
	}
	name, err := c.strings.Get(m.Name)
	if err != nil {
		return "", err
	}
	sig, err := c.ProtoSignature(m.Proto)
	if err != nil {
		return "", err
	}

	return class + "->" + name + sig, nil
}
