package dex

import (
	"testing"

	"github.com/arloliu/dexkit/endian"
	"github.com/arloliu/dexkit/errs"
	"github.com/arloliu/dexkit/format"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	require.Equal(t, format.Version035, c.Version())
	require.True(t, endian.IsLittleEndian(c.Endianness()))
	require.False(t, c.HasHiddenAPI())
	require.False(t, c.Dirty())

	c, err = New(WithVersion(format.Version039), WithBigEndian(), WithHiddenAPI(true))
	require.NoError(t, err)
	require.Equal(t, format.Version039, c.Version())
	require.False(t, endian.IsLittleEndian(c.Endianness()))
	require.True(t, c.HasHiddenAPI())

	_, err = New(WithVersion(36))
	require.ErrorIs(t, err, errs.ErrUnsupportedVersion)

	require.ErrorIs(t, c.SetVersion(41), errs.ErrUnsupportedVersion)
	require.Equal(t, format.Version039, c.Version())
}

func TestShorty(t *testing.T) {
	tests := []struct {
		ret    string
		params []string
		want   string
	}{
		{"V", nil, "V"},
		{"I", []string{"I", "J"}, "IIJ"},
		{"Ljava/lang/String;", []string{"[I", "Z", "Ljava/lang/Object;"}, "LLZL"},
		{"[[D", []string{"C"}, "LC"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			require.Equal(t, tt.want, Shorty(tt.ret, tt.params...))
		})
	}
}

func TestContainer_Resolvers(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	field := c.InternField("LFoo;", "bar", "[I")
	method := c.InternMethod("LFoo;", "baz", "J", "I", "Ljava/lang/String;")
	noArgs := c.InternProto("V")

	s, err := c.FieldString(field)
	require.NoError(t, err)
	require.Equal(t, "LFoo;->bar:[I", s)

	s, err = c.MethodString(method)
	require.NoError(t, err)
	require.Equal(t, "LFoo;->baz(ILjava/lang/String;)J", s)

	s, err = c.ProtoSignature(noArgs)
	require.NoError(t, err)
	require.Equal(t, "()V", s)

	p, err := c.Protos().Get(noArgs)
	require.NoError(t, err)
	require.Equal(t, NoIndex, p.Parameters)
	shorty, err := c.Strings().Get(p.Shorty)
	require.NoError(t, err)
	require.Equal(t, "V", shorty)

	list, err := c.TypeListDescriptors(NoIndex)
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = c.TypeDescriptor(99)
	require.ErrorIs(t, err, errs.ErrIndexOutOfRange)
	_, err = c.MethodString(99)
	require.ErrorIs(t, err, errs.ErrIndexOutOfRange)
	_, err = c.FieldString(99)
	require.ErrorIs(t, err, errs.ErrIndexOutOfRange)
	_, err = c.TypeListDescriptors(99)
	require.ErrorIs(t, err, errs.ErrIndexOutOfRange)
}

func TestContainer_Classes(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	a := NewClassDef(c.InternType("LA;"), format.AccPublic)
	require.NoError(t, c.AddClass(a))
	require.ErrorIs(t, c.AddClass(NewClassDef(a.Class, 0)), errs.ErrDuplicateEntry)
	require.ErrorIs(t, c.AddClass(NewClassDef(42, 0)), errs.ErrIndexOutOfRange)

	b := NewClassDef(c.InternType("LB;"), 0)
	require.NoError(t, c.AddClass(b))

	got, err := c.Class(1)
	require.NoError(t, err)
	require.Same(t, b, got)
	_, err = c.Class(2)
	require.ErrorIs(t, err, errs.ErrIndexOutOfRange)

	found, ok := c.FindClass("LA;")
	require.True(t, ok)
	require.Same(t, a, found)
	_, ok = c.FindClass("LMissing;")
	require.False(t, ok)
	c.InternType("LDeclaredOnly;")
	_, ok = c.FindClass("LDeclaredOnly;")
	require.False(t, ok)

	require.NoError(t, c.RemoveClass(0))
	require.Len(t, c.Classes(), 1)
	require.ErrorIs(t, c.RemoveClass(3), errs.ErrIndexOutOfRange)
}

func TestContainer_SortClassesByHierarchy(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	child := NewClassDef(c.InternType("LChild;"), 0)
	child.Superclass = c.InternType("LParent;")
	child.Interfaces = c.InternTypeList("LIface;")
	parent := NewClassDef(c.InternType("LParent;"), 0)
	parent.Superclass = c.InternType("Ljava/lang/Object;")
	iface := NewClassDef(c.InternType("LIface;"), format.AccInterface|format.AccAbstract)
	other := NewClassDef(c.InternType("LOther;"), 0)

	for _, cd := range []*ClassDef{child, other, parent, iface} {
		require.NoError(t, c.AddClass(cd))
	}
	c.SortClassesByHierarchy()

	require.Equal(t, []*ClassDef{parent, iface, child, other}, c.Classes())
}

func TestClassDef_Clone(t *testing.T) {
	c := buildSample(t)
	orig := c.Classes()[0]
	clone := orig.Clone()
	require.Equal(t, orig, clone)

	clone.VirtualMethods[0].Code.Insns[0] = 0xffff
	clone.Annotations.Methods[0].Set.Items[0].Value.Elements[0].Value = NullValue{}
	clone.StaticValues.Values[0] = NullValue{}
	require.NotEqual(t, orig, clone)
	require.NotEqual(t, uint16(0xffff), orig.VirtualMethods[0].Code.Insns[0])
	require.NotEqual(t, NullValue{}, orig.StaticValues.Values[0])
}

func TestContainer_CallSitesAndLink(t *testing.T) {
	c, err := New(WithVersion(format.Version038))
	require.NoError(t, err)

	require.Equal(t, uint32(0), c.AddCallSite(&EncodedArray{}))
	require.Equal(t, uint32(1), c.AddCallSite(&EncodedArray{}))
	require.Len(t, c.CallSites(), 2)

	link := []byte{1, 2}
	c.SetLink(link)
	link[0] = 9
	require.Equal(t, []byte{1, 2}, c.Link())
}
