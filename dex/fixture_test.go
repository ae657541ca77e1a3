package dex

import (
	"testing"

	"github.com/arloliu/dexkit/endian"
	"github.com/arloliu/dexkit/format"
	"github.com/stretchr/testify/require"
)

const fooClass = "Lcom/example/Foo;"

// buildSample creates a container touching every structure the codec knows:
// static values, code with tries and debug info, annotations of every kind,
// call sites, method handles, hidden API flags and link data.
func buildSample(tb testing.TB, opts ...ContainerOption) *Container {
	tb.Helper()

	base := []ContainerOption{WithVersion(format.Version038), WithHiddenAPI(true)}
	c, err := New(append(base, opts...)...)
	require.NoError(tb, err)

	str := c.InternString
	object := c.InternType("Ljava/lang/Object;")
	foo := c.InternType(fooClass)
	ioException := c.InternType("Ljava/io/IOException;")
	anno := c.InternType("Lcom/example/Marker;")
	nested := c.InternType("Lcom/example/Nested;")

	countField := c.InternField(fooClass, "COUNT", "I")
	nameField := c.InternField(fooClass, "NAME", "Ljava/lang/String;")
	valueField := c.InternField(fooClass, "value", "J")

	initMethod := c.InternMethod(fooClass, "<init>", "V")
	runMethod := c.InternMethod(fooClass, "run", "V")
	computeMethod := c.InternMethod(fooClass, "compute", "I", "I")
	nativeMethod := c.InternMethod(fooClass, "peek", "Ljava/lang/String;", "[B", "Z")
	c.InternMethod("Ljava/lang/Object;", "<init>", "V")

	cls := NewClassDef(foo, format.AccPublic)
	cls.Superclass = object
	cls.Interfaces = c.InternTypeList("Ljava/lang/Runnable;")
	cls.SourceFile = str("Foo.java")

	cls.StaticFields = []EncodedField{
		{Field: nameField, AccessFlags: format.AccStatic, HiddenAPIFlags: 2},
		{Field: countField, AccessFlags: format.AccPublic | format.AccStatic | format.AccFinal, HiddenAPIFlags: 1},
	}
	cls.StaticValues = &EncodedArray{Values: []Value{StringValue(str("hello")), IntValue(42)}}
	cls.InstanceFields = []EncodedField{{Field: valueField, AccessFlags: format.AccPrivate}}

	cls.DirectMethods = []EncodedMethod{{
		Method:      initMethod,
		AccessFlags: format.AccPublic | format.AccConstructor,
		Code: &Code{
			Registers: 1, Ins: 1, Outs: 1,
			Insns: []uint16{0x1070, 0x0000, 0x0000, 0x000e},
			Debug: &DebugInfo{
				LineStart: 3,
				Ops:       []DebugOp{SetPrologueEnd{}, SpecialOp{Value: 0x0e}, AdvancePC{AddrDiff: 3}, SpecialOp{Value: 0x0f}},
			},
		},
	}}

	handler := CatchHandler{Handlers: []TypeAddrPair{{Type: ioException, Addr: 2}}}
	cls.VirtualMethods = []EncodedMethod{
		{
			Method:         runMethod,
			AccessFlags:    format.AccPublic,
			HiddenAPIFlags: 3,
			Code: &Code{
				Registers: 2, Ins: 1,
				Insns: []uint16{0x0012, 0x0000, 0x000e},
				Tries: []TryBlock{
					{StartAddr: 0, InsnCount: 1, Handler: handler},
					{StartAddr: 1, InsnCount: 1, Handler: handler},
					{StartAddr: 2, InsnCount: 1, Handler: CatchHandler{HasCatchAll: true, CatchAllAddr: 2}},
				},
				Debug: &DebugInfo{
					LineStart: 20,
					Ops: []DebugOp{
						StartLocal{Register: 1, Name: str("this"), Type: foo},
						AdvanceLine{LineDiff: -5},
						SetFile{Name: str("Other.java")},
						StartLocalExtended{Register: 0, Name: str("items"), Type: object, Signature: str("TT;")},
						StartLocal{Register: 0, Name: NoIndex, Type: NoIndex},
						EndLocal{Register: 0},
						RestartLocal{Register: 0},
						SetEpilogueBegin{},
						SpecialOp{Value: 0x20},
					},
				},
			},
		},
		{
			Method:      computeMethod,
			AccessFlags: format.AccPublic | format.AccFinal,
			Code: &Code{
				Registers: 2, Ins: 2,
				Insns: []uint16{0x000f},
				Debug: &DebugInfo{LineStart: 30, ParameterNames: []uint32{str("x")}, Ops: []DebugOp{SpecialOp{Value: 0x0e}}},
			},
		},
		{Method: nativeMethod, AccessFlags: format.AccPublic | format.AccNative},
	}

	cls.Annotations = &AnnotationsDirectory{
		Class: &AnnotationSet{Items: []Annotation{
			{Visibility: format.VisibilityRuntime, Value: EncodedAnnotation{Type: c.InternType("Ljava/lang/Deprecated;")}},
		}},
		Fields: []FieldAnnotation{{Field: countField, Set: AnnotationSet{Items: []Annotation{
			{Visibility: format.VisibilityBuild, Value: EncodedAnnotation{Type: anno}},
		}}}},
		Methods: []MethodAnnotation{{Method: runMethod, Set: AnnotationSet{Items: []Annotation{{
			Visibility: format.VisibilityRuntime,
			Value: EncodedAnnotation{Type: anno, Elements: []AnnotationElement{
				{Name: str("value"), Value: StringValue(str("v"))},
				{Name: str("count"), Value: IntValue(-7)},
				{Name: str("values"), Value: ArrayValue{
					TypeValue(foo), EnumValue(countField), FieldValue(valueField), MethodValue(runMethod),
					BooleanValue(true), BooleanValue(false), NullValue{},
					DoubleValue(1.5), FloatValue(-2), LongValue(1 << 40), CharValue('x'),
					ShortValue(-300), ByteValue(-1), IntValue(0x7fffffff),
				}},
				{Name: str("nested"), Value: AnnotationValue{Type: nested, Elements: []AnnotationElement{
					{Name: str("value"), Value: IntValue(1)},
				}}},
			}},
		}}}}},
		Parameters: []ParameterAnnotation{{Method: computeMethod, Sets: []*AnnotationSet{
			{Items: []Annotation{{Visibility: format.VisibilitySystem, Value: EncodedAnnotation{Type: anno}}}},
		}}},
	}
	require.NoError(tb, c.AddClass(cls))

	bar := NewClassDef(c.InternType("Lcom/example/Bar;"), format.AccFinal)
	bar.Superclass = foo
	require.NoError(tb, c.AddClass(bar))

	handle := c.InternMethodHandle(format.MethodHandleInvokeStatic, computeMethod)
	c.InternMethodHandle(format.MethodHandleStaticGet, countField)
	c.AddCallSite(&EncodedArray{Values: []Value{
		MethodHandleValue(handle),
		StringValue(str("apply")),
		MethodTypeValue(c.InternProto("I", "I")),
	}})

	c.SetLink([]byte{0xde, 0xad, 0xbe, 0xef, 0x01})

	return c
}

// requireSameModel compares two containers field by field.
func requireSameModel(t *testing.T, want, got *Container) {
	t.Helper()

	require.Equal(t, want.Version(), got.Version())
	require.Equal(t, endian.IsLittleEndian(want.Endianness()), endian.IsLittleEndian(got.Endianness()))
	require.Equal(t, want.Strings().Values(), got.Strings().Values())
	require.Equal(t, want.Types().Values(), got.Types().Values())
	require.Equal(t, want.TypeLists().Values(), got.TypeLists().Values())
	require.Equal(t, want.Protos().Values(), got.Protos().Values())
	require.Equal(t, want.Fields().Values(), got.Fields().Values())
	require.Equal(t, want.Methods().Values(), got.Methods().Values())
	require.Equal(t, want.MethodHandles().Values(), got.MethodHandles().Values())
	require.Equal(t, want.CallSites(), got.CallSites())
	require.Equal(t, want.Classes(), got.Classes())
	require.Equal(t, want.Link(), got.Link())
	require.Equal(t, want.HasHiddenAPI(), got.HasHiddenAPI())
}

// buildMinimal creates a container with one empty class and no superclass.
func buildMinimal(tb testing.TB) *Container {
	tb.Helper()

	c, err := New()
	require.NoError(tb, err)
	require.NoError(tb, c.AddClass(NewClassDef(c.InternType("LMinimal;"), format.AccPublic)))

	return c
}
