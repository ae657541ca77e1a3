package dump

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/arloliu/dexkit/dex"
	"github.com/arloliu/dexkit/format"
	"github.com/stretchr/testify/require"
)

const widget = "Lcom/example/Widget;"

// buildWidget creates a small container. reversed interns the pool entries
// in the opposite order so the pools differ until canonicalized.
func buildWidget(t *testing.T, reversed bool) *dex.Container {
	t.Helper()

	c, err := dex.New(dex.WithVersion(format.Version038), dex.WithHiddenAPI(true))
	require.NoError(t, err)

	var size, draw uint32
	if reversed {
		draw = c.InternMethod(widget, "draw", "V", "I")
		size = c.InternField(widget, "SIZE", "I")
	} else {
		size = c.InternField(widget, "SIZE", "I")
		draw = c.InternMethod(widget, "draw", "V", "I")
	}

	cls := dex.NewClassDef(c.InternType(widget), format.AccPublic|format.AccFinal)
	cls.Superclass = c.InternType("Ljava/lang/Object;")
	cls.SourceFile = c.InternString("Widget.java")
	cls.StaticFields = []dex.EncodedField{{Field: size, AccessFlags: format.AccStatic, HiddenAPIFlags: 1}}
	cls.StaticValues = &dex.EncodedArray{Values: []dex.Value{dex.IntValue(16)}}
	cls.VirtualMethods = []dex.EncodedMethod{{
		Method:      draw,
		AccessFlags: format.AccPublic,
		Code: &dex.Code{
			Registers: 2, Ins: 2,
			Insns: []uint16{0x0012, 0x0000, 0x000e},
			Tries: []dex.TryBlock{{StartAddr: 0, InsnCount: 2, Handler: dex.CatchHandler{HasCatchAll: true, CatchAllAddr: 2}}},
			Debug: &dex.DebugInfo{
				LineStart:      10,
				ParameterNames: []uint32{c.InternString("width")},
				Ops:            []dex.DebugOp{dex.SpecialOp{Value: 0x0e}},
			},
		},
	}}
	cls.Annotations = &dex.AnnotationsDirectory{
		Class: &dex.AnnotationSet{Items: []dex.Annotation{{
			Visibility: format.VisibilityRuntime,
			Value: dex.EncodedAnnotation{
				Type:     c.InternType("Lcom/example/Tag;"),
				Elements: []dex.AnnotationElement{{Name: c.InternString("value"), Value: dex.StringValue(c.InternString("ui"))}},
			},
		}}},
	}
	require.NoError(t, c.AddClass(cls))

	return c
}

// roundTrip encodes and decodes c, leaving the pools in canonical order.
func roundTrip(t *testing.T, c *dex.Container) *dex.Container {
	t.Helper()

	image, err := dex.Encode(c)
	require.NoError(t, err)
	got, err := dex.Decode(image)
	require.NoError(t, err)

	return got
}

func TestWrite_Minimal(t *testing.T) {
	c, err := dex.New()
	require.NoError(t, err)
	require.NoError(t, c.AddClass(dex.NewClassDef(c.InternType("LMinimal;"), format.AccPublic)))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, c))

	want := `dex 035 little-endian hiddenapi=false
strings 1
  [0] "LMinimal;"
types 1
  [0] LMinimal;
type_lists 0
protos 0
fields 0
methods 0
method_handles 0
call_sites 0
classes 1
  class LMinimal; [public]
link 0
`
	require.Equal(t, want, buf.String())
}

func TestString_Details(t *testing.T) {
	c := buildWidget(t, false)
	c.SetLink([]byte{0xca, 0xfe})
	out := String(c)

	for _, want := range []string{
		"dex 038 little-endian hiddenapi=true",
		"  class Lcom/example/Widget; [public final]",
		"    super Ljava/lang/Object;",
		`    source "Widget.java"`,
		"    static Lcom/example/Widget;->SIZE:I [static] hiddenapi=1 = int 16",
		"    virtual Lcom/example/Widget;->draw(I)V [public] hiddenapi=0",
		"      code registers=2 ins=2 outs=0 insns=3 tries=1",
		"        0000: 0012 0000 000e",
		"        try 0000..0002 catch-all -> 0002",
		`        debug line_start=10 params=("width") ops=1`,
		"          0000 line 10",
		`      class runtime @Lcom/example/Tag;{value="ui"}`,
		"link 2\n  cafe\n",
	} {
		require.Contains(t, out, want)
	}
}

func TestString_Unresolved(t *testing.T) {
	c, err := dex.New()
	require.NoError(t, err)
	cls := dex.NewClassDef(c.InternType("LBroken;"), 0)
	cls.Superclass = 42
	cls.SourceFile = 7
	require.NoError(t, c.AddClass(cls))

	out := String(c)
	require.Contains(t, out, "super #type:42?")
	require.Contains(t, out, "source #string:7?")
}

func TestString_IndependentOfPoolOrder(t *testing.T) {
	a := buildWidget(t, false)
	b := buildWidget(t, true)
	require.NotEqual(t, String(a), String(b))

	require.Equal(t, String(roundTrip(t, a)), String(roundTrip(t, b)))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWrite_WriterError(t *testing.T) {
	c, err := dex.New()
	require.NoError(t, err)
	require.ErrorContains(t, Write(failingWriter{}, c), "disk full")
}

func TestDiff(t *testing.T) {
	t.Run("identical", func(t *testing.T) {
		patch, err := Diff(buildWidget(t, false), buildWidget(t, false))
		require.NoError(t, err)
		require.Empty(t, patch)
	})

	t.Run("changed", func(t *testing.T) {
		before := roundTrip(t, buildWidget(t, false))
		after := roundTrip(t, buildWidget(t, false))
		after.Classes()[0].StaticValues.Values[0] = dex.IntValue(32)

		patch, err := Diff(before, after, WithNames("before.dex", "after.dex"), WithContext(1))
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(patch, "--- before.dex\n+++ after.dex\n"))
		require.Contains(t, patch, "-    static Lcom/example/Widget;->SIZE:I [static] hiddenapi=1 = int 16\n")
		require.Contains(t, patch, "+    static Lcom/example/Widget;->SIZE:I [static] hiddenapi=1 = int 32\n")
	})

	t.Run("negative_context", func(t *testing.T) {
		c := buildWidget(t, false)
		_, err := Diff(c, c, WithContext(-1))
		require.Error(t, err)
	})
}
