package dump

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/arloliu/dexkit/dex"
	"github.com/arloliu/dexkit/endian"
)

const insnsPerLine = 8

// Write renders c as a text listing.
//
// References that do not resolve are rendered as "#kind:index?" rather than
// failing, so a container rejected by Validate can still be inspected.
//
// Parameters:
//   - w: Destination of the listing
//   - c: Container to render
//
// Returns:
//   - error: Error from w
func Write(w io.Writer, c *dex.Container) error {
	_, err := io.WriteString(w, String(c))

	return err
}

// String returns the listing of c.
func String(c *dex.Container) string {
	p := &printer{c: c}
	p.container()

	return p.b.String()
}

type printer struct {
	c *dex.Container
	b strings.Builder
}

func (p *printer) line(depth int, format string, args ...any) {
	for range depth {
		p.b.WriteString("  ")
	}
	fmt.Fprintf(&p.b, format, args...)
	p.b.WriteByte('\n')
}

func (p *printer) container() {
	c := p.c
	order := "big-endian"
	if endian.IsLittleEndian(c.Endianness()) {
		order = "little-endian"
	}
	p.line(0, "dex %s %s hiddenapi=%t", c.Version(), order, c.HasHiddenAPI())

	p.line(0, "strings %d", c.Strings().Len())
	for i, s := range c.Strings().All() {
		p.line(1, "[%d] %s", i, strconv.Quote(s))
	}

	p.line(0, "types %d", c.Types().Len())
	for i := range c.Types().All() {
		p.line(1, "[%d] %s", i, p.typ(i))
	}

	p.line(0, "type_lists %d", c.TypeLists().Len())
	for i := range c.TypeLists().All() {
		p.line(1, "[%d] (%s)", i, p.typeList(i))
	}

	p.line(0, "protos %d", c.Protos().Len())
	for i, proto := range c.Protos().All() {
		p.line(1, "[%d] %s shorty=%s", i, p.proto(i), p.str(proto.Shorty))
	}

	p.line(0, "fields %d", c.Fields().Len())
	for i := range c.Fields().All() {
		p.line(1, "[%d] %s", i, p.field(i))
	}

	p.line(0, "methods %d", c.Methods().Len())
	for i := range c.Methods().All() {
		p.line(1, "[%d] %s", i, p.method(i))
	}

	p.line(0, "method_handles %d", c.MethodHandles().Len())
	for i := range c.MethodHandles().All() {
		p.line(1, "[%d] %s", i, p.methodHandle(i))
	}

	p.line(0, "call_sites %d", len(c.CallSites()))
	for i, cs := range c.CallSites() {
		p.line(1, "[%d] %s", i, p.array(cs))
	}

	p.line(0, "classes %d", len(c.Classes()))
	for _, cd := range c.Classes() {
		p.class(cd)
	}

	p.line(0, "link %d", len(c.Link()))
	if len(c.Link()) > 0 {
		p.line(1, "%x", c.Link())
	}
}

func (p *printer) class(cd *dex.ClassDef) {
	p.line(1, "class %s [%s]", p.typ(cd.Class), cd.AccessFlags)
	if cd.Superclass != dex.NoIndex {
		p.line(2, "super %s", p.typ(cd.Superclass))
	}
	if cd.Interfaces != dex.NoIndex {
		p.line(2, "interfaces (%s)", p.typeList(cd.Interfaces))
	}
	if cd.SourceFile != dex.NoIndex {
		p.line(2, "source %s", p.quoted(cd.SourceFile))
	}

	var statics []dex.Value
	if cd.StaticValues != nil {
		statics = cd.StaticValues.Values
	}
	for i, f := range cd.StaticFields {
		initial := ""
		if i < len(statics) {
			initial = " = " + p.value(statics[i])
		}
		p.line(2, "static %s [%s]%s%s", p.field(f.Field), f.AccessFlags, p.hiddenAPI(f.HiddenAPIFlags), initial)
	}
	for _, f := range cd.InstanceFields {
		p.line(2, "instance %s [%s]%s", p.field(f.Field), f.AccessFlags, p.hiddenAPI(f.HiddenAPIFlags))
	}
	for _, m := range cd.DirectMethods {
		p.member("direct", m)
	}
	for _, m := range cd.VirtualMethods {
		p.member("virtual", m)
	}

	if cd.Annotations != nil {
		p.directory(cd.Annotations)
	}
}

func (p *printer) hiddenAPI(flags uint32) string {
	if !p.c.HasHiddenAPI() {
		return ""
	}

	return " hiddenapi=" + strconv.FormatUint(uint64(flags), 10)
}

func (p *printer) member(kind string, m dex.EncodedMethod) {
	p.line(2, "%s %s [%s]%s", kind, p.method(m.Method), m.AccessFlags, p.hiddenAPI(m.HiddenAPIFlags))
	if m.Code == nil {
		return
	}

	code := m.Code
	p.line(3, "code registers=%d ins=%d outs=%d insns=%d tries=%d",
		code.Registers, code.Ins, code.Outs, len(code.Insns), len(code.Tries))
	for i := 0; i < len(code.Insns); i += insnsPerLine {
		words := code.Insns[i:min(i+insnsPerLine, len(code.Insns))]
		hex := make([]string, len(words))
		for j, w := range words {
			hex[j] = fmt.Sprintf("%04x", w)
		}
		p.line(4, "%04x: %s", i, strings.Join(hex, " "))
	}
	for _, t := range code.Tries {
		p.line(4, "try %04x..%04x%s", t.StartAddr, t.EndAddr(), p.handler(t.Handler))
	}

	if d := code.Debug; d != nil {
		names := make([]string, len(d.ParameterNames))
		for i, n := range d.ParameterNames {
			names[i] = p.optionalQuoted(n)
		}
		p.line(4, "debug line_start=%d params=(%s) ops=%d", d.LineStart, strings.Join(names, ", "), len(d.Ops))
		for _, pos := range d.Positions() {
			file := ""
			if pos.File != dex.NoIndex {
				file = " " + p.quoted(pos.File)
			}
			p.line(5, "%04x line %d%s", pos.Addr, pos.Line, file)
		}
	}
}

func (p *printer) handler(h dex.CatchHandler) string {
	var b strings.Builder
	for _, pair := range h.Handlers {
		fmt.Fprintf(&b, " catch %s -> %04x", p.typ(pair.Type), pair.Addr)
	}
	if h.HasCatchAll {
		fmt.Fprintf(&b, " catch-all -> %04x", h.CatchAllAddr)
	}

	return b.String()
}

func (p *printer) directory(d *dex.AnnotationsDirectory) {
	p.line(2, "annotations")
	if d.Class != nil {
		for _, a := range d.Class.Items {
			p.line(3, "class %s", p.annotation(a))
		}
	}
	for _, fa := range d.Fields {
		for _, a := range fa.Set.Items {
			p.line(3, "field %s %s", p.field(fa.Field), p.annotation(a))
		}
	}
	for _, ma := range d.Methods {
		for _, a := range ma.Set.Items {
			p.line(3, "method %s %s", p.method(ma.Method), p.annotation(a))
		}
	}
	for _, pa := range d.Parameters {
		for i, set := range pa.Sets {
			if set == nil {
				p.line(3, "parameter %s #%d none", p.method(pa.Method), i)
				continue
			}
			for _, a := range set.Items {
				p.line(3, "parameter %s #%d %s", p.method(pa.Method), i, p.annotation(a))
			}
		}
	}
}

func (p *printer) annotation(a dex.Annotation) string {
	return a.Visibility.String() + " " + p.encodedAnnotation(a.Value)
}

func (p *printer) encodedAnnotation(a dex.EncodedAnnotation) string {
	elems := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		elems[i] = p.str(e.Name) + "=" + p.value(e.Value)
	}

	return "@" + p.typ(a.Type) + "{" + strings.Join(elems, ", ") + "}"
}

func (p *printer) array(a *dex.EncodedArray) string {
	if a == nil {
		return "{}"
	}

	return p.values(a.Values)
}

func (p *printer) values(vals []dex.Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = p.value(v)
	}

	return "{" + strings.Join(parts, ", ") + "}"
}

func (p *printer) value(v dex.Value) string {
	switch v := v.(type) {
	case dex.ByteValue:
		return "byte " + strconv.FormatInt(int64(v), 10)
	case dex.ShortValue:
		return "short " + strconv.FormatInt(int64(v), 10)
	case dex.CharValue:
		return "char " + strconv.QuoteRune(rune(v))
	case dex.IntValue:
		return "int " + strconv.FormatInt(int64(v), 10)
	case dex.LongValue:
		return "long " + strconv.FormatInt(int64(v), 10)
	case dex.FloatValue:
		return "float " + strconv.FormatFloat(float64(v), 'g', -1, 32)
	case dex.DoubleValue:
		return "double " + strconv.FormatFloat(float64(v), 'g', -1, 64)
	case dex.MethodTypeValue:
		return "method-type " + p.proto(uint32(v))
	case dex.MethodHandleValue:
		return "method-handle " + p.methodHandle(uint32(v))
	case dex.StringValue:
		return p.quoted(uint32(v))
	case dex.TypeValue:
		return "type " + p.typ(uint32(v))
	case dex.FieldValue:
		return "field " + p.field(uint32(v))
	case dex.MethodValue:
		return "method " + p.method(uint32(v))
	case dex.EnumValue:
		return "enum " + p.field(uint32(v))
	case dex.ArrayValue:
		return p.values(v)
	case dex.AnnotationValue:
		return p.encodedAnnotation(dex.EncodedAnnotation(v))
	case dex.NullValue:
		return "null"
	case dex.BooleanValue:
		return strconv.FormatBool(bool(v))
	default:
		return fmt.Sprintf("<%T>", v)
	}
}

func unresolved(kind string, idx uint32) string {
	return "#" + kind + ":" + strconv.FormatUint(uint64(idx), 10) + "?"
}

func (p *printer) str(idx uint32) string {
	s, err := p.c.Strings().Get(idx)
	if err != nil {
		return unresolved("string", idx)
	}

	return s
}

func (p *printer) quoted(idx uint32) string {
	s, err := p.c.Strings().Get(idx)
	if err != nil {
		return unresolved("string", idx)
	}

	return strconv.Quote(s)
}

func (p *printer) optionalQuoted(idx uint32) string {
	if idx == dex.NoIndex {
		return "-"
	}

	return p.quoted(idx)
}

func (p *printer) typ(idx uint32) string {
	s, err := p.c.TypeDescriptor(idx)
	if err != nil {
		return unresolved("type", idx)
	}

	return s
}

func (p *printer) typeList(idx uint32) string {
	list, err := p.c.TypeLists().Get(idx)
	if err != nil {
		return unresolved("type_list", idx)
	}

	var b strings.Builder
	for _, t := range list.Types() {
		b.WriteString(p.typ(t))
	}

	return b.String()
}

func (p *printer) proto(idx uint32) string {
	s, err := p.c.ProtoSignature(idx)
	if err != nil {
		return unresolved("proto", idx)
	}

	return s
}

func (p *printer) field(idx uint32) string {
	s, err := p.c.FieldString(idx)
	if err != nil {
		return unresolved("field", idx)
	}

	return s
}

func (p *printer) method(idx uint32) string {
	s, err := p.c.MethodString(idx)
	if err != nil {
		return unresolved("method", idx)
	}

	return s
}

func (p *printer) methodHandle(idx uint32) string {
	h, err := p.c.MethodHandles().Get(idx)
	if err != nil {
		return unresolved("method_handle", idx)
	}
	if h.Kind.IsField() {
		return h.Kind.String() + " " + p.field(h.Member)
	}

	return h.Kind.String() + " " + p.method(h.Member)
}
