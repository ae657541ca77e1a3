package dex

import (
	"fmt"
	"math"

	"github.com/arloliu/dexkit/encoding"
	"github.com/arloliu/dexkit/errs"
	"github.com/arloliu/dexkit/format"
)

func valueHeader(dst []byte, t format.ValueType, width int) []byte {
	return append(dst, byte(width-1)<<5|byte(t)) //nolint: gosec
}

func appendSignedValue(dst []byte, t format.ValueType, v int64) []byte {
	w := encoding.SignedWidth(v)
	return encoding.AppendSigned(valueHeader(dst, t, w), v, w)
}

func appendUnsignedValue(dst []byte, t format.ValueType, v uint64) []byte {
	w := encoding.UnsignedWidth(v)
	return encoding.AppendUnsigned(valueHeader(dst, t, w), v, w)
}

func appendFloatingValue(dst []byte, t format.ValueType, v uint64) []byte {
	w := encoding.RightZeroExtendedWidth(v)
	return encoding.AppendRightZeroExtended(valueHeader(dst, t, w), v, w)
}

// appendValue encodes v in its minimal width. Encoded values are always
// little-endian, whatever the endian tag says.
func appendValue(dst []byte, v Value) ([]byte, error) {
	switch tv := v.(type) {
	case ByteValue:
		return append(valueHeader(dst, format.ValueByte, 1), byte(tv)), nil
	case ShortValue:
		return appendSignedValue(dst, format.ValueShort, int64(tv)), nil
	case CharValue:
		return appendUnsignedValue(dst, format.ValueChar, uint64(tv)), nil
	case IntValue:
		return appendSignedValue(dst, format.ValueInt, int64(tv)), nil
	case LongValue:
		return appendSignedValue(dst, format.ValueLong, int64(tv)), nil
	case FloatValue:
		return appendFloatingValue(dst, format.ValueFloat, uint64(math.Float32bits(float32(tv)))<<32), nil
	case DoubleValue:
		return appendFloatingValue(dst, format.ValueDouble, math.Float64bits(float64(tv))), nil
	case MethodTypeValue, MethodHandleValue, StringValue, TypeValue, FieldValue, MethodValue, EnumValue:
		return appendUnsignedValue(dst, v.ValueType(), uint64(indexOf(v))), nil
	case ArrayValue:
		return appendArrayBody(valueHeader(dst, format.ValueArray, 1), tv)
	case AnnotationValue:
		return appendEncodedAnnotation(valueHeader(dst, format.ValueAnnotation, 1), EncodedAnnotation(tv))
	case NullValue:
		return valueHeader(dst, format.ValueNull, 1), nil
	case BooleanValue:
		w := 1
		if tv {
			w = 2
		}

		return valueHeader(dst, format.ValueBoolean, w), nil
	default:
		return nil, fmt.Errorf("%w: cannot encode value %T", errs.ErrMalformedSection, v)
	}
}

func indexOf(v Value) uint32 {
	switch tv := v.(type) {
	case MethodTypeValue:
		return uint32(tv)
	case MethodHandleValue:
		return uint32(tv)
	case StringValue:
		return uint32(tv)
	case TypeValue:
		return uint32(tv)
	case FieldValue:
		return uint32(tv)
	case MethodValue:
		return uint32(tv)
	case EnumValue:
		return uint32(tv)
	default:
		return 0
	}
}

func appendArrayBody(dst []byte, vals []Value) ([]byte, error) {
	dst = encoding.AppendUleb128(dst, uint32(len(vals))) //nolint: gosec
	var err error
	for _, v := range vals {
		if dst, err = appendValue(dst, v); err != nil {
			return nil, err
		}
	}

	return dst, nil
}

func appendEncodedAnnotation(dst []byte, a EncodedAnnotation) ([]byte, error) {
	dst = encoding.AppendUleb128(dst, a.Type)
	dst = encoding.AppendUleb128(dst, uint32(len(a.Elements))) //nolint: gosec
	var err error
	for _, e := range a.Elements {
		dst = encoding.AppendUleb128(dst, e.Name)
		if dst, err = appendValue(dst, e.Value); err != nil {
			return nil, err
		}
	}

	return dst, nil
}

// appendDebugInfo encodes a debug_info_item including the END_SEQUENCE byte.
func appendDebugInfo(dst []byte, d *DebugInfo) []byte {
	dst = encoding.AppendUleb128(dst, d.LineStart)
	dst = encoding.AppendUleb128(dst, uint32(len(d.ParameterNames))) //nolint: gosec
	for _, name := range d.ParameterNames {
		dst = encoding.AppendUleb128p1(dst, name)
	}

	for _, op := range d.Ops {
		if sp, ok := op.(SpecialOp); ok {
			dst = append(dst, sp.Value)
			continue
		}
		dst = append(dst, byte(op.Opcode()))
		switch o := op.(type) {
		case AdvancePC:
			dst = encoding.AppendUleb128(dst, o.AddrDiff)
		case AdvanceLine:
			dst = encoding.AppendSleb128(dst, o.LineDiff)
		case StartLocal:
			dst = encoding.AppendUleb128(dst, o.Register)
			dst = encoding.AppendUleb128p1(dst, o.Name)
			dst = encoding.AppendUleb128p1(dst, o.Type)
		case StartLocalExtended:
			dst = encoding.AppendUleb128(dst, o.Register)
			dst = encoding.AppendUleb128p1(dst, o.Name)
			dst = encoding.AppendUleb128p1(dst, o.Type)
			dst = encoding.AppendUleb128p1(dst, o.Signature)
		case EndLocal:
			dst = encoding.AppendUleb128(dst, o.Register)
		case RestartLocal:
			dst = encoding.AppendUleb128(dst, o.Register)
		case SetFile:
			dst = encoding.AppendUleb128p1(dst, o.Name)
		}
	}

	return append(dst, byte(format.DbgEndSequence))
}

// appendCatchHandler encodes one encoded_catch_handler.
func appendCatchHandler(dst []byte, h CatchHandler) []byte {
	size := int32(len(h.Handlers)) //nolint: gosec
	if h.HasCatchAll {
		size = -size
	}
	dst = encoding.AppendSleb128(dst, size)
	for _, p := range h.Handlers {
		dst = encoding.AppendUleb128(dst, p.Type)
		dst = encoding.AppendUleb128(dst, p.Addr)
	}
	if h.HasCatchAll {
		dst = encoding.AppendUleb128(dst, h.CatchAllAddr)
	}

	return dst
}
