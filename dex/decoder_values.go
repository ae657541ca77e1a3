package dex

import (
	"fmt"
	"math"

	"github.com/arloliu/dexkit/encoding"
	"github.com/arloliu/dexkit/errs"
	"github.com/arloliu/dexkit/format"
)

// maxValueDepth bounds nested arrays and annotations inside one encoded value.
const maxValueDepth = 64

type valueReader func(r *encoding.Reader, arg uint8, depth int) (Value, error)

// valueReaders dispatches on the low five bits of an encoded_value header.
var valueReaders map[format.ValueType]valueReader

func init() {
	valueReaders = map[format.ValueType]valueReader{
		format.ValueByte: func(r *encoding.Reader, arg uint8, _ int) (Value, error) {
			b, err := payload(r, arg, 1)
			return ByteValue(encoding.ParseSigned(b)), err
		},
		format.ValueShort: func(r *encoding.Reader, arg uint8, _ int) (Value, error) {
			b, err := payload(r, arg, 2)
			return ShortValue(encoding.ParseSigned(b)), err
		},
		format.ValueChar: func(r *encoding.Reader, arg uint8, _ int) (Value, error) {
			b, err := payload(r, arg, 2)
			return CharValue(encoding.ParseUnsigned(b)), err //nolint: gosec
		},
		format.ValueInt: func(r *encoding.Reader, arg uint8, _ int) (Value, error) {
			b, err := payload(r, arg, 4)
			return IntValue(encoding.ParseSigned(b)), err //nolint: gosec
		},
		format.ValueLong: func(r *encoding.Reader, arg uint8, _ int) (Value, error) {
			b, err := payload(r, arg, 8)
			return LongValue(encoding.ParseSigned(b)), err
		},
		format.ValueFloat: func(r *encoding.Reader, arg uint8, _ int) (Value, error) {
			b, err := payload(r, arg, 4)
			bits := uint32(encoding.ParseRightZeroExtended(b) >> 32) //nolint: gosec
			return FloatValue(math.Float32frombits(bits)), err
		},
		format.ValueDouble: func(r *encoding.Reader, arg uint8, _ int) (Value, error) {
			b, err := payload(r, arg, 8)
			return DoubleValue(math.Float64frombits(encoding.ParseRightZeroExtended(b))), err
		},
		format.ValueMethodType:   indexReader(func(i uint32) Value { return MethodTypeValue(i) }),
		format.ValueMethodHandle: indexReader(func(i uint32) Value { return MethodHandleValue(i) }),
		format.ValueString:       indexReader(func(i uint32) Value { return StringValue(i) }),
		format.ValueTypeRef:      indexReader(func(i uint32) Value { return TypeValue(i) }),
		format.ValueField:        indexReader(func(i uint32) Value { return FieldValue(i) }),
		format.ValueMethod:       indexReader(func(i uint32) Value { return MethodValue(i) }),
		format.ValueEnum:         indexReader(func(i uint32) Value { return EnumValue(i) }),
		format.ValueArray: func(r *encoding.Reader, arg uint8, depth int) (Value, error) {
			if arg != 0 {
				return nil, badValueArg(format.ValueArray, arg)
			}
			vals, err := readArrayBody(r, depth+1)

			return ArrayValue(vals), err
		},
		format.ValueAnnotation: func(r *encoding.Reader, arg uint8, depth int) (Value, error) {
			if arg != 0 {
				return nil, badValueArg(format.ValueAnnotation, arg)
			}
			a, err := readEncodedAnnotation(r, depth+1)

			return AnnotationValue(a), err
		},
		format.ValueNull: func(_ *encoding.Reader, arg uint8, _ int) (Value, error) {
			if arg != 0 {
				return nil, badValueArg(format.ValueNull, arg)
			}

			return NullValue{}, nil
		},
		format.ValueBoolean: func(_ *encoding.Reader, arg uint8, _ int) (Value, error) {
			if arg > 1 {
				return nil, badValueArg(format.ValueBoolean, arg)
			}

			return BooleanValue(arg == 1), nil
		},
	}
}

func badValueArg(t format.ValueType, arg uint8) error {
	return fmt.Errorf("%w: value %s with arg %d", errs.ErrMalformedSection, t, arg)
}

// payload reads the arg+1 byte payload of a fixed-width value, at most maxWidth bytes.
func payload(r *encoding.Reader, arg uint8, maxWidth int) ([]byte, error) {
	if int(arg)+1 > maxWidth {
		return nil, fmt.Errorf("%w: value width %d exceeds %d", errs.ErrMalformedSection, int(arg)+1, maxWidth)
	}

	return r.Bytes(int(arg) + 1)
}

func indexReader(wrap func(uint32) Value) valueReader {
	return func(r *encoding.Reader, arg uint8, _ int) (Value, error) {
		b, err := payload(r, arg, 4)
		if err != nil {
			return nil, err
		}

		return wrap(uint32(encoding.ParseUnsigned(b))), nil //nolint: gosec
	}
}

func readValue(r *encoding.Reader, depth int) (Value, error) {
	if depth > maxValueDepth {
		return nil, fmt.Errorf("%w: encoded value nested deeper than %d", errs.ErrMalformedSection, maxValueDepth)
	}
	header, err := r.U8()
	if err != nil {
		return nil, err
	}

	t := format.ValueType(header & 0x1f)
	read, ok := valueReaders[t]
	if !ok {
		return nil, fmt.Errorf("%w: unknown value type 0x%02x at 0x%x", errs.ErrMalformedSection, uint8(t), r.Pos()-1)
	}

	return read(r, header>>5, depth)
}

func readArrayBody(r *encoding.Reader, depth int) ([]Value, error) {
	size, err := r.Uleb128()
	if err != nil {
		return nil, err
	}
	// every value takes at least one byte
	if int64(size) > int64(r.Len()-r.Pos()) {
		return nil, fmt.Errorf("%w: array of %d values at 0x%x", errs.ErrTruncatedInput, size, r.Pos())
	}

	if size == 0 {
		return nil, nil
	}
	vals := make([]Value, size)
	for i := range vals {
		if vals[i], err = readValue(r, depth); err != nil {
			return nil, err
		}
	}

	return vals, nil
}

func readEncodedAnnotation(r *encoding.Reader, depth int) (EncodedAnnotation, error) {
	typeIdx, err := r.Uleb128()
	if err != nil {
		return EncodedAnnotation{}, err
	}
	size, err := r.Uleb128()
	if err != nil {
		return EncodedAnnotation{}, err
	}
	if int64(size)*2 > int64(r.Len()-r.Pos()) {
		return EncodedAnnotation{}, fmt.Errorf("%w: annotation with %d elements at 0x%x", errs.ErrTruncatedInput, size, r.Pos())
	}

	a := EncodedAnnotation{Type: typeIdx}
	if size > 0 {
		a.Elements = make([]AnnotationElement, size)
	}
	for i := range a.Elements {
		if a.Elements[i].Name, err = r.Uleb128(); err != nil {
			return EncodedAnnotation{}, err
		}
		if a.Elements[i].Value, err = readValue(r, depth); err != nil {
			return EncodedAnnotation{}, err
		}
	}

	return a, nil
}

type debugOpReader func(r *encoding.Reader) (DebugOp, error)

// debugOpReaders covers the fixed opcodes; values from DbgFirstSpecial up are special ops.
var debugOpReaders = map[format.DebugOpcode]debugOpReader{
	format.DbgAdvancePC: func(r *encoding.Reader) (DebugOp, error) {
		v, err := r.Uleb128()
		return AdvancePC{AddrDiff: v}, err
	},
	format.DbgAdvanceLine: func(r *encoding.Reader) (DebugOp, error) {
		v, err := r.Sleb128()
		return AdvanceLine{LineDiff: v}, err
	},
	format.DbgStartLocal: func(r *encoding.Reader) (DebugOp, error) {
		var op StartLocal
		err := readUlebs(r, &op.Register)
		if err == nil {
			err = readUlebp1s(r, &op.Name, &op.Type)
		}

		return op, err
	},
	format.DbgStartLocalExt: func(r *encoding.Reader) (DebugOp, error) {
		var op StartLocalExtended
		err := readUlebs(r, &op.Register)
		if err == nil {
			err = readUlebp1s(r, &op.Name, &op.Type, &op.Signature)
		}

		return op, err
	},
	format.DbgEndLocal: func(r *encoding.Reader) (DebugOp, error) {
		v, err := r.Uleb128()
		return EndLocal{Register: v}, err
	},
	format.DbgRestartLocal: func(r *encoding.Reader) (DebugOp, error) {
		v, err := r.Uleb128()
		return RestartLocal{Register: v}, err
	},
	format.DbgSetPrologueEnd:   func(*encoding.Reader) (DebugOp, error) { return SetPrologueEnd{}, nil },
	format.DbgSetEpilogueBegin: func(*encoding.Reader) (DebugOp, error) { return SetEpilogueBegin{}, nil },
	format.DbgSetFile: func(r *encoding.Reader) (DebugOp, error) {
		v, err := r.Uleb128p1()
		return SetFile{Name: v}, err
	},
}

func readUlebs(r *encoding.Reader, dst ...*uint32) error {
	for _, d := range dst {
		v, err := r.Uleb128()
		if err != nil {
			return err
		}
		*d = v
	}

	return nil
}

func readUlebp1s(r *encoding.Reader, dst ...*uint32) error {
	for _, d := range dst {
		v, err := r.Uleb128p1()
		if err != nil {
			return err
		}
		*d = v
	}

	return nil
}

// readDebugInfo decodes a debug_info_item at the cursor, up to and including END_SEQUENCE.
func readDebugInfo(r *encoding.Reader) (*DebugInfo, error) {
	d := &DebugInfo{}
	var err error
	if d.LineStart, err = r.Uleb128(); err != nil {
		return nil, err
	}
	n, err := r.Uleb128()
	if err != nil {
		return nil, err
	}
	if int64(n) > int64(r.Len()-r.Pos()) {
		return nil, fmt.Errorf("%w: %d parameter names at 0x%x", errs.ErrTruncatedInput, n, r.Pos())
	}
	if n > 0 {
		d.ParameterNames = make([]uint32, n)
	}
	for i := range d.ParameterNames {
		if d.ParameterNames[i], err = r.Uleb128p1(); err != nil {
			return nil, err
		}
	}

	for {
		b, err := r.U8()
		if err != nil {
			return nil, err
		}
		opcode := format.DebugOpcode(b)
		if opcode == format.DbgEndSequence {
			return d, nil
		}
		if opcode >= format.DbgFirstSpecial {
			d.Ops = append(d.Ops, SpecialOp{Value: b})
			continue
		}

		op, err := debugOpReaders[opcode](r)
		if err != nil {
			return nil, fmt.Errorf("debug %s: %w", opcode, err)
		}
		d.Ops = append(d.Ops, op)
	}
}
