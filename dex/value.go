package dex

import "github.com/arloliu/dexkit/format"

// Value is an encoded_value. The set of implementations is closed; each
// variant corresponds to one format.ValueType.
type Value interface {
	ValueType() format.ValueType
	isValue()
}

type (
	ByteValue         int8
	ShortValue        int16
	CharValue         uint16
	IntValue          int32
	LongValue         int64
	FloatValue        float32
	DoubleValue       float64
	MethodTypeValue   uint32 // proto index
	MethodHandleValue uint32 // method handle index
	StringValue       uint32 // string index
	TypeValue         uint32 // type index
	FieldValue        uint32 // field index
	MethodValue       uint32 // method index
	EnumValue         uint32 // field index of the enum constant
	ArrayValue        []Value
	AnnotationValue   EncodedAnnotation
	NullValue         struct{}
	BooleanValue      bool
)

func (ByteValue) ValueType() format.ValueType         { return format.ValueByte }
func (ShortValue) ValueType() format.ValueType        { return format.ValueShort }
func (CharValue) ValueType() format.ValueType         { return format.ValueChar }
func (IntValue) ValueType() format.ValueType          { return format.ValueInt }
func (LongValue) ValueType() format.ValueType         { return format.ValueLong }
func (FloatValue) ValueType() format.ValueType        { return format.ValueFloat }
func (DoubleValue) ValueType() format.ValueType       { return format.ValueDouble }
func (MethodTypeValue) ValueType() format.ValueType   { return format.ValueMethodType }
func (MethodHandleValue) ValueType() format.ValueType { return format.ValueMethodHandle }
func (StringValue) ValueType() format.ValueType       { return format.ValueString }
func (TypeValue) ValueType() format.ValueType         { return format.ValueTypeRef }
func (FieldValue) ValueType() format.ValueType        { return format.ValueField }
func (MethodValue) ValueType() format.ValueType       { return format.ValueMethod }
func (EnumValue) ValueType() format.ValueType         { return format.ValueEnum }
func (ArrayValue) ValueType() format.ValueType        { return format.ValueArray }
func (AnnotationValue) ValueType() format.ValueType   { return format.ValueAnnotation }
func (NullValue) ValueType() format.ValueType         { return format.ValueNull }
func (BooleanValue) ValueType() format.ValueType      { return format.ValueBoolean }

func (ByteValue) isValue()         {}
func (ShortValue) isValue()        {}
func (CharValue) isValue()         {}
func (IntValue) isValue()          {}
func (LongValue) isValue()         {}
func (FloatValue) isValue()        {}
func (DoubleValue) isValue()       {}
func (MethodTypeValue) isValue()   {}
func (MethodHandleValue) isValue() {}
func (StringValue) isValue()       {}
func (TypeValue) isValue()         {}
func (FieldValue) isValue()        {}
func (MethodValue) isValue()       {}
func (EnumValue) isValue()         {}
func (ArrayValue) isValue()        {}
func (AnnotationValue) isValue()   {}
func (NullValue) isValue()         {}
func (BooleanValue) isValue()      {}

// EncodedArray is an encoded_array_item: static field initial values or a call site.
type EncodedArray struct {
	Values []Value
}

// Clone returns a deep copy of the array.
func (a *EncodedArray) Clone() *EncodedArray {
	if a == nil {
		return nil
	}

	return &EncodedArray{Values: cloneValues(a.Values)}
}

func cloneValues(vals []Value) []Value {
	if vals == nil {
		return nil
	}
	out := make([]Value, len(vals))
	for i, v := range vals {
		out[i] = cloneValue(v)
	}

	return out
}

// cloneValue copies the nested containers; scalar variants are immutable.
func cloneValue(v Value) Value {
	switch tv := v.(type) {
	case ArrayValue:
		return ArrayValue(cloneValues(tv))
	case AnnotationValue:
		return AnnotationValue(EncodedAnnotation(tv).Clone())
	default:
		return v
	}
}
