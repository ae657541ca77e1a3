package format

import (
	"strconv"
	"strings"
)

type (
	Version          uint16
	SectionType      uint16
	ValueType        uint8
	DebugOpcode      uint8
	AccessFlags      uint32
	Visibility       uint8
	MethodHandleType uint16
	CompressionType  uint8
)

// Supported container revisions. The value is the three-digit version
// carried in the magic after "dex\n".
const (
	Version035 Version = 35
	Version037 Version = 37
	Version038 Version = 38
	Version039 Version = 39
	Version040 Version = 40

	DefaultVersion = Version035
)

// Map list item types.
const (
	SectionHeader               SectionType = 0x0000
	SectionStringID             SectionType = 0x0001
	SectionTypeID               SectionType = 0x0002
	SectionProtoID              SectionType = 0x0003
	SectionFieldID              SectionType = 0x0004
	SectionMethodID             SectionType = 0x0005
	SectionClassDef             SectionType = 0x0006
	SectionCallSiteID           SectionType = 0x0007
	SectionMethodHandle         SectionType = 0x0008
	SectionMapList              SectionType = 0x1000
	SectionTypeList             SectionType = 0x1001
	SectionAnnotationSetRefList SectionType = 0x1002
	SectionAnnotationSet        SectionType = 0x1003
	SectionClassData            SectionType = 0x2000
	SectionCode                 SectionType = 0x2001
	SectionStringData           SectionType = 0x2002
	SectionDebugInfo            SectionType = 0x2003
	SectionAnnotation           SectionType = 0x2004
	SectionEncodedArray         SectionType = 0x2005
	SectionAnnotationsDirectory SectionType = 0x2006
	SectionHiddenAPIClassData   SectionType = 0xF000
)

// Encoded value types (low five bits of the value header byte).
const (
	ValueByte         ValueType = 0x00
	ValueShort        ValueType = 0x02
	ValueChar         ValueType = 0x03
	ValueInt          ValueType = 0x04
	ValueLong         ValueType = 0x06
	ValueFloat        ValueType = 0x10
	ValueDouble       ValueType = 0x11
	ValueMethodType   ValueType = 0x15
	ValueMethodHandle ValueType = 0x16
	ValueString       ValueType = 0x17
	ValueTypeRef      ValueType = 0x18
	ValueField        ValueType = 0x19
	ValueMethod       ValueType = 0x1a
	ValueEnum         ValueType = 0x1b
	ValueArray        ValueType = 0x1c
	ValueAnnotation   ValueType = 0x1d
	ValueNull         ValueType = 0x1e
	ValueBoolean      ValueType = 0x1f
)

// Debug info state machine opcodes.
const (
	DbgEndSequence      DebugOpcode = 0x00
	DbgAdvancePC        DebugOpcode = 0x01
	DbgAdvanceLine      DebugOpcode = 0x02
	DbgStartLocal       DebugOpcode = 0x03
	DbgStartLocalExt    DebugOpcode = 0x04
	DbgEndLocal         DebugOpcode = 0x05
	DbgRestartLocal     DebugOpcode = 0x06
	DbgSetPrologueEnd   DebugOpcode = 0x07
	DbgSetEpilogueBegin DebugOpcode = 0x08
	DbgSetFile          DebugOpcode = 0x09
	DbgFirstSpecial     DebugOpcode = 0x0a

	DbgLineBase  = -4
	DbgLineRange = 15
)

// Access flags for classes, fields and methods. Some bits mean different
// things depending on the member kind (volatile/bridge, transient/varargs).
const (
	AccPublic               AccessFlags = 0x1
	AccPrivate              AccessFlags = 0x2
	AccProtected            AccessFlags = 0x4
	AccStatic               AccessFlags = 0x8
	AccFinal                AccessFlags = 0x10
	AccSynchronized         AccessFlags = 0x20
	AccVolatile             AccessFlags = 0x40
	AccBridge               AccessFlags = 0x40
	AccTransient            AccessFlags = 0x80
	AccVarargs              AccessFlags = 0x80
	AccNative               AccessFlags = 0x100
	AccInterface            AccessFlags = 0x200
	AccAbstract             AccessFlags = 0x400
	AccStrict               AccessFlags = 0x800
	AccSynthetic            AccessFlags = 0x1000
	AccAnnotation           AccessFlags = 0x2000
	AccEnum                 AccessFlags = 0x4000
	AccConstructor          AccessFlags = 0x10000
	AccDeclaredSynchronized AccessFlags = 0x20000
)

// Annotation visibilities.
const (
	VisibilityBuild   Visibility = 0x00
	VisibilityRuntime Visibility = 0x01
	VisibilitySystem  Visibility = 0x02
)

// Method handle kinds.
const (
	MethodHandleStaticPut         MethodHandleType = 0x00
	MethodHandleStaticGet         MethodHandleType = 0x01
	MethodHandleInstancePut       MethodHandleType = 0x02
	MethodHandleInstanceGet       MethodHandleType = 0x03
	MethodHandleInvokeStatic      MethodHandleType = 0x04
	MethodHandleInvokeInstance    MethodHandleType = 0x05
	MethodHandleInvokeConstructor MethodHandleType = 0x06
	MethodHandleInvokeDirect      MethodHandleType = 0x07
	MethodHandleInvokeInterface   MethodHandleType = 0x08
)

// Archive payload compression.
const (
	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
)

// IsSupported reports whether v is a revision this module reads and writes.
func (v Version) IsSupported() bool {
	switch v {
	case Version035, Version037, Version038, Version039, Version040:
		return true
	default:
		return false
	}
}

// String returns the three-digit magic form, e.g. "035".
func (v Version) String() string {
	s := strconv.Itoa(int(v))
	for len(s) < 3 {
		s = "0" + s
	}

	return s
}

func (t SectionType) String() string {
	switch t {
	case SectionHeader:
		return "header_item"
	case SectionStringID:
		return "string_id_item"
	case SectionTypeID:
		return "type_id_item"
	case SectionProtoID:
		return "proto_id_item"
	case SectionFieldID:
		return "field_id_item"
	case SectionMethodID:
		return "method_id_item"
	case SectionClassDef:
		return "class_def_item"
	case SectionCallSiteID:
		return "call_site_id_item"
	case SectionMethodHandle:
		return "method_handle_item"
	case SectionMapList:
		return "map_list"
	case SectionTypeList:
		return "type_list"
	case SectionAnnotationSetRefList:
		return "annotation_set_ref_list"
	case SectionAnnotationSet:
		return "annotation_set_item"
	case SectionClassData:
		return "class_data_item"
	case SectionCode:
		return "code_item"
	case SectionStringData:
		return "string_data_item"
	case SectionDebugInfo:
		return "debug_info_item"
	case SectionAnnotation:
		return "annotation_item"
	case SectionEncodedArray:
		return "encoded_array_item"
	case SectionAnnotationsDirectory:
		return "annotations_directory_item"
	case SectionHiddenAPIClassData:
		return "hiddenapi_class_data_item"
	default:
		return "Unknown"
	}
}

// Alignment returns the byte alignment required for items of this section.
func (t SectionType) Alignment() int {
	switch t {
	case SectionHeader, SectionStringID, SectionTypeID, SectionProtoID, SectionFieldID,
		SectionMethodID, SectionClassDef, SectionCallSiteID, SectionMethodHandle,
		SectionMapList, SectionTypeList, SectionAnnotationSetRefList, SectionAnnotationSet,
		SectionCode, SectionAnnotationsDirectory, SectionHiddenAPIClassData:
		return 4
	default:
		return 1
	}
}

func (t ValueType) String() string {
	switch t {
	case ValueByte:
		return "Byte"
	case ValueShort:
		return "Short"
	case ValueChar:
		return "Char"
	case ValueInt:
		return "Int"
	case ValueLong:
		return "Long"
	case ValueFloat:
		return "Float"
	case ValueDouble:
		return "Double"
	case ValueMethodType:
		return "MethodType"
	case ValueMethodHandle:
		return "MethodHandle"
	case ValueString:
		return "String"
	case ValueTypeRef:
		return "Type"
	case ValueField:
		return "Field"
	case ValueMethod:
		return "Method"
	case ValueEnum:
		return "Enum"
	case ValueArray:
		return "Array"
	case ValueAnnotation:
		return "Annotation"
	case ValueNull:
		return "Null"
	case ValueBoolean:
		return "Boolean"
	default:
		return "Unknown"
	}
}

func (o DebugOpcode) String() string {
	switch o {
	case DbgEndSequence:
		return "END_SEQUENCE"
	case DbgAdvancePC:
		return "ADVANCE_PC"
	case DbgAdvanceLine:
		return "ADVANCE_LINE"
	case DbgStartLocal:
		return "START_LOCAL"
	case DbgStartLocalExt:
		return "START_LOCAL_EXTENDED"
	case DbgEndLocal:
		return "END_LOCAL"
	case DbgRestartLocal:
		return "RESTART_LOCAL"
	case DbgSetPrologueEnd:
		return "SET_PROLOGUE_END"
	case DbgSetEpilogueBegin:
		return "SET_EPILOGUE_BEGIN"
	case DbgSetFile:
		return "SET_FILE"
	default:
		return "SPECIAL"
	}
}

// Has reports whether all bits of mask are set.
func (f AccessFlags) Has(mask AccessFlags) bool {
	return f&mask == mask
}

var accessFlagNames = []struct {
	flag AccessFlags
	name string
}{
	{AccPublic, "public"},
	{AccPrivate, "private"},
	{AccProtected, "protected"},
	{AccStatic, "static"},
	{AccFinal, "final"},
	{AccSynchronized, "synchronized"},
	{AccVolatile, "volatile|bridge"},
	{AccTransient, "transient|varargs"},
	{AccNative, "native"},
	{AccInterface, "interface"},
	{AccAbstract, "abstract"},
	{AccStrict, "strict"},
	{AccSynthetic, "synthetic"},
	{AccAnnotation, "annotation"},
	{AccEnum, "enum"},
	{AccConstructor, "constructor"},
	{AccDeclaredSynchronized, "declared-synchronized"},
}

// String lists the set flag names separated by spaces, followed by any
// unknown bits in hex.
func (f AccessFlags) String() string {
	var parts []string
	rest := f
	for _, n := range accessFlagNames {
		if f&n.flag != 0 {
			parts = append(parts, n.name)
			rest &^= n.flag
		}
	}
	if rest != 0 {
		parts = append(parts, "0x"+strconv.FormatUint(uint64(rest), 16))
	}

	return strings.Join(parts, " ")
}

func (v Visibility) String() string {
	switch v {
	case VisibilityBuild:
		return "build"
	case VisibilityRuntime:
		return "runtime"
	case VisibilitySystem:
		return "system"
	default:
		return "Unknown"
	}
}

// IsField reports whether the handle references a field rather than a method.
func (t MethodHandleType) IsField() bool {
	return t <= MethodHandleInstanceGet
}

func (t MethodHandleType) String() string {
	switch t {
	case MethodHandleStaticPut:
		return "static-put"
	case MethodHandleStaticGet:
		return "static-get"
	case MethodHandleInstancePut:
		return "instance-put"
	case MethodHandleInstanceGet:
		return "instance-get"
	case MethodHandleInvokeStatic:
		return "invoke-static"
	case MethodHandleInvokeInstance:
		return "invoke-instance"
	case MethodHandleInvokeConstructor:
		return "invoke-constructor"
	case MethodHandleInvokeDirect:
		return "invoke-direct"
	case MethodHandleInvokeInterface:
		return "invoke-interface"
	default:
		return "Unknown"
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}
