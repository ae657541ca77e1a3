package section

import "math"

// NoIndex marks an absent optional index (superclass, source file, ...).
const NoIndex uint32 = math.MaxUint32

// Magic layout: "dex\n" followed by three version digits and a NUL.
const (
	MagicPrefix = "dex\n"
	MagicSize   = 8
)

// Header field offsets.
const (
	ChecksumOffset  = 8
	SignatureOffset = 12
	SignatureSize   = 20
	FileSizeOffset  = 32
	EndianTagOffset = 40
)

// Fixed sizes of header and id table entries in bytes.
const (
	HeaderSize       = 0x70
	StringIDSize     = 4
	TypeIDSize       = 4
	ProtoIDSize      = 12
	FieldIDSize      = 8
	MethodIDSize     = 8
	ClassDefSize     = 32
	CallSiteIDSize   = 4
	MethodHandleSize = 8
	MapItemSize      = 12
	TypeItemSize     = 2
	TryItemSize      = 8
	CodeItemHeader   = 16
)

// DataAlignment is the alignment of data_off and of every 4-byte aligned data section.
const DataAlignment = 4
