package section

import "github.com/arloliu/dexkit/endian"

// ProtoIDItem is a proto_id_item: shorty string, return type, parameter type list offset.
type ProtoIDItem struct {
	ShortyIdx     uint32
	ReturnTypeIdx uint32
	ParametersOff uint32
}

// Parse decodes the item from b, which must hold ProtoIDSize bytes.
func (p *ProtoIDItem) Parse(b []byte, engine endian.EndianEngine) {
	p.ShortyIdx = engine.Uint32(b[0:4])
	p.ReturnTypeIdx = engine.Uint32(b[4:8])
	p.ParametersOff = engine.Uint32(b[8:12])
}

// Append appends the encoded item to dst.
func (p *ProtoIDItem) Append(dst []byte, engine endian.EndianEngine) []byte {
	dst = engine.AppendUint32(dst, p.ShortyIdx)
	dst = engine.AppendUint32(dst, p.ReturnTypeIdx)

	return engine.AppendUint32(dst, p.ParametersOff)
}

// MemberIDItem is the shared layout of field_id_item and method_id_item:
// class_idx u16, type or proto idx u16, name_idx u32.
type MemberIDItem struct {
	ClassIdx uint16
	// TypeOrProtoIdx is the field type for fields and the prototype for methods.
	TypeOrProtoIdx uint16
	NameIdx        uint32
}

func (m *MemberIDItem) Parse(b []byte, engine endian.EndianEngine) {
	m.ClassIdx = engine.Uint16(b[0:2])
	m.TypeOrProtoIdx = engine.Uint16(b[2:4])
	m.NameIdx = engine.Uint32(b[4:8])
}

func (m *MemberIDItem) Append(dst []byte, engine endian.EndianEngine) []byte {
	dst = engine.AppendUint16(dst, m.ClassIdx)
	dst = engine.AppendUint16(dst, m.TypeOrProtoIdx)

	return engine.AppendUint32(dst, m.NameIdx)
}

// ClassDefItem is a class_def_item. Absent indices are NoIndex, absent offsets 0.
type ClassDefItem struct {
	ClassIdx        uint32
	AccessFlags     uint32
	SuperclassIdx   uint32
	InterfacesOff   uint32
	SourceFileIdx   uint32
	AnnotationsOff  uint32
	ClassDataOff    uint32
	StaticValuesOff uint32
}

func (c *ClassDefItem) Parse(b []byte, engine endian.EndianEngine) {
	c.ClassIdx = engine.Uint32(b[0:4])
	c.AccessFlags = engine.Uint32(b[4:8])
	c.SuperclassIdx = engine.Uint32(b[8:12])
	c.InterfacesOff = engine.Uint32(b[12:16])
	c.SourceFileIdx = engine.Uint32(b[16:20])
	c.AnnotationsOff = engine.Uint32(b[20:24])
	c.ClassDataOff = engine.Uint32(b[24:28])
	c.StaticValuesOff = engine.Uint32(b[28:32])
}

func (c *ClassDefItem) Append(dst []byte, engine endian.EndianEngine) []byte {
	for _, v := range [...]uint32{
		c.ClassIdx, c.AccessFlags, c.SuperclassIdx, c.InterfacesOff,
		c.SourceFileIdx, c.AnnotationsOff, c.ClassDataOff, c.StaticValuesOff,
	} {
		dst = engine.AppendUint32(dst, v)
	}

	return dst
}

// MethodHandleItem is a method_handle_item: type u16, unused u16, field or method idx u16, unused u16.
type MethodHandleItem struct {
	Type      uint16
	MemberIdx uint16
}

func (m *MethodHandleItem) Parse(b []byte, engine endian.EndianEngine) {
	m.Type = engine.Uint16(b[0:2])
	m.MemberIdx = engine.Uint16(b[4:6])
}

func (m *MethodHandleItem) Append(dst []byte, engine endian.EndianEngine) []byte {
	dst = engine.AppendUint16(dst, m.Type)
	dst = engine.AppendUint16(dst, 0)
	dst = engine.AppendUint16(dst, m.MemberIdx)

	return engine.AppendUint16(dst, 0)
}
