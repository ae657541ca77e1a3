// Package endian provides the byte order engines used for the fixed-width
// fields of a dex image.
//
// A dex image is little-endian unless its header endian tag carries the
// reversed constant. The tag itself is always read little-endian, which lets a
// decoder pick the engine before reading anything else:
//
//	tag := binary.LittleEndian.Uint32(data[40:44])
//	engine, err := endian.EngineForTag(tag)
//	if err != nil {
//	    return err
//	}
//	fileSize := engine.Uint32(data[32:36])
//
// # Thread Safety
//
// All functions and methods in this package are safe for concurrent use.
// The returned EndianEngine instances are immutable and stateless.
package endian

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/dexkit/errs"
)

// Endian tag values stored at header offset 40.
const (
	EndianConstant        uint32 = 0x12345678
	ReverseEndianConstant uint32 = 0x78563412
)

// EndianEngine combines ByteOrder and AppendByteOrder interfaces from encoding/binary
// into a single interface for convenient byte order operations.
//
// This interface is satisfied by binary.LittleEndian and binary.BigEndian from
// the standard library.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}

// IsLittleEndian reports whether engine writes the least significant byte first.
func IsLittleEndian(engine EndianEngine) bool {
	return engine == GetLittleEndianEngine()
}

// EngineForTag selects the engine for a header endian tag read in little-endian order.
//
// Parameters:
//   - tag: Raw tag value decoded little-endian from header offset 40
//
// Returns:
//   - EndianEngine: Little-endian for EndianConstant, big-endian for ReverseEndianConstant
//   - error: ErrInvalidEndianTag for any other value
func EngineForTag(tag uint32) (EndianEngine, error) {
	switch tag {
	case EndianConstant:
		return GetLittleEndianEngine(), nil
	case ReverseEndianConstant:
		return GetBigEndianEngine(), nil
	default:
		return nil, fmt.Errorf("%w: 0x%08x", errs.ErrInvalidEndianTag, tag)
	}
}

// TagBytes returns the four tag bytes as they appear in an image written with engine.
func TagBytes(engine EndianEngine) []byte {
	return engine.AppendUint32(nil, EndianConstant)
}
