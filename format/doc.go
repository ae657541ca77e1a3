// Package format defines the enumerations shared by the dexkit codec: container
// revisions, map list section types, encoded value types, debug info opcodes,
// access flags, annotation visibilities and method handle kinds.
//
// All enumerations carry the numeric values used on the wire, so they can be
// written directly into the binary image.
package format
