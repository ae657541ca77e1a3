// Package section defines the fixed-size binary records of a dex image.
//
// It covers the 0x70-byte header_item, the map_list directory and the
// fixed-width id table records (proto, field, method, class def and method
// handle items). Every record is parsed from and appended to byte slices
// through an endian.EndianEngine selected by the header endian tag.
//
// # Image Structure
//
//	┌──────────────────────────────────────────────┐
//	│ header_item (0x70 bytes)                     │
//	│  magic, checksum, signature, sizes, offsets  │
//	├──────────────────────────────────────────────┤
//	│ string_ids   (4 bytes each)                  │
//	│ type_ids     (4 bytes each)                  │
//	│ proto_ids    (12 bytes each)                 │
//	│ field_ids    (8 bytes each)                  │
//	│ method_ids   (8 bytes each)                  │
//	│ class_defs   (32 bytes each)                 │
//	│ call_site_ids, method_handles (038+)         │
//	├──────────────────────────────────────────────┤
//	│ data (4-byte aligned start)                  │
//	│  code, debug info, annotations, type lists,  │
//	│  class data, string data, ...                │
//	│  map_list (last)                             │
//	└──────────────────────────────────────────────┘
//
// Variable-size data items are handled by package dex; this package only
// knows their section type codes through package format.
package section
