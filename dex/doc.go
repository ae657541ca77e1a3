// Package dex holds the in-memory model of a dex image and its codec.
//
// A Container owns the index pools (strings, types, type lists, prototypes,
// fields, methods, method handles) and the structural model (class
// definitions, code bodies, debug info, annotations, encoded values). Every
// cross-reference is an index into a pool, never a pointer.
//
// Decode reads an image in one pass driven by the map list. Encode lays the
// model out again: pools that were mutated are rebuilt in canonical order,
// references are rewritten through a Remap, sections are placed with the
// required alignment, and the signature and checksum are computed last.
//
// Typical usage:
//
//	c, err := dex.New()
//	if err != nil {
//		return err
//	}
//	cls := dex.NewClassDef(c.InternType("Lcom/example/Foo;"), format.AccPublic)
//	cls.Superclass = c.InternType("Ljava/lang/Object;")
//	if err := c.AddClass(cls); err != nil {
//		return err
//	}
//	image, err := dex.Encode(c)
package dex
