// Package encoding implements the primitive codecs of the dex format.
//
// It covers the variable-length integers (ULEB128, SLEB128 and ULEB128p1),
// the modified UTF-8 string encoding used by string_data_item, alignment
// helpers, the minimal-width payloads of encoded values, and a pair of
// cursors: Reader for bounds-checked decoding and Writer for appending to a
// pooled buffer.
//
// # Variable-length integers
//
// All LEB128 values in a dex image fit 32 bits and take 1 to 5 bytes. A value
// whose fifth byte still has the continuation bit set is rejected with
// errs.ErrMalformedVarint:
//
//	v, n, err := encoding.ReadUleb128(data)
//	buf = encoding.AppendSleb128(buf, -42)
//
// # Strings
//
// MUTF-8 differs from UTF-8 in two ways: U+0000 takes two bytes (0xC0 0x80)
// and supplementary code points are written as two 3-byte surrogates. The
// string_data_item length prefix counts UTF-16 code units, not bytes.
package encoding
