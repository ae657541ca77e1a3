// Package archive bundles several encoded dex images into one framed file.
//
// A multi-dex application ships classes.dex, classes2.dex and so on. An
// archive keeps them together, compresses each image with one codec from the
// compress package and records an xxHash64 of every uncompressed image so
// corruption is caught before the dex decoder sees the bytes.
//
// # Layout
//
// All integers are little-endian.
//
//	magic        "DXAR"
//	u16          format version (1)
//	u8           compression type (format.CompressionType)
//	u8           reserved, zero
//	u32          entry count
//	entries...   repeated count times:
//	    u16      name length
//	    bytes    name (UTF-8)
//	    u32      raw size
//	    u32      stored size
//	    u64      xxHash64 of the raw image
//	    bytes    stored image
//
// # Usage
//
//	w, err := archive.NewWriter(archive.WithCompression(format.CompressionZstd))
//	if err != nil {
//	    return err
//	}
//	if err := w.AddContainer("classes.dex", c); err != nil {
//	    return err
//	}
//	data, err := w.Bytes()
//
//	r, err := archive.Open(data)
//	if err != nil {
//	    return err
//	}
//	c, err := r.Decode("classes.dex")
package archive
