// Package dexkit reads and writes Dalvik executable (dex) images.
//
// A dex image is decoded into a dex.Container: interned pools of strings,
// types, prototypes, fields, methods and method handles, plus the class
// definitions that reference them by index. The container can be inspected,
// edited and encoded back into a conforming image. Encoding canonicalizes
// mutated pools, lays out every section with the required alignment, shares
// byte-identical data items and finally writes the SHA-1 signature and
// Adler-32 checksum.
//
// # Core Features
//
//   - Versions 035, 037, 038, 039 and 040, little- and big-endian
//   - Deterministic encoding: the same model always yields the same bytes
//   - Pool canonicalization with a Remap describing old to new indices
//   - Deduplication of debug info, encoded arrays and annotation items
//   - Hidden API restriction flags, call sites, method handles and link data
//   - Multi-image archives with zstd, s2 or lz4 compression (archive package)
//   - Stable text listings and unified diffs (dump package)
//
// # Basic Usage
//
// Building a container from scratch:
//
//	c, _ := dexkit.New(dex.WithVersion(format.Version039))
//	cls := dex.NewClassDef(c.InternType("Lcom/example/Main;"), format.AccPublic)
//	cls.Superclass = c.InternType("Ljava/lang/Object;")
//	_ = c.AddClass(cls)
//
//	image, err := dexkit.Encode(c)
//
// Decoding and re-encoding an existing image:
//
//	c, err := dexkit.Decode(data, dex.WithVerifyIntegrity())
//	if errors.Is(err, errs.ErrIntegrityMismatch) {
//	    // c is still usable; the stored checksum or signature is stale
//	}
//
// # Package Structure
//
// This package provides thin wrappers around the dex and integrity packages
// for the common cases. Use those packages directly for finer control.
package dexkit

import (
	"fmt"

	"github.com/arloliu/dexkit/dex"
	"github.com/arloliu/dexkit/errs"
	"github.com/arloliu/dexkit/integrity"
	"github.com/arloliu/dexkit/section"
)

// New creates an empty container.
//
// Defaults are version 035, little-endian, no hidden API section.
//
// Example:
//
//	c, err := dexkit.New(dex.WithVersion(format.Version038), dex.WithHiddenAPI(true))
func New(opts ...dex.ContainerOption) (*dex.Container, error) {
	return dex.New(opts...)
}

// Decode parses a dex image into a container.
//
// Parameters:
//   - data: Complete dex image; bytes past the header's file_size are ignored
//   - opts: Decode options (dex.WithVerifyIntegrity)
//
// Returns:
//   - *dex.Container: Decoded container
//   - error: Decode failure, or ErrIntegrityMismatch together with a usable container
func Decode(data []byte, opts ...dex.DecodeOption) (*dex.Container, error) {
	return dex.Decode(data, opts...)
}

// Encode serializes a container into a new dex image.
//
// Available options:
//   - dex.WithDeduplication(true|false)
//   - dex.WithCanonicalize(true|false)
//   - dex.WithInstructionRewriter(fn)
//
// Encode may reorder the container's pools and members in place.
func Encode(c *dex.Container, opts ...dex.EncodeOption) ([]byte, error) {
	return dex.Encode(c, opts...)
}

// Rewrite decodes an image and encodes it again with the given options.
//
// The result has a canonical layout; running Rewrite on its own output
// returns identical bytes.
func Rewrite(data []byte, opts ...dex.EncodeOption) ([]byte, error) {
	c, err := dex.Decode(data)
	if err != nil {
		return nil, err
	}

	return dex.Encode(c, opts...)
}

// Verify recomputes the signature and checksum of an image.
//
// The byte order is taken from the header endian tag and only the first
// file_size bytes are hashed.
//
// Returns:
//   - *integrity.Report: Stored and computed values
//   - error: Header error, ErrTruncatedInput, or ErrIntegrityMismatch
func Verify(image []byte) (*integrity.Report, error) {
	hdr, err := section.ParseHeader(image)
	if err != nil {
		return nil, err
	}

	body, err := fileBody(image, hdr)
	if err != nil {
		return nil, err
	}

	return integrity.Verify(body, hdr.GetEndianEngine())
}

// Finalize rewrites the signature and checksum of an image in place, for
// callers that patched bytes of an encoded image directly.
func Finalize(image []byte) error {
	hdr, err := section.ParseHeader(image)
	if err != nil {
		return err
	}

	body, err := fileBody(image, hdr)
	if err != nil {
		return err
	}

	return integrity.Finalize(body, hdr.GetEndianEngine())
}

func fileBody(image []byte, hdr section.Header) ([]byte, error) {
	if uint64(hdr.FileSize) > uint64(len(image)) {
		return nil, fmt.Errorf("%w: file_size %d exceeds %d bytes", errs.ErrTruncatedInput, hdr.FileSize, len(image))
	}
	if hdr.FileSize < section.HeaderSize {
		return nil, fmt.Errorf("%w: file_size %d smaller than header", errs.ErrMalformedSection, hdr.FileSize)
	}

	return image[:hdr.FileSize], nil
}
