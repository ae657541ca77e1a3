// Package integrity computes and verifies the two integrity fields of a dex
// header: the SHA-1 signature at offset 12 and the Adler-32 checksum at
// offset 8.
//
// The signature covers every byte from offset 32 to the end of the image; the
// checksum covers every byte from offset 12, so it includes the signature.
// Finalize therefore always writes the signature first.
package integrity

import (
	"bytes"
	"crypto/sha1" //nolint: gosec // the format mandates SHA-1
	"fmt"
	"hash/adler32"

	"github.com/arloliu/dexkit/endian"
	"github.com/arloliu/dexkit/errs"
	"github.com/arloliu/dexkit/section"
)

const signatureEnd = section.SignatureOffset + section.SignatureSize

// Report describes the stored and recomputed integrity values of an image.
type Report struct {
	StoredChecksum   uint32
	ComputedChecksum uint32
	StoredSignature  [section.SignatureSize]byte
	ComputedSig      [section.SignatureSize]byte
}

// ChecksumOK reports whether the stored Adler-32 matches.
func (r *Report) ChecksumOK() bool {
	return r.StoredChecksum == r.ComputedChecksum
}

// SignatureOK reports whether the stored SHA-1 matches.
func (r *Report) SignatureOK() bool {
	return r.StoredSignature == r.ComputedSig
}

// OK reports whether both values match.
func (r *Report) OK() bool {
	return r.ChecksumOK() && r.SignatureOK()
}

// Signature returns the SHA-1 over image[32:].
func Signature(image []byte) [section.SignatureSize]byte {
	return sha1.Sum(image[signatureEnd:]) //nolint: gosec
}

// Checksum returns the Adler-32 over image[12:].
func Checksum(image []byte) uint32 {
	return adler32.Checksum(image[section.SignatureOffset:])
}

// Finalize writes the signature and then the checksum into the header of image.
//
// Parameters:
//   - image: Complete image, at least HeaderSize bytes; modified in place
//   - engine: Endian engine the image was written with
//
// Returns:
//   - error: ErrTruncatedInput if image is shorter than a header
func Finalize(image []byte, engine endian.EndianEngine) error {
	if len(image) < section.HeaderSize {
		return fmt.Errorf("%w: image of %d bytes", errs.ErrTruncatedInput, len(image))
	}

	sig := Signature(image)
	copy(image[section.SignatureOffset:signatureEnd], sig[:])
	engine.PutUint32(image[section.ChecksumOffset:], Checksum(image))

	return nil
}

// Verify recomputes both values and compares them with the stored ones.
//
// Parameters:
//   - image: Complete image, at least HeaderSize bytes
//   - engine: Endian engine the image was written with
//
// Returns:
//   - *Report: Stored and computed values (nil only for a short image)
//   - error: ErrTruncatedInput for a short image, ErrIntegrityMismatch if either value differs
func Verify(image []byte, engine endian.EndianEngine) (*Report, error) {
	if len(image) < section.HeaderSize {
		return nil, fmt.Errorf("%w: image of %d bytes", errs.ErrTruncatedInput, len(image))
	}

	r := &Report{
		StoredChecksum:   engine.Uint32(image[section.ChecksumOffset:]),
		ComputedChecksum: Checksum(image),
		ComputedSig:      Signature(image),
	}
	copy(r.StoredSignature[:], image[section.SignatureOffset:signatureEnd])

	if !r.OK() {
		return r, fmt.Errorf("%w: checksum stored 0x%08x computed 0x%08x, signature match %t",
			errs.ErrIntegrityMismatch, r.StoredChecksum, r.ComputedChecksum,
			bytes.Equal(r.StoredSignature[:], r.ComputedSig[:]))
	}

	return r, nil
}
