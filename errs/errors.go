// Package errs defines the sentinel errors returned by dexkit packages.
//
// Errors are wrapped with context at the call site using fmt.Errorf and the
// %w verb, so callers should match them with errors.Is:
//
//	c, err := dex.Decode(data)
//	if errors.Is(err, errs.ErrTruncatedInput) {
//	    // buffer shorter than the header claims
//	}
package errs

import "errors"

// Primitive codec errors.
var (
	// ErrMalformedVarint is returned when a LEB128 value does not terminate within 5 bytes.
	ErrMalformedVarint = errors.New("malformed variable-length integer")
	// ErrMalformedString is returned on an invalid MUTF-8 continuation byte or a truncated sequence.
	ErrMalformedString = errors.New("malformed MUTF-8 string")
	// ErrAlignment is returned when a structure does not start on its required boundary.
	ErrAlignment = errors.New("misaligned structure")
)

// Model errors.
var (
	// ErrIndexOutOfRange is returned when an index is not smaller than its pool's count.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrDuplicateEntry is returned when a decoded pool holds the same value twice.
	ErrDuplicateEntry = errors.New("duplicate pool entry")
)

// Container decode errors.
var (
	ErrTruncatedInput     = errors.New("truncated input")
	ErrUnsupportedVersion = errors.New("unsupported dex version")
	ErrInvalidHeaderSize  = errors.New("invalid header size")
	ErrInvalidEndianTag   = errors.New("invalid endian tag")
	ErrMalformedSection   = errors.New("malformed section")
	ErrInvalidOffset      = errors.New("invalid item offset")
)

// ErrIntegrityMismatch reports a stale checksum or signature. It is not fatal:
// decoders return it together with a usable container.
var ErrIntegrityMismatch = errors.New("integrity mismatch")

// Archive errors.
var (
	ErrInvalidArchive = errors.New("invalid archive")
	ErrHashMismatch   = errors.New("entry hash mismatch")
	ErrEntryNotFound  = errors.New("archive entry not found")
)
