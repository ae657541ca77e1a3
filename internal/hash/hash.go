// Package hash provides the 64-bit content hash used for data item
// deduplication and archive entry checksums.
package hash

import "github.com/cespare/xxhash/v2"

// Sum computes the xxHash64 of the given bytes.
func Sum(data []byte) uint64 {
	return xxhash.Sum64(data)
}
