package dedup

import (
	"bytes"

	"github.com/arloliu/dexkit/internal/hash"
)

type block struct {
	data   []byte
	offset uint32
}

// Tracker remembers the offsets of data blocks already written to an image
// so byte-identical blocks can share one copy.
//
// Blocks are keyed by their xxHash64; equal hashes are confirmed with a byte
// comparison, so a hash collision never aliases two different blocks.
type Tracker struct {
	blocks       map[uint64][]block // Hash → written blocks with that hash
	count        int                // Number of distinct blocks tracked
	hits         int                // Number of successful lookups
	hasCollision bool               // Whether two different blocks shared a hash
}

// NewTracker creates a new dedup tracker.
func NewTracker() *Tracker {
	return &Tracker{
		blocks: make(map[uint64][]block),
	}
}

// Lookup returns the offset of a previously tracked block with the same bytes.
func (t *Tracker) Lookup(data []byte) (uint32, bool) {
	for _, b := range t.blocks[hash.Sum(data)] {
		if bytes.Equal(b.data, data) {
			t.hits++
			return b.offset, true
		}
	}

	return 0, false
}

// Track records that data was written at offset. The bytes are copied.
//
// Tracking the same bytes twice keeps the first offset.
func (t *Tracker) Track(data []byte, offset uint32) {
	key := hash.Sum(data)
	candidates := t.blocks[key]
	for _, b := range candidates {
		if bytes.Equal(b.data, data) {
			return
		}
	}
	if len(candidates) > 0 {
		t.hasCollision = true
	}

	t.blocks[key] = append(candidates, block{data: bytes.Clone(data), offset: offset})
	t.count++
}

// HasCollision returns true if two different blocks hashed to the same key.
func (t *Tracker) HasCollision() bool {
	return t.hasCollision
}

// Count returns the number of distinct blocks tracked.
func (t *Tracker) Count() int {
	return t.count
}

// Hits returns how many lookups found a shared block.
func (t *Tracker) Hits() int {
	return t.hits
}

// Reset clears all tracked blocks so the tracker can serve a new encode pass.
func (t *Tracker) Reset() {
	clear(t.blocks)
	t.count = 0
	t.hits = 0
	t.hasCollision = false
}
