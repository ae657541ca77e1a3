package dex

import (
	"fmt"
	"iter"
	"slices"

	"github.com/arloliu/dexkit/errs"
)

// Pool is a dense, deduplicated, ordered collection referenced by index.
//
// Indices returned by Intern stay valid until the pool is rebuilt by
// Container.Canonicalize (which Encode runs when any pool is dirty).
type Pool[T comparable] struct {
	items  []T
	lookup map[T]uint32
	dirty  bool
}

// NewPool creates an empty pool.
func NewPool[T comparable]() *Pool[T] {
	return &Pool[T]{lookup: make(map[T]uint32)}
}

// Intern returns the index of v, appending it if the pool does not hold it yet.
// Appending marks the pool dirty.
func (p *Pool[T]) Intern(v T) uint32 {
	if idx, ok := p.lookup[v]; ok {
		return idx
	}

	idx := uint32(len(p.items)) //nolint: gosec
	p.items = append(p.items, v)
	p.lookup[v] = idx
	p.dirty = true

	return idx
}

// Get returns the entry at idx.
//
// Returns:
//   - T: Entry value
//   - error: ErrIndexOutOfRange if idx >= Len()
func (p *Pool[T]) Get(idx uint32) (T, error) {
	if uint64(idx) >= uint64(len(p.items)) {
		var zero T
		return zero, fmt.Errorf("%w: %d >= %d", errs.ErrIndexOutOfRange, idx, len(p.items))
	}

	return p.items[idx], nil
}

// Set replaces the entry at idx, keeping every reference to idx pointing at
// the new value. Replacing marks the pool dirty.
//
// Returns:
//   - error: ErrIndexOutOfRange for a bad index, ErrDuplicateEntry if v is
//     already stored at another index
func (p *Pool[T]) Set(idx uint32, v T) error {
	old, err := p.Get(idx)
	if err != nil {
		return err
	}
	if other, ok := p.lookup[v]; ok {
		if other == idx {
			return nil
		}

		return fmt.Errorf("%w: value already at index %d", errs.ErrDuplicateEntry, other)
	}

	delete(p.lookup, old)
	p.items[idx] = v
	p.lookup[v] = idx
	p.dirty = true

	return nil
}

// Lookup returns the index of v without inserting it.
func (p *Pool[T]) Lookup(v T) (uint32, bool) {
	idx, ok := p.lookup[v]
	return idx, ok
}

// Len returns the number of entries.
func (p *Pool[T]) Len() int {
	return len(p.items)
}

// Contains reports whether idx addresses an entry.
func (p *Pool[T]) Contains(idx uint32) bool {
	return uint64(idx) < uint64(len(p.items))
}

// All iterates over (index, entry) pairs in index order.
func (p *Pool[T]) All() iter.Seq2[uint32, T] {
	return func(yield func(uint32, T) bool) {
		for i, v := range p.items {
			if !yield(uint32(i), v) { //nolint: gosec
				return
			}
		}
	}
}

// Values returns a copy of the entries in index order.
func (p *Pool[T]) Values() []T {
	return slices.Clone(p.items)
}

// Dirty reports whether the pool changed since it was decoded or canonicalized.
func (p *Pool[T]) Dirty() bool {
	return p.dirty
}

// add appends a decoded entry in file order. Decoded pools must not repeat values.
func (p *Pool[T]) add(v T) (uint32, error) {
	if idx, ok := p.lookup[v]; ok {
		return 0, fmt.Errorf("%w: entry %d repeats entry %d", errs.ErrDuplicateEntry, len(p.items), idx)
	}
	idx := uint32(len(p.items)) //nolint: gosec
	p.items = append(p.items, v)
	p.lookup[v] = idx

	return idx, nil
}

// rebuild rewrites every entry with rewrite (which must be injective), sorts
// the entries with cmp when it is not nil, and returns the old to new index
// table. The pool is clean afterwards.
func (p *Pool[T]) rebuild(rewrite func(T) T, cmp func(a, b T) int) []uint32 {
	type slot struct {
		old uint32
		v   T
	}

	slots := make([]slot, len(p.items))
	for i, v := range p.items {
		if rewrite != nil {
			v = rewrite(v)
		}
		slots[i] = slot{old: uint32(i), v: v} //nolint: gosec
	}
	if cmp != nil {
		slices.SortStableFunc(slots, func(a, b slot) int { return cmp(a.v, b.v) })
	}

	remap := make([]uint32, len(slots))
	clear(p.lookup)
	for i, s := range slots {
		idx := uint32(i) //nolint: gosec
		p.items[i] = s.v
		p.lookup[s.v] = idx
		remap[s.old] = idx
	}
	p.dirty = false

	return remap
}
