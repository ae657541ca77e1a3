package encoding

// AlignUp rounds n up to the next multiple of alignment, which must be a power of two.
func AlignUp(n, alignment int) int {
	return (n + alignment - 1) &^ (alignment - 1)
}

// IsAligned reports whether n is a multiple of alignment.
func IsAligned(n, alignment int) bool {
	return n&(alignment-1) == 0
}
