package searcher

// PermutationIterator enumerates every combination of one index per
// dimension, in lexicographic (odometer) order, over a family of
// independently-sized candidate sets. Used both to walk every concrete
// token assignment that could witness a trigram-lowered regex and, in the
// literal path, every combination of ambiguous short-token resolutions.
type PermutationIterator struct {
	sizes []uint32
	next  []uint32
	done  bool
}

// NewPermutationIterator builds an iterator over the given dimension
// sizes. An iterator over zero dimensions, or one where any dimension has
// size zero, is immediately exhausted.
func NewPermutationIterator(sizes []uint32) *PermutationIterator {
	it := &PermutationIterator{sizes: append([]uint32{}, sizes...)}
	it.next = make([]uint32, len(sizes))
	for _, s := range sizes {
		if s == 0 {
			it.done = true
			break
		}
	}
	if len(sizes) == 0 {
		it.done = true
	}
	return it
}

// Next returns the next permutation and true, or (nil, false) once
// exhausted.
func (it *PermutationIterator) Next() ([]uint32, bool) {
	if it.done {
		return nil, false
	}

	result := append([]uint32{}, it.next...)

	i := len(it.sizes) - 1
	for i >= 0 {
		it.next[i]++
		if it.next[i] < it.sizes[i] {
			break
		}
		it.next[i] = 0
		i--
	}
	if i < 0 {
		it.done = true
	}

	return result, true
}
