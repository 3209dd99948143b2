// Package bitset wraps roaring bitmaps with the set-algebra operations the
// indexer and searcher need over CommitOrdinals and FileIDs: union,
// intersection sorted ascending by cardinality, membership and min/max
// extraction.
package bitset

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/standardbeagle/lci/internal/coretypes"
)

// Set is a compressed, mutable set of uint32-sized ordinals (CommitOrdinal
// or FileID, both uint32 underneath).
type Set struct {
	bm *roaring.Bitmap
}

// New returns an empty Set.
func New() *Set {
	return &Set{bm: roaring.New()}
}

// FromValues builds a Set containing the given values.
func FromValues(values ...uint32) *Set {
	s := New()
	for _, v := range values {
		s.bm.Add(v)
	}
	return s
}

func (s *Set) Add(v uint32)       { s.bm.Add(v) }
func (s *Set) Remove(v uint32)    { s.bm.Remove(v) }
func (s *Set) Contains(v uint32) bool { return s.bm.Contains(v) }
func (s *Set) IsEmpty() bool      { return s.bm.IsEmpty() }
func (s *Set) Cardinality() uint64 { return s.bm.GetCardinality() }

// AddRange inserts every ordinal in [lo, hi] inclusive.
func (s *Set) AddRange(lo, hi uint32) {
	if hi < lo {
		return
	}
	s.bm.AddRange(uint64(lo), uint64(hi)+1)
}

// Min returns the smallest member and whether the set is non-empty.
func (s *Set) Min() (uint32, bool) {
	if s.bm.IsEmpty() {
		return 0, false
	}
	return s.bm.Minimum(), true
}

// Max returns the largest member and whether the set is non-empty.
func (s *Set) Max() (uint32, bool) {
	if s.bm.IsEmpty() {
		return 0, false
	}
	return s.bm.Maximum(), true
}

// Clone returns a deep copy.
func (s *Set) Clone() *Set {
	return &Set{bm: s.bm.Clone()}
}

// Or mutates s to be the union of s and other.
func (s *Set) Or(other *Set) {
	s.bm.Or(other.bm)
}

// And mutates s to be the intersection of s and other.
func (s *Set) And(other *Set) {
	s.bm.And(other.bm)
}

// ToArray returns the members in ascending order.
func (s *Set) ToArray() []uint32 {
	return s.bm.ToArray()
}

// CommitSet and FileSet are type-safe aliases over Set, used so call sites
// read as operating on CommitOrdinals or FileIDs rather than bare uint32s.
type CommitSet = Set
type FileSet = Set

func AddCommit(s *CommitSet, c coretypes.CommitOrdinal) { s.Add(uint32(c)) }
func AddFile(s *FileSet, f coretypes.FileID)            { s.Add(uint32(f)) }

// Intersect computes the intersection of all given sets by sorting inputs
// ascending by cardinality and folding left, short-circuiting as soon as
// the running intersection is empty. Returns an empty Set for zero inputs.
func Intersect(sets []*Set) *Set {
	if len(sets) == 0 {
		return New()
	}

	ordered := make([]*Set, len(sets))
	copy(ordered, sets)
	sortByCardinality(ordered)

	result := ordered[0].Clone()
	for _, s := range ordered[1:] {
		if result.IsEmpty() {
			break
		}
		result.And(s)
	}
	return result
}

// Union computes the union of all given sets.
func Union(sets []*Set) *Set {
	result := New()
	for _, s := range sets {
		result.Or(s)
	}
	return result
}

func sortByCardinality(sets []*Set) {
	// Insertion sort: N is small in practice (query word count / trigram
	// count per candidate), so this avoids pulling in sort for a handful
	// of elements.
	for i := 1; i < len(sets); i++ {
		for j := i; j > 0 && sets[j].Cardinality() < sets[j-1].Cardinality(); j-- {
			sets[j], sets[j-1] = sets[j-1], sets[j]
		}
	}
}
