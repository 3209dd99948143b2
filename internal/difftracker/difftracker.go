// Package difftracker maps a file's currently-live line numbers back to
// the commit ordinal that introduced them, and applies successive diff
// hunks to keep that mapping current.
//
// The mapping is stored run-length encoded: commitLineEnd[i] is the
// exclusive end line of the i-th chunk, commitOrdinals[i] is the ordinal
// that owns every line in that chunk. A line number is resolved to its
// chunk by binary search.
package difftracker

import (
	"sort"

	"github.com/standardbeagle/lci/internal/coretypes"
)

type Tracker struct {
	commitLineEnd []int
	commitOrdinal []coretypes.CommitOrdinal
}

// New creates a tracker for a file first seen at initCommit with
// totalLines lines, all attributed to initCommit.
func New(initCommit coretypes.CommitOrdinal, totalLines int) *Tracker {
	return &Tracker{
		commitLineEnd: []int{totalLines},
		commitOrdinal: []coretypes.CommitOrdinal{initCommit},
	}
}

// findChunkIndex returns the index of the chunk containing lineNum.
func (t *Tracker) findChunkIndex(lineNum int) int {
	pos := sort.Search(len(t.commitLineEnd), func(i int) bool {
		return t.commitLineEnd[i] >= lineNum
	})
	if pos < len(t.commitLineEnd) && t.commitLineEnd[pos] == lineNum {
		if pos+1 < len(t.commitLineEnd) {
			return pos + 1
		}
		return len(t.commitLineEnd)
	}
	return pos
}

func (t *Tracker) chunkStart(chunkIndex int) int {
	if chunkIndex == 0 {
		return 0
	}
	return t.commitLineEnd[chunkIndex-1]
}

// OriginOf returns the commit ordinal that owns lineNum in the current
// snapshot.
func (t *Tracker) OriginOf(lineNum int) coretypes.CommitOrdinal {
	idx := t.findChunkIndex(lineNum)
	if idx >= len(t.commitOrdinal) {
		idx = len(t.commitOrdinal) - 1
	}
	return t.commitOrdinal[idx]
}

// AddLines inserts numAdded new lines starting at insertStart (0-based, in
// the post-insertion coordinate space), attributed to commit.
func (t *Tracker) AddLines(insertStart, numAdded int, commit coretypes.CommitOrdinal) {
	if numAdded == 0 {
		return
	}

	chunkIndex := t.findChunkIndex(insertStart)
	if chunkIndex == len(t.commitLineEnd) {
		last := 0
		if len(t.commitLineEnd) > 0 {
			last = t.commitLineEnd[len(t.commitLineEnd)-1]
		}
		t.commitLineEnd = append(t.commitLineEnd, last+numAdded)
		t.commitOrdinal = append(t.commitOrdinal, commit)
		return
	}

	chunkStart := t.chunkStart(chunkIndex)
	if chunkStart == insertStart {
		t.commitLineEnd = insertAt(t.commitLineEnd, chunkIndex, chunkStart+numAdded)
		t.commitOrdinal = insertOrdinalAt(t.commitOrdinal, chunkIndex, commit)
		for i := chunkIndex + 1; i < len(t.commitLineEnd); i++ {
			t.commitLineEnd[i] += numAdded
		}
		return
	}

	prevLineEnd := t.commitLineEnd[chunkIndex]
	owner := t.commitOrdinal[chunkIndex]
	t.commitLineEnd[chunkIndex] = insertStart

	t.commitLineEnd = spliceInts(t.commitLineEnd, chunkIndex+1, chunkIndex+1,
		[]int{insertStart + numAdded, prevLineEnd + numAdded})
	t.commitOrdinal = spliceOrdinals(t.commitOrdinal, chunkIndex+1, chunkIndex+1,
		[]coretypes.CommitOrdinal{commit, owner})

	for i := chunkIndex + 3; i < len(t.commitLineEnd); i++ {
		t.commitLineEnd[i] += numAdded
	}
}

// DeleteLines removes numDeleted lines starting at deleteStart (0-based, in
// the pre-deletion coordinate space). Returns, for each removed line, its
// origin commit ordinal, in line order.
func (t *Tracker) DeleteLines(deleteStart, numDeleted int) []coretypes.CommitOrdinal {
	if numDeleted == 0 {
		return nil
	}

	origins := make([]coretypes.CommitOrdinal, numDeleted)
	for i := 0; i < numDeleted; i++ {
		origins[i] = t.OriginOf(deleteStart + i)
	}

	startIdx := t.findChunkIndex(deleteStart)
	endIdx := t.findChunkIndex(deleteStart + numDeleted - 1)

	shouldDeleteStart := t.chunkStart(startIdx) == deleteStart && t.commitLineEnd[startIdx] <= deleteStart+numDeleted
	shouldDeleteEnd := t.commitLineEnd[endIdx] == deleteStart+numDeleted && t.chunkStart(endIdx) >= deleteStart

	purgeStart := startIdx
	if !shouldDeleteStart {
		purgeStart = startIdx + 1
	}
	purgeEnd := endIdx
	if !shouldDeleteEnd {
		purgeEnd = endIdx - 1
	}

	numFromStart := min(t.commitLineEnd[startIdx], deleteStart+numDeleted) - deleteStart
	t.commitLineEnd[startIdx] -= numFromStart

	for i := startIdx + 1; i < len(t.commitLineEnd); i++ {
		t.commitLineEnd[i] -= numDeleted
	}

	if purgeStart <= purgeEnd {
		t.commitLineEnd = append(t.commitLineEnd[:purgeStart], t.commitLineEnd[purgeEnd+1:]...)
		t.commitOrdinal = append(t.commitOrdinal[:purgeStart], t.commitOrdinal[purgeEnd+1:]...)
	}

	return origins
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func insertAt(s []int, idx, v int) []int {
	s = append(s, 0)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

func insertOrdinalAt(s []coretypes.CommitOrdinal, idx int, v coretypes.CommitOrdinal) []coretypes.CommitOrdinal {
	s = append(s, 0)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

func spliceInts(s []int, from, to int, with []int) []int {
	tail := append([]int{}, s[to:]...)
	s = append(s[:from], with...)
	return append(s, tail...)
}

func spliceOrdinals(s []coretypes.CommitOrdinal, from, to int, with []coretypes.CommitOrdinal) []coretypes.CommitOrdinal {
	tail := append([]coretypes.CommitOrdinal{}, s[to:]...)
	s = append(s[:from], with...)
	return append(s, tail...)
}
