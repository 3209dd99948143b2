package difftracker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/lci/internal/coretypes"
)

func ord(v uint32) coretypes.CommitOrdinal { return coretypes.CommitOrdinal(v) }

func newTrackerFrom(lineEnd []int, owners []uint32) *Tracker {
	t := &Tracker{commitLineEnd: append([]int{}, lineEnd...)}
	for _, o := range owners {
		t.commitOrdinal = append(t.commitOrdinal, ord(o))
	}
	return t
}

func TestFindChunkIndex(t *testing.T) {
	tr := newTrackerFrom([]int{5, 8, 14, 21}, []uint32{1, 2, 1, 3})

	expected := []int{0, 0, 0, 0, 0, 1, 1, 1, 2, 2, 2, 2, 2, 2, 3, 3, 3, 3, 3, 3, 3, 4, 4}
	for pos := 0; pos <= 22; pos++ {
		assert.Equal(t, expected[pos], tr.findChunkIndex(pos), "pos=%d", pos)
	}

	empty := newTrackerFrom([]int{}, []uint32{})
	assert.Equal(t, 0, empty.findChunkIndex(0))
	assert.Equal(t, 0, empty.findChunkIndex(1))
}

func TestAddLines(t *testing.T) {
	tr := newTrackerFrom([]int{5, 8, 14, 21}, []uint32{1, 2, 1, 3})

	tr.AddLines(0, 3, ord(4))
	assert.Equal(t, []int{3, 8, 11, 17, 24}, tr.commitLineEnd)
	assert.Equal(t, []coretypes.CommitOrdinal{ord(4), ord(1), ord(2), ord(1), ord(3)}, tr.commitOrdinal)

	tr.AddLines(11, 2, ord(5))
	assert.Equal(t, []int{3, 8, 11, 13, 19, 26}, tr.commitLineEnd)
	assert.Equal(t, []coretypes.CommitOrdinal{ord(4), ord(1), ord(2), ord(5), ord(1), ord(3)}, tr.commitOrdinal)
}

func TestDeleteLines(t *testing.T) {
	tr := newTrackerFrom([]int{3, 8, 11, 13, 14, 24, 29, 36, 41}, []uint32{4, 1, 2, 5, 1, 6, 1, 3, 7})

	origins := tr.DeleteLines(7, 1)
	assert.Equal(t, []coretypes.CommitOrdinal{ord(1)}, origins)
	assert.Equal(t, []int{3, 7, 10, 12, 13, 23, 28, 35, 40}, tr.commitLineEnd)

	tr.DeleteLines(7, 3)
	assert.Equal(t, []int{3, 7, 9, 10, 20, 25, 32, 37}, tr.commitLineEnd)
	assert.Equal(t, []coretypes.CommitOrdinal{ord(4), ord(1), ord(5), ord(1), ord(6), ord(1), ord(3), ord(7)}, tr.commitOrdinal)
}
