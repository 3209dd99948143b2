package searcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermutationIteratorEnumeratesOdometerOrder(t *testing.T) {
	it := NewPermutationIterator([]uint32{2, 3})

	var got [][]uint32
	for {
		perm, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, perm)
	}

	assert.Equal(t, [][]uint32{
		{0, 0}, {0, 1}, {0, 2},
		{1, 0}, {1, 1}, {1, 2},
	}, got)
}

func TestPermutationIteratorEmptyDimensionIsExhausted(t *testing.T) {
	it := NewPermutationIterator([]uint32{2, 0, 3})
	_, ok := it.Next()
	assert.False(t, ok)
}

func TestPermutationIteratorNoDimensions(t *testing.T) {
	it := NewPermutationIterator(nil)
	_, ok := it.Next()
	assert.False(t, ok)
}
