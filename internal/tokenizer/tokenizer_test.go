package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/lci/internal/coretypes"
)

func TestIndexLinesTrigram(t *testing.T) {
	lines := []string{"", "a", "ab", "abc", "1234", "56789"}

	result := IndexLines(coretypes.ModeTrigram, lines, 0)

	expected := map[coretypes.Token][]int{
		"abc": {3},
		"123": {4},
		"234": {4},
		"567": {5},
		"678": {5},
		"789": {5},
	}
	assert.Equal(t, expected, result.Lines)
}

func TestIndexLinesWord(t *testing.T) {
	lines := []string{"foo_bar(baz, 123)"}

	result := IndexLines(coretypes.ModeWord, lines, 0)

	assert.ElementsMatch(t, []coretypes.Token{"foo_bar", "baz", "123"}, keys(result.Lines))
}

func TestPresentationColumns(t *testing.T) {
	tokens := Presentation(coretypes.ModeWord, []string{"hello world"}, 10)

	assert.Equal(t, []PresentationToken{
		{Token: "hello", Line: 10, Column: 0},
		{Token: "world", Line: 10, Column: 6},
	}, tokens)
}

func keys(m map[coretypes.Token][]int) []coretypes.Token {
	out := make([]coretypes.Token, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
