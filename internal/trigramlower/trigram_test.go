package trigramlower

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitLongString(t *testing.T) {
	assertLiterals(t, splitLongString("a"), []string{"a"})
	assertLiterals(t, splitLongString("ab"), []string{"ab"})
	assertLiterals(t, splitLongString("abc"), []string{"abc"})
	assertLiterals(t, splitLongString("abcd"), []string{"abc", "bcd"})
}

func TestConcatSmall(t *testing.T) {
	one := trigramFromLiteral("a")
	two := trigramFromLiteral("bb")
	assert.Equal(t, "aa", concatSmall(one, one).literalString())
	assert.Equal(t, "bba", concatSmall(two, one).literalString())
}

func TestConcatLarge(t *testing.T) {
	two1 := trigramFromLiteral("bb")
	two2 := trigramFromLiteral("cc")
	assertLiterals(t, concat(two1, two2), []string{"bbc", "bcc"})
}

func TestMergeTrigrams(t *testing.T) {
	one := trigramFromLiteral("a")
	two1 := trigramFromLiteral("bb")
	two2 := trigramFromLiteral("cc")

	assertLiterals(t, mergeTrigrams([][]trigram{{one}, {two2}}), []string{"acc"})
	assertLiterals(t, mergeTrigrams([][]trigram{{two1}, {two2}}), []string{"bbc", "bcc"})
	assertLiterals(t, mergeTrigrams([][]trigram{{one}, {one}, {one}}), []string{"aaa"})
}

func TestLowerLiteralInclude(t *testing.T) {
	result, err := Lower("^#include")
	assert.NoError(t, err)
	assert.Equal(t, KindAll, result.Kind)
	assert.ElementsMatch(t, []string{"#in", "inc", "ncl", "clu", "lud", "ude"}, result.All)
}

func TestLowerDotStarIsAnyMatch(t *testing.T) {
	result, err := Lower(".*")
	assert.NoError(t, err)
	assert.Equal(t, KindAnyMatch, result.Kind)
}

func TestLowerAlternation(t *testing.T) {
	result, err := Lower("abcd|xyz")
	assert.NoError(t, err)
	assert.Equal(t, KindAny, result.Kind)
	assert.Len(t, result.Any, 2)
}

func TestLowerShortLiteralIsAnyMatch(t *testing.T) {
	// "ab" is shorter than a full trigram, so no trigram constraint can be
	// derived from it and the lowering degrades to AnyMatch.
	result, err := Lower("ab")
	assert.NoError(t, err)
	assert.Equal(t, KindAnyMatch, result.Kind)
	assert.Empty(t, result.All)
}

func assertLiterals(t *testing.T, trigrams []trigram, want []string) {
	t.Helper()
	got := make([]string, len(trigrams))
	for i, tg := range trigrams {
		got[i] = tg.literalString()
	}
	assert.Equal(t, want, got)
}
