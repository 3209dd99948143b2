// Package tokenizer splits a text blob into tokens for indexing or for
// presentation. Two modes are supported, fixed at index-construction time:
// word mode (maximal runs of [A-Za-z0-9_]) and trigram mode (overlapping
// 3-byte windows within a single line).
package tokenizer

import (
	"github.com/standardbeagle/lci/internal/coretypes"
)

// IndexResult maps each token to the set of line numbers (0-based, deduped)
// on which it appears. This is the shape Document.AddWords consumes.
type IndexResult struct {
	Lines map[coretypes.Token][]int
}

// PresentationToken is a single (token, line, byte-column) triple, used by
// the snippet materialiser to locate highlight positions.
type PresentationToken struct {
	Token  coretypes.Token
	Line   int
	Column int
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '_'
}

// SplitLines splits a blob into lines without retaining the trailing
// newline, matching the diff tracker's line numbering (origin-line is a
// 0-based index into this slice).
func SplitLines(blob []byte) []string {
	var lines []string
	start := 0
	for i := 0; i < len(blob); i++ {
		if blob[i] == '\n' {
			lines = append(lines, string(blob[start:i]))
			start = i + 1
		}
	}
	if start < len(blob) {
		lines = append(lines, string(blob[start:]))
	}
	return lines
}

// IndexLines tokenises a set of already-split lines for indexing, starting
// line numbering at lineStart (used when only a hunk's added lines are
// being tokenised rather than a whole file).
func IndexLines(mode coretypes.TokenMode, lines []string, lineStart int) IndexResult {
	result := IndexResult{Lines: make(map[coretypes.Token][]int)}
	seen := make(map[coretypes.Token]map[int]bool)

	add := func(tok coretypes.Token, line int) {
		lineSet, ok := seen[tok]
		if !ok {
			lineSet = make(map[int]bool)
			seen[tok] = lineSet
		}
		if !lineSet[line] {
			lineSet[line] = true
			result.Lines[tok] = append(result.Lines[tok], line)
		}
	}

	for i, line := range lines {
		lineNum := lineStart + i
		switch mode {
		case coretypes.ModeWord:
			forEachWord(line, func(tok string, _ int) { add(coretypes.Token(tok), lineNum) })
		case coretypes.ModeTrigram:
			forEachTrigram(line, func(tok string, _ int) { add(coretypes.Token(tok), lineNum) })
		}
	}
	return result
}

// Presentation tokenises lines for snippet highlighting, emitting
// every (token, column) occurrence rather than deduping per line.
func Presentation(mode coretypes.TokenMode, lines []string, lineStart int) []PresentationToken {
	var out []PresentationToken
	for i, line := range lines {
		lineNum := lineStart + i
		switch mode {
		case coretypes.ModeWord:
			forEachWord(line, func(tok string, col int) {
				out = append(out, PresentationToken{Token: coretypes.Token(tok), Line: lineNum, Column: col})
			})
		case coretypes.ModeTrigram:
			forEachTrigram(line, func(tok string, col int) {
				out = append(out, PresentationToken{Token: coretypes.Token(tok), Line: lineNum, Column: col})
			})
		}
	}
	return out
}

// SplitQueryWords splits a literal search query on the same [A-Za-z0-9_]
// word-class boundaries the word-mode tokeniser uses, regardless of the
// index's own token mode.
func SplitQueryWords(query string) []string {
	var out []string
	forEachWord(query, func(tok string, _ int) { out = append(out, tok) })
	return out
}

// forEachWord calls fn for every maximal run of [A-Za-z0-9_] bytes in line,
// along with its starting byte column.
func forEachWord(line string, fn func(tok string, col int)) {
	start := -1
	for i := 0; i < len(line); i++ {
		if isWordByte(line[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			fn(line[start:i], start)
			start = -1
		}
	}
	if start >= 0 {
		fn(line[start:], start)
	}
}

// forEachTrigram calls fn for every contiguous 3-byte window in line. Lines
// shorter than 3 bytes yield nothing, per spec.
func forEachTrigram(line string, fn func(tok string, col int)) {
	if len(line) < 3 {
		return
	}
	for i := 0; i+3 <= len(line); i++ {
		fn(line[i:i+3], i)
	}
}
