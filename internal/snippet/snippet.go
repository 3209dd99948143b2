// Package snippet materialises the highlighted line content shown for a
// search hit: fetching the blob at the matched commit, tokenising it in
// presentation mode, and keeping only the lines whose tokens intersect
// the query.
package snippet

import (
	"context"

	"github.com/standardbeagle/lci/internal/coretypes"
	"github.com/standardbeagle/lci/internal/repoaccess"
	"github.com/standardbeagle/lci/internal/tokenizer"
)

// Highlight is one byte-column offset within a line where a query term
// was found.
type Highlight struct {
	Term   string
	Column int
}

// LineMatch is one line of a snippet, with every highlighted occurrence of
// a query token on that line.
type LineMatch struct {
	LineNumber int
	Content    string
	Highlights []Highlight
}

// Materialize fetches path's blob as of commitID, splits it into lines and
// keeps only the lines carrying at least one occurrence of a token in
// queryTokens, each annotated with its byte-column highlights. An empty
// queryTokens keeps every line that yields at least one token.
func Materialize(ctx context.Context, repo repoaccess.Repository, commitID, path string, mode coretypes.TokenMode, queryTokens []coretypes.Token) ([]LineMatch, error) {
	blob, err := repo.Blob(ctx, commitID, path)
	if err != nil {
		return nil, err
	}

	want := make(map[coretypes.Token]bool, len(queryTokens))
	for _, t := range queryTokens {
		want[t] = true
	}

	lines := tokenizer.SplitLines(blob)
	presented := tokenizer.Presentation(mode, lines, 0)

	perLine := make(map[int][]Highlight)
	var order []int
	seen := make(map[int]bool)
	for _, p := range presented {
		if len(want) > 0 && !want[p.Token] {
			continue
		}
		perLine[p.Line] = append(perLine[p.Line], Highlight{Term: string(p.Token), Column: p.Column})
		if !seen[p.Line] {
			seen[p.Line] = true
			order = append(order, p.Line)
		}
	}

	out := make([]LineMatch, 0, len(order))
	for _, lineNum := range order {
		content := ""
		if lineNum >= 0 && lineNum < len(lines) {
			content = lines[lineNum]
		}
		out = append(out, LineMatch{
			LineNumber: lineNum,
			Content:    content,
			Highlights: perLine[lineNum],
		})
	}
	return out, nil
}
