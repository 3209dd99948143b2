package searcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lci/internal/coretypes"
	"github.com/standardbeagle/lci/internal/gitindex"
	"github.com/standardbeagle/lci/internal/historyindex"
	"github.com/standardbeagle/lci/internal/repoaccess"
)

// scriptedRepo implements repoaccess.Repository over a fixed commit list,
// per-commit diffs and per-commit blob content, letting an end-to-end
// walk-then-search scenario run without a real git repository.
type scriptedRepo struct {
	commits []repoaccess.CommitInfo
	diffs   map[string][]repoaccess.FileDiff
	blobs   map[string]map[string][]byte // commitID -> path -> content
}

func (s *scriptedRepo) TopologicalCommits(ctx context.Context, branchTip string) ([]repoaccess.CommitInfo, error) {
	return s.commits, nil
}

func (s *scriptedRepo) Diff(ctx context.Context, parentID, commitID string) ([]repoaccess.FileDiff, error) {
	return s.diffs[commitID], nil
}

func (s *scriptedRepo) Blob(ctx context.Context, commitID, path string) ([]byte, error) {
	return s.blobs[commitID][path], nil
}

func (s *scriptedRepo) TreeEntries(ctx context.Context, commitID string) ([]string, error) {
	return nil, nil
}

func buildIndex(t *testing.T, repo repoaccess.Repository, mode coretypes.TokenMode) *gitindex.GitIndex {
	t.Helper()
	result, err := historyindex.Walk(context.Background(), repo, "HEAD", historyindex.Options{Mode: mode})
	require.NoError(t, err)
	idx, err := gitindex.Finalize(result)
	require.NoError(t, err)
	return idx
}

func TestSearchLiteralWordAcrossCommits(t *testing.T) {
	repo := &scriptedRepo{
		commits: []repoaccess.CommitInfo{
			{ID: "c0", Date: time.Unix(0, 0), Summary: "add a.go"},
			{ID: "c1", ParentIDs: []string{"c0"}, Date: time.Unix(1, 0), Summary: "tweak a.go"},
		},
		diffs: map[string][]repoaccess.FileDiff{
			"c0": {{
				Path:   "a.go",
				Change: repoaccess.Added,
				Hunks:  []repoaccess.Hunk{{NewCount: 2, AddedLines: []string{"foo bar", "baz"}}},
			}},
			"c1": {{
				Path:   "a.go",
				Change: repoaccess.Modified,
				Hunks: []repoaccess.Hunk{{
					OldStart: 0, OldCount: 1,
					NewStart: 0, NewCount: 1,
					AddedLines: []string{"foo qux"},
				}},
			}},
		},
		blobs: map[string]map[string][]byte{
			"c0": {"a.go": []byte("foo bar\nbaz\n")},
			"c1": {"a.go": []byte("foo qux\nbaz\n")},
		},
	}

	idx := buildIndex(t, repo, coretypes.ModeWord)
	s := New(idx, repo)

	hits, truncated, err := s.Search(context.Background(), Query{Text: "foo", Mode: ModePlain, Limit: 10})
	require.NoError(t, err)
	assert.False(t, truncated)
	require.Len(t, hits, 1)

	hit := hits[0]
	assert.Equal(t, "a.go", hit.FilePath)
	assert.Equal(t, "c0", hit.First.CommitID)
	require.NotNil(t, hit.Last)
	assert.Equal(t, "c1", hit.Last.CommitID)

	require.Len(t, hit.First.Lines, 1)
	assert.Equal(t, "foo bar", hit.First.Lines[0].Content)
	require.Len(t, hit.Last.Lines, 1)
	assert.Equal(t, "foo qux", hit.Last.Lines[0].Content)
}

func TestSearchLiteralWordNoMatch(t *testing.T) {
	repo := &scriptedRepo{
		commits: []repoaccess.CommitInfo{{ID: "c0", Date: time.Unix(0, 0)}},
		diffs: map[string][]repoaccess.FileDiff{
			"c0": {{Path: "a.go", Change: repoaccess.Added, Hunks: []repoaccess.Hunk{{NewCount: 1, AddedLines: []string{"hello"}}}}},
		},
		blobs: map[string]map[string][]byte{"c0": {"a.go": []byte("hello\n")}},
	}

	idx := buildIndex(t, repo, coretypes.ModeWord)
	s := New(idx, repo)

	hits, _, err := s.Search(context.Background(), Query{Text: "nope", Mode: ModePlain, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchRegexAllTrigrams(t *testing.T) {
	repo := &scriptedRepo{
		commits: []repoaccess.CommitInfo{{ID: "c0", Date: time.Unix(0, 0), Summary: "add"}},
		diffs: map[string][]repoaccess.FileDiff{
			"c0": {{
				Path:   "b.go",
				Change: repoaccess.Added,
				Hunks:  []repoaccess.Hunk{{NewCount: 1, AddedLines: []string{"xfoobarx"}}},
			}},
		},
		blobs: map[string]map[string][]byte{"c0": {"b.go": []byte("xfoobarx\n")}},
	}

	idx := buildIndex(t, repo, coretypes.ModeTrigram)
	s := New(idx, repo)

	hits, _, err := s.Search(context.Background(), Query{Text: "foobar", Mode: ModeRegex, Limit: 10})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b.go", hits[0].FilePath)
	require.Len(t, hits[0].First.Lines, 1)
	assert.Equal(t, "xfoobarx", hits[0].First.Lines[0].Content)
}

func TestSearchRespectsDeadline(t *testing.T) {
	repo := &scriptedRepo{
		commits: []repoaccess.CommitInfo{{ID: "c0", Date: time.Unix(0, 0)}},
		diffs: map[string][]repoaccess.FileDiff{
			"c0": {{Path: "a.go", Change: repoaccess.Added, Hunks: []repoaccess.Hunk{{NewCount: 1, AddedLines: []string{"foo"}}}}},
		},
		blobs: map[string]map[string][]byte{"c0": {"a.go": []byte("foo\n")}},
	}

	idx := buildIndex(t, repo, coretypes.ModeWord)
	s := New(idx, repo)

	// A deadline already in the past aborts hit materialisation before
	// any result is produced, but is not itself a search error.
	hits, truncated, err := s.Search(context.Background(), Query{
		Text:     "foo",
		Mode:     ModePlain,
		Limit:    10,
		Deadline: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.True(t, truncated)
}
