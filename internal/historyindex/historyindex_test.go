package historyindex

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lci/internal/coretypes"
	"github.com/standardbeagle/lci/internal/repoaccess"
)

// scriptedRepo implements repoaccess.Repository over a fixed commit list
// and per-commit diffs, letting history-walk scenarios be scripted without
// a real git repository.
type scriptedRepo struct {
	commits []repoaccess.CommitInfo
	diffs   map[string][]repoaccess.FileDiff // keyed by commit ID
}

func (s *scriptedRepo) TopologicalCommits(ctx context.Context, branchTip string) ([]repoaccess.CommitInfo, error) {
	return s.commits, nil
}

func (s *scriptedRepo) Diff(ctx context.Context, parentID, commitID string) ([]repoaccess.FileDiff, error) {
	return s.diffs[commitID], nil
}

func (s *scriptedRepo) Blob(ctx context.Context, commitID, path string) ([]byte, error) {
	return nil, nil
}

func (s *scriptedRepo) TreeEntries(ctx context.Context, commitID string) ([]string, error) {
	return nil, nil
}

// TestAlphaBetaAlphaScenario exercises end-to-end scenario 1: "alpha"
// introduced at c0, replaced with "beta" at c1, restored at c2.
func TestAlphaBetaAlphaScenario(t *testing.T) {
	repo := &scriptedRepo{
		commits: []repoaccess.CommitInfo{
			{ID: "c0", Date: time.Unix(0, 0)},
			{ID: "c1", ParentIDs: []string{"c0"}, Date: time.Unix(1, 0)},
			{ID: "c2", ParentIDs: []string{"c1"}, Date: time.Unix(2, 0)},
		},
		diffs: map[string][]repoaccess.FileDiff{
			"c0": {{
				Path:   "x.txt",
				Change: repoaccess.Added,
				Hunks:  []repoaccess.Hunk{{NewCount: 1, AddedLines: []string{"alpha"}}},
			}},
			"c1": {{
				Path:   "x.txt",
				Change: repoaccess.Modified,
				Hunks: []repoaccess.Hunk{{
					OldStart: 0, OldCount: 1,
					NewStart: 0, NewCount: 1,
					AddedLines: []string{"beta"},
				}},
			}},
			"c2": {{
				Path:   "x.txt",
				Change: repoaccess.Modified,
				Hunks: []repoaccess.Hunk{{
					OldStart: 0, OldCount: 1,
					NewStart: 0, NewCount: 1,
					AddedLines: []string{"alpha"},
				}},
			}},
		},
	}

	result, err := Walk(context.Background(), repo, "c2", Options{Mode: coretypes.ModeWord})
	require.NoError(t, err)

	fileID := result.PathToFileID["x.txt"]
	doc := result.Documents[fileID]
	wi, ok := doc.Words["alpha"]
	require.True(t, ok)

	assert.ElementsMatch(t, []uint32{0, 2}, wi.CommitInclusion.ToArray())
}

// TestWalkSkipsExcludedPaths verifies files matching an Options.Exclude
// glob never reach the tokenizer, even though they appear in a diff.
func TestWalkSkipsExcludedPaths(t *testing.T) {
	repo := &scriptedRepo{
		commits: []repoaccess.CommitInfo{
			{ID: "c0", Date: time.Unix(0, 0)},
		},
		diffs: map[string][]repoaccess.FileDiff{
			"c0": {
				{
					Path:   "vendor/dep/dep.go",
					Change: repoaccess.Added,
					Hunks:  []repoaccess.Hunk{{NewCount: 1, AddedLines: []string{"vendored"}}},
				},
				{
					Path:   "main.go",
					Change: repoaccess.Added,
					Hunks:  []repoaccess.Hunk{{NewCount: 1, AddedLines: []string{"kept"}}},
				},
			},
		},
	}

	result, err := Walk(context.Background(), repo, "c0", Options{
		Mode:    coretypes.ModeWord,
		Exclude: []string{"vendor/**"},
	})
	require.NoError(t, err)

	_, vendoredIndexed := result.PathToFileID["vendor/dep/dep.go"]
	assert.False(t, vendoredIndexed)

	mainID, ok := result.PathToFileID["main.go"]
	require.True(t, ok)
	_, hasKept := result.Documents[mainID].Words["kept"]
	assert.True(t, hasKept)
}

// TestWalkReusesBlobCacheForIdenticalContent verifies two files added
// with byte-identical content in the same commit share one tokenizer
// pass by way of the blob-hash cache, while still each getting their own
// Document and word entries.
func TestWalkReusesBlobCacheForIdenticalContent(t *testing.T) {
	repo := &scriptedRepo{
		commits: []repoaccess.CommitInfo{
			{ID: "c0", Date: time.Unix(0, 0)},
		},
		diffs: map[string][]repoaccess.FileDiff{
			"c0": {
				{
					Path:   "a.txt",
					Change: repoaccess.Added,
					Hunks:  []repoaccess.Hunk{{NewCount: 1, AddedLines: []string{"shared"}}},
				},
				{
					Path:   "b.txt",
					Change: repoaccess.Added,
					Hunks:  []repoaccess.Hunk{{NewCount: 1, AddedLines: []string{"shared"}}},
				},
			},
		},
	}

	result, err := Walk(context.Background(), repo, "c0", Options{Mode: coretypes.ModeWord})
	require.NoError(t, err)

	require.Len(t, result.blobCache, 1)

	aID := result.PathToFileID["a.txt"]
	bID := result.PathToFileID["b.txt"]
	_, aHas := result.Documents[aID].Words["shared"]
	_, bHas := result.Documents[bID].Words["shared"]
	assert.True(t, aHas)
	assert.True(t, bHas)
}

// TestWalkSanitizesInvalidUTF8WhenIgnored verifies that with
// IgnoreUTF8Error set, a line containing invalid UTF-8 still gets
// indexed after its bad bytes are replaced, rather than being indexed
// as raw, unparseable bytes.
func TestWalkSanitizesInvalidUTF8WhenIgnored(t *testing.T) {
	bad := "valid\xffword"
	repo := &scriptedRepo{
		commits: []repoaccess.CommitInfo{
			{ID: "c0", Date: time.Unix(0, 0)},
		},
		diffs: map[string][]repoaccess.FileDiff{
			"c0": {{
				Path:   "x.txt",
				Change: repoaccess.Added,
				Hunks:  []repoaccess.Hunk{{NewCount: 1, AddedLines: []string{bad}}},
			}},
		},
	}

	result, err := Walk(context.Background(), repo, "c0", Options{
		Mode:            coretypes.ModeWord,
		IgnoreUTF8Error: true,
	})
	require.NoError(t, err)

	id := result.PathToFileID["x.txt"]
	doc := result.Documents[id]
	_, hasValid := doc.Words["valid"]
	_, hasWord := doc.Words["word"]
	assert.True(t, hasValid)
	assert.True(t, hasWord)
}

// TestRemoveWordsClosesEachInstanceAtItsOwnOrigin exercises a gap that a
// "close when drained" strategy misses: a token gets a second live
// instance before its first is removed, then a third live instance after
// that, so neither RemoveWords' own commit nor Finalize's trailing patch
// ever revisits the ordinal range spanned by the first instance's closure.
// Only backfilling commit_inclusion from the removed instance's own
// origin, independently of the token's other live instances, covers it.
func TestRemoveWordsClosesEachInstanceAtItsOwnOrigin(t *testing.T) {
	repo := &scriptedRepo{
		commits: []repoaccess.CommitInfo{
			{ID: "c0", Date: time.Unix(0, 0)},
			{ID: "c1", ParentIDs: []string{"c0"}, Date: time.Unix(1, 0)},
			{ID: "c2", ParentIDs: []string{"c1"}, Date: time.Unix(2, 0)},
			{ID: "c3", ParentIDs: []string{"c2"}, Date: time.Unix(3, 0)},
			{ID: "c4", ParentIDs: []string{"c3"}, Date: time.Unix(4, 0)},
		},
		diffs: map[string][]repoaccess.FileDiff{
			"c0": {{
				Path:   "x.txt",
				Change: repoaccess.Added,
				Hunks:  []repoaccess.Hunk{{NewCount: 2, AddedLines: []string{"dup", "other"}}},
			}},
			"c1": {{
				Path:   "x.txt",
				Change: repoaccess.Modified,
				Hunks: []repoaccess.Hunk{{
					OldStart: 2, OldCount: 0,
					NewStart: 2, NewCount: 1,
					AddedLines: []string{"dup"},
				}},
			}},
			// c2 makes no change to x.txt at all: if Finalize papered
			// over an earlier gap by extending from the bitmap's then-
			// current maximum, this no-op ordinal would be exactly the
			// kind of gap that trick leaves unfilled.
			"c3": {{
				Path:   "x.txt",
				Change: repoaccess.Modified,
				Hunks: []repoaccess.Hunk{{
					OldStart: 0, OldCount: 1,
					NewStart: 0, NewCount: 0,
				}},
			}},
			"c4": {{
				Path:   "x.txt",
				Change: repoaccess.Modified,
				Hunks: []repoaccess.Hunk{{
					OldStart: 3, OldCount: 0,
					NewStart: 3, NewCount: 1,
					AddedLines: []string{"dup"},
				}},
			}},
		},
	}

	result, err := Walk(context.Background(), repo, "c4", Options{Mode: coretypes.ModeWord})
	require.NoError(t, err)

	fileID := result.PathToFileID["x.txt"]
	doc := result.Documents[fileID]
	wi, ok := doc.Words["dup"]
	require.True(t, ok)

	assert.ElementsMatch(t, []uint32{0, 1, 2, 3, 4}, wi.CommitInclusion.ToArray())
}
