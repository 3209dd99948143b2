package gitindex

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lci/internal/bitset"
	"github.com/standardbeagle/lci/internal/coretypes"
	"github.com/standardbeagle/lci/internal/document"
	"github.com/standardbeagle/lci/internal/fstindex"
	"github.com/standardbeagle/lci/internal/repoaccess"
)

func buildTestIndex(t *testing.T) *GitIndex {
	t.Helper()

	doc := document.New()
	doc.AddWords(0, map[coretypes.Token][]int{"foo": {1, 2}, "bar": {3}})
	doc.AddWords(1, map[coretypes.Token][]int{"foo": {1, 2}, "bar": {3}})
	require.NoError(t, doc.Finalize(1))

	tokenFST, err := fstindex.Build([]coretypes.Token{"foo", "bar"})
	require.NoError(t, err)
	doc.TokenFST = tokenFST

	globalFST, err := fstindex.Build([]coretypes.Token{"foo", "bar"})
	require.NoError(t, err)

	wordEver := map[coretypes.Token]*bitset.Set{
		"foo": bitset.FromValues(0),
		"bar": bitset.FromValues(0),
	}

	return &GitIndex{
		Mode: coretypes.ModeWord,
		OrdinalToCommit: []repoaccess.CommitInfo{
			{ID: "c0", ParentIDs: nil, Summary: "root", Date: time.Unix(1000, 0).UTC()},
			{ID: "c1", ParentIDs: []string{"c0"}, Summary: "second", Date: time.Unix(2000, 0).UTC()},
		},
		CommitIDToOrdinal: map[string]coretypes.CommitOrdinal{"c0": 0, "c1": 1},
		PathToFileID:      map[string]coretypes.FileID{"main.go": 0},
		FileIDToPath:      []string{"main.go"},
		Documents:         []*document.Document{doc},
		WordEverContained: wordEver,
		GlobalFST:         globalFST,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	orig := buildTestIndex(t)

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, orig, false))

	loaded, err := Load(&buf)
	require.NoError(t, err)

	assert.Equal(t, orig.Mode, loaded.Mode)
	assert.Equal(t, orig.OrdinalToCommit, loaded.OrdinalToCommit)
	assert.Equal(t, orig.CommitIDToOrdinal, loaded.CommitIDToOrdinal)
	assert.Equal(t, orig.PathToFileID, loaded.PathToFileID)
	assert.Equal(t, orig.FileIDToPath, loaded.FileIDToPath)

	require.Len(t, loaded.Documents, 1)
	origDoc, loadedDoc := orig.Documents[0], loaded.Documents[0]
	assert.Equal(t, origDoc.DocModified.ToArray(), loadedDoc.DocModified.ToArray())
	require.Len(t, loadedDoc.Words, len(origDoc.Words))
	for tok, wi := range origDoc.Words {
		loadedWi, ok := loadedDoc.Words[tok]
		require.True(t, ok, "token %q missing after round-trip", tok)
		assert.Equal(t, wi.CommitInclusion.ToArray(), loadedWi.CommitInclusion.ToArray())
		assert.Equal(t, len(wi.LiveInstances), len(loadedWi.LiveInstances))
	}

	for tok, s := range orig.WordEverContained {
		loadedSet, ok := loaded.WordEverContained[tok]
		require.True(t, ok)
		assert.Equal(t, s.ToArray(), loadedSet.ToArray())
	}

	ok, err := loaded.GlobalFST.Contains("foo")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoadRejectsTrailingBytes(t *testing.T) {
	orig := buildTestIndex(t)

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, orig, false))
	buf.WriteByte(0xFF)

	_, err := Load(&buf)
	assert.Error(t, err)
}

func TestLoadRejectsBadMagic(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte("not-an-index-file-at-all")))
	assert.Error(t, err)
}
