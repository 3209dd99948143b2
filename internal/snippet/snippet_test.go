package snippet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lci/internal/coretypes"
	"github.com/standardbeagle/lci/internal/repoaccess"
)

type fakeRepo struct {
	blobs map[string]map[string][]byte
}

func (f *fakeRepo) TopologicalCommits(ctx context.Context, branchTip string) ([]repoaccess.CommitInfo, error) {
	return nil, nil
}
func (f *fakeRepo) Diff(ctx context.Context, parentID, commitID string) ([]repoaccess.FileDiff, error) {
	return nil, nil
}
func (f *fakeRepo) Blob(ctx context.Context, commitID, path string) ([]byte, error) {
	return f.blobs[commitID][path], nil
}
func (f *fakeRepo) TreeEntries(ctx context.Context, commitID string) ([]string, error) {
	return nil, nil
}

func TestMaterializeKeepsOnlyMatchingLines(t *testing.T) {
	repo := &fakeRepo{blobs: map[string]map[string][]byte{
		"c0": {"a.go": []byte("one foo\ntwo bar\nthree foo\n")},
	}}

	lines, err := Materialize(context.Background(), repo, "c0", "a.go", coretypes.ModeWord, []coretypes.Token{"foo"})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, 0, lines[0].LineNumber)
	assert.Equal(t, "one foo", lines[0].Content)
	require.Len(t, lines[0].Highlights, 1)
	assert.Equal(t, "foo", lines[0].Highlights[0].Term)
	assert.Equal(t, 4, lines[0].Highlights[0].Column)

	assert.Equal(t, 2, lines[1].LineNumber)
	assert.Equal(t, "three foo", lines[1].Content)
}

func TestMaterializeEmptyTokenSetReturnsEveryLine(t *testing.T) {
	repo := &fakeRepo{blobs: map[string]map[string][]byte{
		"c0": {"a.go": []byte("x\ny\n")},
	}}

	lines, err := Materialize(context.Background(), repo, "c0", "a.go", coretypes.ModeWord, nil)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}
