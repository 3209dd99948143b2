// Package gitindex owns the finalised, immutable GitIndex: commit tables,
// per-file Documents, the global word_ever_contained membership map and
// the global_fst, plus its on-disk persistence format.
package gitindex

import (
	"github.com/standardbeagle/lci/internal/bitset"
	"github.com/standardbeagle/lci/internal/coretypes"
	"github.com/standardbeagle/lci/internal/document"
	"github.com/standardbeagle/lci/internal/fstindex"
	"github.com/standardbeagle/lci/internal/historyindex"
	"github.com/standardbeagle/lci/internal/repoaccess"
)

// GitIndex is the persisted root. After Finalize returns one, it is
// treated as read-only: queries never mutate it.
type GitIndex struct {
	Mode coretypes.TokenMode

	OrdinalToCommit   []repoaccess.CommitInfo
	CommitIDToOrdinal map[string]coretypes.CommitOrdinal

	PathToFileID map[string]coretypes.FileID
	FileIDToPath []string
	Documents    []*document.Document

	WordEverContained map[coretypes.Token]*bitset.Set
	GlobalFST         *fstindex.Set
}

// Finalize seals a history-walk Result into an immutable GitIndex,
// building the global_fst from word_ever_contained's keys.
func Finalize(r *historyindex.Result) (*GitIndex, error) {
	globalFST, err := historyindex.BuildGlobalFST(r.WordEverContained)
	if err != nil {
		return nil, err
	}

	return &GitIndex{
		Mode:              r.Mode,
		OrdinalToCommit:   r.OrdinalToCommit,
		CommitIDToOrdinal: r.CommitIDToOrdinal,
		PathToFileID:      r.PathToFileID,
		FileIDToPath:      r.FileIDToPath,
		Documents:         r.Documents,
		WordEverContained: r.WordEverContained,
		GlobalFST:         globalFST,
	}, nil
}

// CommitAt returns the commit metadata for ordinal.
func (g *GitIndex) CommitAt(ordinal coretypes.CommitOrdinal) (repoaccess.CommitInfo, bool) {
	if int(ordinal) >= len(g.OrdinalToCommit) {
		return repoaccess.CommitInfo{}, false
	}
	return g.OrdinalToCommit[ordinal], true
}

// PathOf returns the file path for a FileID.
func (g *GitIndex) PathOf(id coretypes.FileID) (string, bool) {
	if int(id) >= len(g.FileIDToPath) {
		return "", false
	}
	return g.FileIDToPath[id], true
}

// DocumentOf returns the Document for a FileID.
func (g *GitIndex) DocumentOf(id coretypes.FileID) (*document.Document, bool) {
	if int(id) >= len(g.Documents) {
		return nil, false
	}
	return g.Documents[id], true
}
