// Package repoaccess defines the repository-access capability set the
// indexer and snippet materialiser depend on. Implementations are external
// collaborators; internal/gitaccess provides the go-git-backed one used by
// cmd/lci.
package repoaccess

import (
	"context"
	"time"
)

// ChangeType classifies how a path differs between two trees.
type ChangeType int

const (
	Added ChangeType = iota
	Deleted
	Modified
	Renamed
)

// Hunk is one contiguous range of line changes within a file diff, using
// the same (old-start, old-count, new-start, new-count) shape as a unified
// diff header.
type Hunk struct {
	OldStart   int
	OldCount   int
	NewStart   int
	NewCount   int
	AddedLines []string
}

// FileDiff describes how one path changed between a commit and its first
// parent (or, for the root commit, against an empty tree).
type FileDiff struct {
	Path     string
	OldPath  string // set only for Renamed
	Change   ChangeType
	Hunks    []Hunk
	IsBinary bool
}

// CommitInfo is the minimal per-commit metadata the indexer and snippet
// materialiser need.
type CommitInfo struct {
	ID        string
	ParentIDs []string
	Summary   string
	Date      time.Time
}

// Repository is the capability set consumed by the history indexer and the
// snippet materialiser.
type Repository interface {
	// TopologicalCommits returns every commit reachable from branchTip,
	// parents before children.
	TopologicalCommits(ctx context.Context, branchTip string) ([]CommitInfo, error)

	// Diff returns the first-parent file diffs for commitID. parentID may
	// be empty for the root commit, in which case every file in
	// commitID's tree is reported Added.
	Diff(ctx context.Context, parentID, commitID string) ([]FileDiff, error)

	// Blob reads the full contents of path as of commitID.
	Blob(ctx context.Context, commitID, path string) ([]byte, error)

	// TreeEntries lists every file path in commitID's tree.
	TreeEntries(ctx context.Context, commitID string) ([]string, error)
}
