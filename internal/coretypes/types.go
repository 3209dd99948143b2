// Package coretypes defines the dense identifiers shared by every layer of
// the indexer and searcher: commit ordinals, file ids, tokens and the
// per-instance word key.
package coretypes

import "math"

// CommitOrdinal is a dense, non-negative index assigned to a commit in
// topological order. Ordinal 0 is the root commit. Ordinals are never
// reused.
type CommitOrdinal uint32

// OpenOrdinal is the sentinel end-ordinal for a live_instances entry whose
// token instance has not yet been closed.
const OpenOrdinal CommitOrdinal = math.MaxUint32

// FileID is a dense, non-negative index assigned on first sight of a file
// path. A path removed and later re-added keeps its original FileID.
type FileID uint32

// TokenMode selects whether the tokeniser emits whole words or trigrams.
// Fixed for the lifetime of an index; queries against that index must use
// the same mode.
type TokenMode uint8

const (
	ModeWord TokenMode = iota
	ModeTrigram
)

// Token is either a whole word or a 3-byte trigram, stored as its raw
// bytes. Both modes share the same representation; only the tokeniser that
// produced them differs.
type Token string

// WordKey identifies one instance of a token within a file's current
// snapshot: the token plus the live line number it currently occupies.
type WordKey struct {
	Token Token
	Line  int
}
