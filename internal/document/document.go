// Package document implements the per-file token-lifetime bookkeeping
// record: for every token ever seen in a file, which commit ordinals
// contained it, and which specific (token, line) instances are currently
// live.
package document

import (
	"github.com/standardbeagle/lci/internal/bitset"
	"github.com/standardbeagle/lci/internal/coretypes"
	"github.com/standardbeagle/lci/internal/fstindex"
)

// WordIndex is the per-token record within a Document: the set of
// currently-live (token, line) instances, each mapped to the commit
// ordinal that introduced it, and the bitmap of commit ordinals in which
// the token had at least one live instance.
type WordIndex struct {
	LiveInstances   map[coretypes.WordKey]coretypes.CommitOrdinal
	CommitInclusion *bitset.Set
}

func newWordIndex() *WordIndex {
	return &WordIndex{
		LiveInstances:   make(map[coretypes.WordKey]coretypes.CommitOrdinal),
		CommitInclusion: bitset.New(),
	}
}

// Document is the per-FileID index record.
type Document struct {
	Words map[coretypes.Token]*WordIndex

	// DocModified is the set of ordinals at which this file itself
	// changed (added, modified or deleted), independent of any one
	// token's lifetime. The searcher ANDs a word's commit_inclusion
	// against this set so that a bitmap extended across a gap by
	// finalisation doesn't claim the file changed on ordinals where it
	// didn't.
	DocModified *bitset.Set

	TokenFST *fstindex.Set
}

// New returns an empty Document.
func New() *Document {
	return &Document{
		Words:       make(map[coretypes.Token]*WordIndex),
		DocModified: bitset.New(),
	}
}

// AddWords records that, as of commit, every token in lines gained a live
// instance on each listed line, originating at commit.
func (d *Document) AddWords(commit coretypes.CommitOrdinal, lines map[coretypes.Token][]int) {
	for tok, ls := range lines {
		wi, ok := d.Words[tok]
		if !ok {
			wi = newWordIndex()
			d.Words[tok] = wi
		}
		for _, line := range ls {
			wi.LiveInstances[coretypes.WordKey{Token: tok, Line: line}] = commit
		}
		bitset.AddCommit(wi.CommitInclusion, commit)
	}
	bitset.AddCommit(d.DocModified, commit)
}

// RemoveWords closes the given live instances as of commit: each key is no
// longer live, and its token's commit_inclusion is extended over
// [origin(w), commit-1] independently of every other still-live instance
// of that token, per §4.5. Gating the extension on "no instances left"
// would leave a gap whenever a token has two concurrently-live instances
// with different origins and only the earlier one is removed.
func (d *Document) RemoveWords(commit coretypes.CommitOrdinal, removed map[coretypes.Token][]coretypes.WordKey) {
	for tok, keys := range removed {
		wi, ok := d.Words[tok]
		if !ok {
			continue
		}
		for _, k := range keys {
			origin, tracked := wi.LiveInstances[k]
			delete(wi.LiveInstances, k)
			if commit == 0 || !tracked {
				continue
			}
			wi.CommitInclusion.AddRange(uint32(origin), uint32(commit-1))
		}
	}
	bitset.AddCommit(d.DocModified, commit)
}

// RemoveDocument closes every remaining live instance as of commit,
// equivalent to the file being deleted outright. Each token's
// commit_inclusion is extended from its own live instances' origins, not
// merely from the bitmap's current maximum bit, for the same reason
// RemoveWords extends per removed key.
func (d *Document) RemoveDocument(commit coretypes.CommitOrdinal) {
	for _, wi := range d.Words {
		if len(wi.LiveInstances) == 0 {
			continue
		}
		if commit > 0 {
			for _, origin := range wi.LiveInstances {
				wi.CommitInclusion.AddRange(uint32(origin), uint32(commit-1))
			}
		}
		wi.LiveInstances = make(map[coretypes.WordKey]coretypes.CommitOrdinal)
	}
	bitset.AddCommit(d.DocModified, commit)
}

// Finalize seals every still-live instance at lastOrdinal (the final
// commit of the walk) and builds the per-Document token_fst from every
// token ever referenced. Each live instance is extended from its own
// origin so two concurrently-live instances with different origins both
// get their full range sealed, not just the range above the bitmap's
// current maximum bit.
func (d *Document) Finalize(lastOrdinal coretypes.CommitOrdinal) error {
	for _, wi := range d.Words {
		for _, origin := range wi.LiveInstances {
			wi.CommitInclusion.AddRange(uint32(origin), uint32(lastOrdinal))
		}
	}

	tokens := make([]coretypes.Token, 0, len(d.Words))
	for tok := range d.Words {
		tokens = append(tokens, tok)
	}
	fst, err := fstindex.Build(tokens)
	if err != nil {
		return err
	}
	d.TokenFST = fst
	return nil
}
