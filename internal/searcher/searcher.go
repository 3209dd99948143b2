// Package searcher answers literal and regex queries against an immutable
// GitIndex: resolving query words or trigrams to candidate FileIds,
// intersecting per-file commit bitmaps, and handing the surviving
// (file, commit-range) pairs to the snippet materialiser.
package searcher

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/standardbeagle/lci/internal/bitset"
	"github.com/standardbeagle/lci/internal/coretypes"
	"github.com/standardbeagle/lci/internal/document"
	"github.com/standardbeagle/lci/internal/gitindex"
	"github.com/standardbeagle/lci/internal/indexerrors"
	"github.com/standardbeagle/lci/internal/metrics"
	"github.com/standardbeagle/lci/internal/repoaccess"
	"github.com/standardbeagle/lci/internal/snippet"
	"github.com/standardbeagle/lci/internal/tokenizer"
	"github.com/standardbeagle/lci/internal/trigramlower"
)

// Mode selects the query grammar.
type Mode int

const (
	ModePlain Mode = iota
	ModeRegex
)

// Query is one search request.
type Query struct {
	Text     string
	Mode     Mode
	Limit    int
	Deadline time.Time // zero means no deadline
}

// Hit is one matching file, with the earliest and (if distinct) latest
// commit at which the query was satisfied.
type Hit struct {
	FilePath string
	First    MatchDetail
	Last     *MatchDetail
}

// MatchDetail describes the query's match at one commit.
type MatchDetail struct {
	CommitOrdinal coretypes.CommitOrdinal
	CommitID      string
	CommitSummary string
	CommitDate    time.Time
	Lines         []snippet.LineMatch
}

// shortTokenThreshold is the len(w)>=3 cutoff below which word_ever_contained
// is bypassed in favour of a constrained global_fst scan.
const shortTokenThreshold = 3

// Searcher answers queries against one immutable GitIndex.
type Searcher struct {
	index *gitindex.GitIndex
	repo  repoaccess.Repository
	cache *shortTokenCache
}

// New returns a Searcher over index, using repo to materialise snippets.
func New(index *gitindex.GitIndex, repo repoaccess.Repository) *Searcher {
	return &Searcher{index: index, repo: repo, cache: newShortTokenCache()}
}

// rawPerFileResult is the per-file candidate before snippet materialisation:
// the set of ordinals at which every query token was simultaneously present.
type rawPerFileResult struct {
	fileID      coretypes.FileID
	commitRange *bitset.Set
	queryTokens []coretypes.Token
}

// Search answers query, returning hits in the order their candidate files
// were resolved (ascending FileID within each lookup); hits are not sorted
// by path. The second
// return value reports whether the deadline was exceeded before every
// candidate could be examined, per §5/§7: a true value means hits is a
// partial result, not an exhaustive one.
func (s *Searcher) Search(ctx context.Context, q Query) ([]Hit, bool, error) {
	modeLabel := "plain"
	if q.Mode == ModeRegex {
		modeLabel = "regex"
	}
	start := time.Now()
	defer func() { metrics.QueryDuration.WithLabelValues(modeLabel).Observe(time.Since(start).Seconds()) }()

	var raw []rawPerFileResult
	var truncated bool
	var err error

	switch q.Mode {
	case ModePlain:
		raw, err = s.searchLiteral(ctx, q)
	case ModeRegex:
		raw, truncated, err = s.searchRegex(ctx, q)
	default:
		return nil, false, indexerrors.NewSearchError(indexerrors.KindInvalidQuery, q.Text, nil)
	}
	if err != nil {
		return nil, false, err
	}

	hits := make([]Hit, 0, len(raw))
	for _, r := range raw {
		if deadlineExceeded(q.Deadline) {
			truncated = true
			break
		}
		hit, err := s.materializeHit(ctx, r)
		if err != nil {
			continue
		}
		hits = append(hits, hit)
		if q.Limit > 0 && len(hits) >= q.Limit {
			break
		}
	}
	metrics.QueryHits.WithLabelValues(modeLabel).Observe(float64(len(hits)))
	return hits, truncated, nil
}

func deadlineExceeded(deadline time.Time) bool {
	return !deadline.IsZero() && time.Now().After(deadline)
}

// searchLiteral implements §4.9's literal-query path.
func (s *Searcher) searchLiteral(ctx context.Context, q Query) ([]rawPerFileResult, error) {
	words := tokenizer.SplitQueryWords(q.Text)
	if len(words) == 0 {
		return nil, indexerrors.NewSearchError(indexerrors.KindInvalidQuery, q.Text, nil)
	}

	tokens := make([]coretypes.Token, len(words))
	fileSets := make([]*bitset.Set, len(words))
	for i, w := range words {
		tokens[i] = coretypes.Token(w)
		fileSets[i] = s.candidateFilesForWord(tokens[i])
	}

	candidates := bitset.Intersect(fileSets)
	return s.perFileCommitRanges(candidates.ToArray(), tokens), nil
}

// candidateFilesForWord resolves one literal query word to its candidate
// FileId set, going through word_ever_contained for words of length >= 3
// and a cached global_fst scan otherwise.
func (s *Searcher) candidateFilesForWord(tok coretypes.Token) *bitset.Set {
	if len(tok) >= shortTokenThreshold {
		if set, ok := s.index.WordEverContained[tok]; ok {
			return set
		}
		return bitset.New()
	}

	if cached, ok := s.cache.get(tok); ok {
		return cached
	}

	result := bitset.New()
	_ = s.index.GlobalFST.IteratePrefix(string(tok), func(matched coretypes.Token) error {
		if matched == tok {
			if set, ok := s.index.WordEverContained[matched]; ok {
				result.Or(set)
			}
		}
		return nil
	})
	s.cache.put(tok, result)
	return result
}

// perFileCommitRanges computes, for each candidate file, the intersection
// of every query token's commit_inclusion bitmap ANDed with the file's
// document-modified bitmap, dropping files where the result is empty.
func (s *Searcher) perFileCommitRanges(fileIDs []uint32, tokens []coretypes.Token) []rawPerFileResult {
	var out []rawPerFileResult
	for _, raw := range fileIDs {
		fileID := coretypes.FileID(raw)
		doc, ok := s.index.DocumentOf(fileID)
		if !ok {
			continue
		}

		bitmaps := make([]*bitset.Set, 0, len(tokens)+1)
		ok = true
		for _, tok := range tokens {
			wi, exists := doc.Words[tok]
			if !exists {
				ok = false
				break
			}
			bitmaps = append(bitmaps, wi.CommitInclusion)
		}
		if !ok {
			continue
		}
		bitmaps = append(bitmaps, doc.DocModified)

		result := bitset.Intersect(bitmaps)
		if result.IsEmpty() {
			continue
		}
		out = append(out, rawPerFileResult{fileID: fileID, commitRange: result, queryTokens: tokens})
	}
	return out
}

// searchRegex implements §4.9's regex-query path: lower to trigram
// candidates, then dispatch on AnyMatch/All/Any.
func (s *Searcher) searchRegex(ctx context.Context, q Query) ([]rawPerFileResult, bool, error) {
	lowered, err := trigramlower.Lower(q.Text)
	if err != nil {
		return nil, false, indexerrors.NewSearchError(indexerrors.KindInvalidRegex, q.Text, err)
	}

	switch lowered.Kind {
	case trigramlower.KindAnyMatch:
		return s.searchAnyMatch(ctx, q)
	case trigramlower.KindAll:
		return s.searchAllTrigrams(ctx, lowered.All, q.Deadline)
	case trigramlower.KindAny:
		var out []rawPerFileResult
		var truncated bool
		seen := make(map[coretypes.FileID]bool)
		for _, branch := range lowered.Any {
			if deadlineExceeded(q.Deadline) {
				truncated = true
				break
			}
			branchResults, branchTruncated, err := s.searchAllTrigrams(ctx, branch, q.Deadline)
			if err != nil {
				return nil, false, err
			}
			if branchTruncated {
				truncated = true
			}
			for _, r := range branchResults {
				if seen[r.fileID] {
					continue
				}
				seen[r.fileID] = true
				out = append(out, r)
			}
		}
		return out, truncated, nil
	}
	return nil, false, nil
}

// searchAnyMatch handles a regex with no derivable trigram constraint: fall
// back to scanning every indexed file's token_fst via a literal prefix if
// one is available, otherwise every file in the index.
func (s *Searcher) searchAnyMatch(ctx context.Context, q Query) ([]rawPerFileResult, bool, error) {
	prefix := literalPrefix(q.Text)

	var out []rawPerFileResult
	for raw := range s.index.Documents {
		if deadlineExceeded(q.Deadline) {
			return out, true, nil
		}
		fileID := coretypes.FileID(raw)
		doc, _ := s.index.DocumentOf(fileID)
		if doc == nil {
			continue
		}
		matched, err := regexMatchesDocument(doc, q.Text, prefix)
		if err != nil || !matched {
			continue
		}
		tokens := matchingTokens(doc, prefix)
		out = append(out, s.perFileCommitRanges([]uint32{uint32(fileID)}, tokens)...)
	}
	return out, false, nil
}

// literalPrefix extracts a plain literal prefix from a regex pattern, if
// the pattern begins with one; used only to narrow an AnyMatch scan.
func literalPrefix(pattern string) string {
	pattern = strings.TrimPrefix(pattern, "^")
	var b strings.Builder
	for _, r := range pattern {
		if strings.ContainsRune(`.*+?()[]{}|\^$`, r) {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}

func matchingTokens(doc *document.Document, prefix string) []coretypes.Token {
	if prefix == "" {
		return nil
	}
	var out []coretypes.Token
	_ = doc.TokenFST.IteratePrefix(prefix, func(tok coretypes.Token) error {
		out = append(out, tok)
		return nil
	})
	return out
}

func regexMatchesDocument(doc *document.Document, pattern, prefix string) (bool, error) {
	if prefix == "" {
		return true, nil
	}
	found := false
	err := doc.TokenFST.IteratePrefix(prefix, func(coretypes.Token) error {
		found = true
		return nil
	})
	return found, err
}

// searchAllTrigrams handles a Candidates.All branch: probe each trigram
// against word_ever_contained to intersect down to candidate files, then
// per file enumerate every concrete-token assignment covering the trigram
// set via PermutationIterator, intersecting commit bitmaps as in the
// literal case.
func (s *Searcher) searchAllTrigrams(ctx context.Context, trigrams []string, deadline time.Time) ([]rawPerFileResult, bool, error) {
	if len(trigrams) == 0 {
		return nil, false, nil
	}

	fileSets := make([]*bitset.Set, len(trigrams))
	for i, t := range trigrams {
		fileSets[i] = s.candidateFilesForWord(coretypes.Token(t))
	}
	candidates := bitset.Intersect(fileSets)

	var out []rawPerFileResult
	for _, raw := range candidates.ToArray() {
		if deadlineExceeded(deadline) {
			return out, true, nil
		}
		fileID := coretypes.FileID(raw)
		doc, ok := s.index.DocumentOf(fileID)
		if !ok {
			continue
		}

		results, truncated := s.perFileTrigramWitnesses(doc, fileID, trigrams, deadline)
		out = append(out, results...)
		if truncated {
			return out, true, nil
		}
	}
	return out, false, nil
}

// perFileTrigramWitnesses enumerates, for one file, every combination of
// concrete tokens (one per required trigram) that the file's token_fst
// actually contains, and keeps the union of their commit ranges. The
// permutation space is the product of each trigram's match count, which
// can be large on a file with many tokens sharing a trigram, so the
// deadline is checked on every iteration, not just at the per-file
// boundary one level up.
func (s *Searcher) perFileTrigramWitnesses(doc *document.Document, fileID coretypes.FileID, trigrams []string, deadline time.Time) ([]rawPerFileResult, bool) {
	perTrigramTokens := make([][]coretypes.Token, len(trigrams))
	for i, t := range trigrams {
		var matches []coretypes.Token
		_ = doc.TokenFST.IteratePrefix(t, func(tok coretypes.Token) error {
			if strings.HasPrefix(string(tok), t) {
				matches = append(matches, tok)
			}
			return nil
		})
		if len(matches) == 0 {
			return nil, false
		}
		perTrigramTokens[i] = matches
	}

	sizes := make([]uint32, len(perTrigramTokens))
	for i, m := range perTrigramTokens {
		sizes[i] = uint32(len(m))
	}

	combined := bitset.New()
	var witnessTokens []coretypes.Token
	truncated := false
	it := NewPermutationIterator(sizes)
	for {
		if deadlineExceeded(deadline) {
			truncated = true
			break
		}
		idx, ok := it.Next()
		if !ok {
			break
		}

		bitmaps := make([]*bitset.Set, 0, len(idx)+1)
		tokens := make([]coretypes.Token, len(idx))
		allPresent := true
		for i, choice := range idx {
			tok := perTrigramTokens[i][choice]
			tokens[i] = tok
			wi, exists := doc.Words[tok]
			if !exists {
				allPresent = false
				break
			}
			bitmaps = append(bitmaps, wi.CommitInclusion)
		}
		if !allPresent {
			continue
		}
		bitmaps = append(bitmaps, doc.DocModified)

		result := bitset.Intersect(bitmaps)
		if result.IsEmpty() {
			continue
		}
		combined.Or(result)
		witnessTokens = tokens
	}

	if combined.IsEmpty() {
		return nil, truncated
	}
	return []rawPerFileResult{{fileID: fileID, commitRange: combined, queryTokens: witnessTokens}}, truncated
}

// materializeHit resolves first/last commit ordinals from the commit range
// and delegates to the snippet materialiser for the line content.
func (s *Searcher) materializeHit(ctx context.Context, r rawPerFileResult) (Hit, error) {
	path, ok := s.index.PathOf(r.fileID)
	if !ok {
		return Hit{}, indexerrors.NewSearchError(indexerrors.KindIndexCorrupt, strconv.FormatUint(uint64(r.fileID), 10), nil)
	}

	firstOrdinal, ok := r.commitRange.Min()
	if !ok {
		return Hit{}, indexerrors.NewSearchError(indexerrors.KindIndexCorrupt, path, nil)
	}
	lastOrdinal, _ := r.commitRange.Max()

	first, err := s.materializeDetail(ctx, path, coretypes.CommitOrdinal(firstOrdinal), r.queryTokens)
	if err != nil {
		return Hit{}, err
	}

	hit := Hit{FilePath: path, First: first}
	if lastOrdinal != firstOrdinal {
		last, err := s.materializeDetail(ctx, path, coretypes.CommitOrdinal(lastOrdinal), r.queryTokens)
		if err == nil {
			hit.Last = &last
		}
	}
	return hit, nil
}

func (s *Searcher) materializeDetail(ctx context.Context, path string, ordinal coretypes.CommitOrdinal, tokens []coretypes.Token) (MatchDetail, error) {
	commit, ok := s.index.CommitAt(ordinal)
	if !ok {
		return MatchDetail{}, indexerrors.NewSearchError(indexerrors.KindIndexCorrupt, path, nil)
	}

	lines, err := snippet.Materialize(ctx, s.repo, commit.ID, path, s.index.Mode, tokens)
	if err != nil {
		return MatchDetail{}, err
	}

	return MatchDetail{
		CommitOrdinal: ordinal,
		CommitID:      commit.ID,
		CommitSummary: commit.Summary,
		CommitDate:    commit.Date,
		Lines:         lines,
	}, nil
}
