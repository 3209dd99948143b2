// Package historyindex drives the topological commit walk that builds a
// GitIndex: tokenising added lines, feeding deleted-line ranges through
// the diff tracker, and mutating each file's Document accordingly.
package historyindex

import (
	"context"
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/lci/internal/bitset"
	"github.com/standardbeagle/lci/internal/coretypes"
	"github.com/standardbeagle/lci/internal/difftracker"
	"github.com/standardbeagle/lci/internal/document"
	"github.com/standardbeagle/lci/internal/fstindex"
	"github.com/standardbeagle/lci/internal/indexerrors"
	"github.com/standardbeagle/lci/internal/metrics"
	"github.com/standardbeagle/lci/internal/repoaccess"
	"github.com/standardbeagle/lci/internal/textgate"
	"github.com/standardbeagle/lci/internal/tokenizer"
)

// Options configures one indexing run.
type Options struct {
	Mode            coretypes.TokenMode
	IgnoreUTF8Error bool

	// Exclude holds doublestar glob patterns (e.g. "**/vendor/**",
	// "*.min.js") for paths that should never reach the tokenizer. A
	// file matching one of these is treated as absent from every commit
	// it would otherwise appear in, not merely skipped once.
	Exclude []string
}

func excluded(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

// Result is the fully populated, not-yet-finalised state produced by a
// walk. Callers hand this to gitindex.Finalize to seal it into an
// immutable GitIndex.
type Result struct {
	Mode              coretypes.TokenMode
	OrdinalToCommit   []repoaccess.CommitInfo
	CommitIDToOrdinal map[string]coretypes.CommitOrdinal
	PathToFileID      map[string]coretypes.FileID
	FileIDToPath      []string
	Documents         []*document.Document
	WordEverContained map[coretypes.Token]*bitset.Set
	Errors            []error

	// blobCache holds tokenizer results for whole-file blobs keyed by
	// their xxhash, so a file added at multiple paths or reintroduced
	// byte-for-byte across commits (vendored dependencies, generated
	// lockfiles) is only tokenised once.
	blobCache map[uint64]tokenizer.IndexResult
}

type fileState struct {
	tracker *difftracker.Tracker
}

// Walk performs the full history walk described in §4.6: topological
// commit ordering, root-tree full index, first-parent diffs thereafter.
func Walk(ctx context.Context, repo repoaccess.Repository, branchTip string, opts Options) (*Result, error) {
	walkStart := time.Now()
	defer func() { metrics.WalkDuration.Observe(time.Since(walkStart).Seconds()) }()

	commits, err := repo.TopologicalCommits(ctx, branchTip)
	if err != nil {
		return nil, indexerrors.NewIndexingError(indexerrors.KindRepositoryAccessFailure, "", branchTip, err)
	}

	res := &Result{
		Mode:              opts.Mode,
		OrdinalToCommit:   commits,
		CommitIDToOrdinal: make(map[string]coretypes.CommitOrdinal, len(commits)),
		PathToFileID:      make(map[string]coretypes.FileID),
		WordEverContained: make(map[coretypes.Token]*bitset.Set),
		blobCache:         make(map[uint64]tokenizer.IndexResult),
	}
	for i, c := range commits {
		res.CommitIDToOrdinal[c.ID] = coretypes.CommitOrdinal(i)
	}

	files := make(map[coretypes.FileID]*fileState)

	for i, c := range commits {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ordinal := coretypes.CommitOrdinal(i)

		var parentID string
		if len(c.ParentIDs) > 0 {
			parentID = c.ParentIDs[0] // merge commits follow the first parent
		} else if i > 0 {
			// A root commit seen after ordinal 0 (a disjoint history
			// reachable from the tip) is treated the same as ordinal 0:
			// every file in its tree is a full add.
		}

		diffs, err := repo.Diff(ctx, parentID, c.ID)
		if err != nil {
			walkErr := indexerrors.NewIndexingError(indexerrors.KindRepositoryAccessFailure, "", c.ID, err)
			res.Errors = append(res.Errors, walkErr)
			metrics.CommitsWalked.WithLabelValues("error").Inc()
			return res, walkErr
		}

		for _, fd := range diffs {
			if err := applyFileDiff(res, files, ordinal, fd, opts); err != nil {
				res.Errors = append(res.Errors, err)
				metrics.FilesIndexed.WithLabelValues(changeLabel(fd.Change) + "_error").Inc()
				continue
			}
			metrics.FilesIndexed.WithLabelValues(changeLabel(fd.Change)).Inc()
		}
		metrics.CommitsWalked.WithLabelValues("ok").Inc()
	}

	last := coretypes.CommitOrdinal(0)
	if len(commits) > 0 {
		last = coretypes.CommitOrdinal(len(commits) - 1)
	}
	for _, doc := range res.Documents {
		if doc == nil {
			continue
		}
		if err := doc.Finalize(last); err != nil {
			return res, fmt.Errorf("finalize: %w", err)
		}
	}

	return res, nil
}

func changeLabel(c repoaccess.ChangeType) string {
	switch c {
	case repoaccess.Added:
		return "added"
	case repoaccess.Deleted:
		return "deleted"
	case repoaccess.Modified:
		return "modified"
	case repoaccess.Renamed:
		return "renamed"
	default:
		return "unknown"
	}
}

func (r *Result) fileID(path string) coretypes.FileID {
	if id, ok := r.PathToFileID[path]; ok {
		return id
	}
	id := coretypes.FileID(len(r.FileIDToPath))
	r.PathToFileID[path] = id
	r.FileIDToPath = append(r.FileIDToPath, path)
	r.Documents = append(r.Documents, document.New())
	return id
}

func applyFileDiff(r *Result, files map[coretypes.FileID]*fileState, ordinal coretypes.CommitOrdinal, fd repoaccess.FileDiff, opts Options) error {
	if excluded(opts.Exclude, fd.Path) {
		return nil
	}

	switch fd.Change {
	case repoaccess.Deleted:
		id := r.fileID(fd.Path)
		doc := r.Documents[id]
		doc.RemoveDocument(ordinal)
		delete(files, id)
		return nil

	case repoaccess.Renamed:
		// Renames are not tracked across the path boundary: treat as
		// delete of OldPath plus add of Path.
		if fd.OldPath != "" {
			oldID := r.fileID(fd.OldPath)
			r.Documents[oldID].RemoveDocument(ordinal)
			delete(files, oldID)
		}
		return addFile(r, files, ordinal, fd.Path, fd.Hunks, opts)

	case repoaccess.Added:
		return addFile(r, files, ordinal, fd.Path, fd.Hunks, opts)

	case repoaccess.Modified:
		if fd.IsBinary {
			return nil
		}
		return modifyFile(r, files, ordinal, fd.Path, fd.Hunks, opts)
	}
	return nil
}

func addFile(r *Result, files map[coretypes.FileID]*fileState, ordinal coretypes.CommitOrdinal, path string, hunks []repoaccess.Hunk, opts Options) error {
	id := r.fileID(path)
	doc := r.Documents[id]

	var allLines []string
	for _, h := range hunks {
		allLines = append(allLines, h.AddedLines...)
	}

	blob := []byte(joinLines(allLines))
	if !textgate.Classify(blob, opts.IgnoreUTF8Error) {
		files[id] = &fileState{tracker: difftracker.New(ordinal, len(allLines))}
		return indexerrors.NewIndexingError(indexerrors.KindBinaryOrNonText, path, "", nil)
	}
	if opts.IgnoreUTF8Error {
		allLines = sanitizeLines(allLines)
		blob = []byte(joinLines(allLines))
	}

	blobKey := xxhash.Sum64(blob)
	result, ok := r.blobCache[blobKey]
	if !ok {
		result = tokenizer.IndexLines(opts.Mode, allLines, 0)
		r.blobCache[blobKey] = result
	}
	doc.AddWords(ordinal, result.Lines)
	mergeWordEverContained(r, id, result.Lines)

	files[id] = &fileState{tracker: difftracker.New(ordinal, len(allLines))}
	return nil
}

// modifyFile processes hunks in reverse order so that earlier hunks' line
// numbers (in the pre-change coordinate space the diff tracker still
// holds) remain valid while later-positioned hunks are applied first.
func modifyFile(r *Result, files map[coretypes.FileID]*fileState, ordinal coretypes.CommitOrdinal, path string, hunks []repoaccess.Hunk, opts Options) error {
	id := r.fileID(path)
	doc := r.Documents[id]
	fs, ok := files[id]
	if !ok {
		// First time we see this file via a Modified diff with no prior
		// Added (e.g. it pre-existed the walk's root); treat as add.
		return addFile(r, files, ordinal, path, hunks, opts)
	}

	for i := len(hunks) - 1; i >= 0; i-- {
		h := hunks[i]

		if h.OldCount > 0 {
			fs.tracker.DeleteLines(h.OldStart, h.OldCount)
			removed := wordKeysOnDeletedLines(doc, h.OldStart, h.OldCount)
			if len(removed) > 0 {
				doc.RemoveWords(ordinal, removed)
			}
		}

		if h.NewCount > 0 {
			fs.tracker.AddLines(h.NewStart, h.NewCount, ordinal)

			blob := []byte(joinLines(h.AddedLines))
			if !textgate.Classify(blob, opts.IgnoreUTF8Error) {
				return indexerrors.NewIndexingError(indexerrors.KindBinaryOrNonText, path, "", nil)
			}
			addedLines := h.AddedLines
			if opts.IgnoreUTF8Error {
				addedLines = sanitizeLines(addedLines)
			}

			added := tokenizer.IndexLines(opts.Mode, addedLines, h.NewStart)
			doc.AddWords(ordinal, added.Lines)
			mergeWordEverContained(r, id, added.Lines)
		}
	}

	return nil
}

// sanitizeLines replaces invalid UTF-8 sequences in each line with the
// replacement character, so a blob that only passed Classify because
// IgnoreUTF8Error is set still tokenises into valid runes.
func sanitizeLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = string(textgate.Sanitize([]byte(l)))
	}
	return out
}

// wordKeysOnDeletedLines resolves which (token, line) instances are being
// removed from the Document's currently-live instances, which is exact
// since live_instances is indexed by line number at call time. Document
// tracks each live instance's origin commit itself (set when AddWords
// records it), so the diff tracker's per-line origins aren't needed here.
func wordKeysOnDeletedLines(doc *document.Document, oldStart, oldCount int) map[coretypes.Token][]coretypes.WordKey {
	removed := make(map[coretypes.Token][]coretypes.WordKey)
	for line := oldStart; line < oldStart+oldCount; line++ {
		for tok, wi := range doc.Words {
			for key := range wi.LiveInstances {
				if key.Line == line {
					removed[tok] = append(removed[tok], key)
				}
			}
		}
	}
	return removed
}

func mergeWordEverContained(r *Result, id coretypes.FileID, lines map[coretypes.Token][]int) {
	for tok := range lines {
		s, ok := r.WordEverContained[tok]
		if !ok {
			s = bitset.New()
			r.WordEverContained[tok] = s
		}
		bitset.AddFile(s, id)
	}
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	out := lines[0]
	for _, l := range lines[1:] {
		out += "\n" + l
	}
	return out
}

// BuildGlobalFST builds the global_fst from every token ever observed
// anywhere in the walk.
func BuildGlobalFST(wordEverContained map[coretypes.Token]*bitset.Set) (*fstindex.Set, error) {
	tokens := make([]coretypes.Token, 0, len(wordEverContained))
	for tok := range wordEverContained {
		tokens = append(tokens, tok)
	}
	return fstindex.Build(tokens)
}
