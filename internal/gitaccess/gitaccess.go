// Package gitaccess implements internal/repoaccess.Repository against a
// real git repository using go-git, replacing the shell-out `git` CLI
// wrapper the teacher used for its own repository access needs with a
// library-level implementation that can produce structured diffs.
package gitaccess

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"github.com/standardbeagle/lci/internal/repoaccess"
)

type Repository struct {
	repo *git.Repository
}

// Open opens the git repository rooted at path (a working tree or a bare
// repository).
func Open(path string) (*Repository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return &Repository{repo: repo}, nil
}

func (r *Repository) commit(id string) (*object.Commit, error) {
	return r.repo.CommitObject(plumbing.NewHash(id))
}

// TopologicalCommits performs a Kahn's-algorithm topological sort over the
// full commit DAG reachable from branchTip, so that every parent is
// emitted before its children regardless of which parent a merge commit
// prefers for diffing.
func (r *Repository) TopologicalCommits(ctx context.Context, branchTip string) ([]repoaccess.CommitInfo, error) {
	ref, err := r.repo.ResolveRevision(plumbing.Revision(branchTip))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", branchTip, err)
	}

	commits := make(map[plumbing.Hash]*object.Commit)
	childCount := make(map[plumbing.Hash]int)

	var visit func(h plumbing.Hash) error
	visited := make(map[plumbing.Hash]bool)
	visit = func(h plumbing.Hash) error {
		if visited[h] {
			return nil
		}
		visited[h] = true
		c, err := r.repo.CommitObject(h)
		if err != nil {
			return err
		}
		commits[h] = c
		if _, ok := childCount[h]; !ok {
			childCount[h] = 0
		}
		for _, p := range c.ParentHashes {
			childCount[p]++
			if err := visit(p); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(*ref); err != nil {
		return nil, err
	}

	// Kahn's algorithm: a commit is ready once every child that depends
	// on it having been emitted first has already been emitted — i.e.
	// once it has no remaining un-emitted parent. We invert the usual
	// direction: ready commits are those whose parents are already all
	// emitted.
	emitted := make(map[plumbing.Hash]bool)
	parentsRemaining := make(map[plumbing.Hash]int)
	for h, c := range commits {
		parentsRemaining[h] = len(c.ParentHashes)
	}

	var order []plumbing.Hash
	for len(order) < len(commits) {
		var ready []plumbing.Hash
		for h, remaining := range parentsRemaining {
			if remaining == 0 && !emitted[h] {
				ready = append(ready, h)
			}
		}
		if len(ready) == 0 {
			return nil, fmt.Errorf("cycle detected while ordering commits")
		}
		sort.Slice(ready, func(i, j int) bool {
			return commits[ready[i]].Author.When.Before(commits[ready[j]].Author.When)
		})
		for _, h := range ready {
			emitted[h] = true
			parentsRemaining[h] = -1
			order = append(order, h)
			for childHash, c := range commits {
				for _, p := range c.ParentHashes {
					if p == h {
						parentsRemaining[childHash]--
					}
				}
			}
		}
	}

	out := make([]repoaccess.CommitInfo, len(order))
	for i, h := range order {
		c := commits[h]
		parentIDs := make([]string, len(c.ParentHashes))
		for j, p := range c.ParentHashes {
			parentIDs[j] = p.String()
		}
		out[i] = repoaccess.CommitInfo{
			ID:        h.String(),
			ParentIDs: parentIDs,
			Summary:   firstLine(c.Message),
			Date:      c.Author.When,
		}
	}
	return out, nil
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}

// Diff computes the first-parent file diffs for commitID. When parentID is
// empty, every entry in commitID's tree is reported Added.
func (r *Repository) Diff(ctx context.Context, parentID, commitID string) ([]repoaccess.FileDiff, error) {
	toCommit, err := r.commit(commitID)
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", commitID, err)
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return nil, err
	}

	if parentID == "" {
		return rootTreeAsAdds(toTree)
	}

	fromCommit, err := r.commit(parentID)
	if err != nil {
		return nil, fmt.Errorf("parent %s: %w", parentID, err)
	}
	fromTree, err := fromCommit.Tree()
	if err != nil {
		return nil, err
	}

	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return nil, fmt.Errorf("diff trees for %s: %w", commitID, err)
	}

	out := make([]repoaccess.FileDiff, 0, len(changes))
	for _, change := range changes {
		fd, err := toFileDiff(change)
		if err != nil {
			return nil, err
		}
		out = append(out, fd)
	}
	return out, nil
}

// rootTreeAsAdds reports every file in the root commit's tree as Added,
// since it has no parent to diff against.
func rootTreeAsAdds(tree *object.Tree) ([]repoaccess.FileDiff, error) {
	var out []repoaccess.FileDiff
	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()
	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !entry.Mode.IsFile() {
			continue
		}
		f, err := tree.TreeEntryFile(&entry)
		if err != nil {
			return nil, err
		}
		content, err := f.Contents()
		if err != nil {
			return nil, err
		}
		lines := splitKeepCount(content)
		out = append(out, repoaccess.FileDiff{
			Path:   name,
			Change: repoaccess.Added,
			Hunks:  []repoaccess.Hunk{{NewCount: len(lines), AddedLines: lines}},
		})
	}
	return out, nil
}

func toFileDiff(change *object.Change) (repoaccess.FileDiff, error) {
	action, err := change.Action()
	if err != nil {
		return repoaccess.FileDiff{}, err
	}

	switch action {
	case merkletrie.Insert:
		return repoaccess.FileDiff{Path: change.To.Name, Change: repoaccess.Added, Hunks: addedFileHunks(change)}, nil
	case merkletrie.Delete:
		return repoaccess.FileDiff{Path: change.From.Name, Change: repoaccess.Deleted}, nil
	default:
		if change.From.Name != change.To.Name {
			return repoaccess.FileDiff{
				Path:    change.To.Name,
				OldPath: change.From.Name,
				Change:  repoaccess.Renamed,
				Hunks:   addedFileHunks(change),
			}, nil
		}
		hunks, isBinary, err := modifiedFileHunks(change)
		if err != nil {
			return repoaccess.FileDiff{}, err
		}
		return repoaccess.FileDiff{Path: change.To.Name, Change: repoaccess.Modified, Hunks: hunks, IsBinary: isBinary}, nil
	}
}

// addedFileHunks returns a single hunk adding every line of the file's
// post-image, used for Added and Renamed (rename is delete+add per spec).
func addedFileHunks(change *object.Change) []repoaccess.Hunk {
	f, err := change.To.Tree.TreeEntryFile(&change.To.TreeEntry)
	if err != nil {
		return nil
	}
	content, err := f.Contents()
	if err != nil {
		return nil
	}
	lines := splitKeepCount(content)
	return []repoaccess.Hunk{{OldStart: 0, OldCount: 0, NewStart: 0, NewCount: len(lines), AddedLines: lines}}
}

// modifiedFileHunks walks the patch's chunk list, converting contiguous
// runs of Equal/Delete/Insert chunks into unified-diff-style hunks.
func modifiedFileHunks(change *object.Change) ([]repoaccess.Hunk, bool, error) {
	patch, err := change.Patch()
	if err != nil {
		return nil, false, err
	}

	var hunks []repoaccess.Hunk
	for _, fp := range patch.FilePatches() {
		if fp.IsBinary() {
			return nil, true, nil
		}

		oldLine, newLine := 0, 0
		for _, chunk := range fp.Chunks() {
			n := countLines(chunk.Content())
			switch chunk.Type() {
			case diff.Equal:
				oldLine += n
				newLine += n
			case diff.Delete:
				hunks = append(hunks, repoaccess.Hunk{
					OldStart: oldLine,
					OldCount: n,
					NewStart: newLine,
				})
				oldLine += n
			case diff.Add:
				lines := splitKeepCount(chunk.Content())
				// An insertion directly after a deletion replaces those
				// lines, so it joins the deletion's hunk.
				if k := len(hunks) - 1; k >= 0 && hunks[k].NewCount == 0 &&
					hunks[k].OldStart+hunks[k].OldCount == oldLine && hunks[k].NewStart == newLine {
					hunks[k].NewCount = n
					hunks[k].AddedLines = lines
				} else {
					hunks = append(hunks, repoaccess.Hunk{
						OldStart:   oldLine,
						OldCount:   0,
						NewStart:   newLine,
						NewCount:   n,
						AddedLines: lines,
					})
				}
				newLine += n
			}
		}
	}
	return hunks, false, nil
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := bytes_Count(s, '\n')
	if s[len(s)-1] != '\n' {
		n++
	}
	return n
}

func bytes_Count(s string, sep byte) int {
	count := 0
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			count++
		}
	}
	return count
}

func splitKeepCount(content string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			lines = append(lines, content[start:i])
			start = i + 1
		}
	}
	if start < len(content) {
		lines = append(lines, content[start:])
	}
	return lines
}

// Blob reads path's contents as of commitID.
func (r *Repository) Blob(ctx context.Context, commitID, path string) ([]byte, error) {
	c, err := r.commit(commitID)
	if err != nil {
		return nil, err
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}
	f, err := tree.File(path)
	if err != nil {
		return nil, err
	}
	reader, err := f.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TreeEntries lists every file path in commitID's tree.
func (r *Repository) TreeEntries(ctx context.Context, commitID string) ([]string, error) {
	c, err := r.commit(commitID)
	if err != nil {
		return nil, err
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}

	var paths []string
	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()
	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !entry.Mode.IsFile() {
			continue
		}
		paths = append(paths, name)
	}
	return paths, nil
}
