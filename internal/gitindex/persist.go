package gitindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/standardbeagle/lci/internal/bitset"
	"github.com/standardbeagle/lci/internal/coretypes"
	"github.com/standardbeagle/lci/internal/document"
	"github.com/standardbeagle/lci/internal/fstindex"
	"github.com/standardbeagle/lci/internal/indexerrors"
	"github.com/standardbeagle/lci/internal/repoaccess"
)

// Magic is the fixed 8-byte header identifying a persisted index file.
var Magic = [8]byte{'C', 'R', 'E', 'P', 'I', 'D', 'X', 0}

const FormatVersion uint32 = 1

const (
	flagTrigramMode    uint32 = 1 << 0
	flagUTF8Permissive uint32 = 1 << 1
)

// Save writes g to w in the format described in §4.7/§6: magic, version,
// flags, then length-prefixed sections for commit tables, the file-id/path
// map, per-Document records, word_ever_contained and the global FST.
func Save(w io.Writer, g *GitIndex, utf8Permissive bool) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(Magic[:]); err != nil {
		return err
	}
	if err := writeU32(bw, FormatVersion); err != nil {
		return err
	}

	var flags uint32
	if g.Mode == coretypes.ModeTrigram {
		flags |= flagTrigramMode
	}
	if utf8Permissive {
		flags |= flagUTF8Permissive
	}
	if err := writeU32(bw, flags); err != nil {
		return err
	}

	if err := writeCommitTable(bw, g.OrdinalToCommit); err != nil {
		return err
	}
	if err := writePathTable(bw, g.FileIDToPath); err != nil {
		return err
	}
	if err := writeDocuments(bw, g.Documents); err != nil {
		return err
	}
	if err := writeWordEverContained(bw, g.WordEverContained); err != nil {
		return err
	}
	if err := writeSection(bw, g.GlobalFST.Bytes()); err != nil {
		return err
	}

	return bw.Flush()
}

// Load reads a GitIndex previously written by Save. Unknown trailing bytes
// cause the load to fail, keeping the format self-delimited.
func Load(r io.Reader) (*GitIndex, error) {
	br := bufio.NewReader(r)

	var magic [8]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, indexerrors.NewLoadError(indexerrors.KindIndexCorrupt, "", err)
	}
	if magic != Magic {
		return nil, indexerrors.NewLoadError(indexerrors.KindIndexFormatUnsupported, "", fmt.Errorf("bad magic"))
	}

	version, err := readU32(br)
	if err != nil {
		return nil, indexerrors.NewLoadError(indexerrors.KindIndexCorrupt, "", err)
	}
	if version != FormatVersion {
		return nil, indexerrors.NewLoadError(indexerrors.KindIndexFormatUnsupported, "", fmt.Errorf("unsupported version %d", version))
	}

	flags, err := readU32(br)
	if err != nil {
		return nil, indexerrors.NewLoadError(indexerrors.KindIndexCorrupt, "", err)
	}

	g := &GitIndex{Mode: coretypes.ModeWord}
	if flags&flagTrigramMode != 0 {
		g.Mode = coretypes.ModeTrigram
	}

	g.OrdinalToCommit, g.CommitIDToOrdinal, err = readCommitTable(br)
	if err != nil {
		return nil, indexerrors.NewLoadError(indexerrors.KindIndexCorrupt, "", err)
	}

	g.FileIDToPath, g.PathToFileID, err = readPathTable(br)
	if err != nil {
		return nil, indexerrors.NewLoadError(indexerrors.KindIndexCorrupt, "", err)
	}

	g.Documents, err = readDocuments(br)
	if err != nil {
		return nil, indexerrors.NewLoadError(indexerrors.KindIndexCorrupt, "", err)
	}

	g.WordEverContained, err = readWordEverContained(br)
	if err != nil {
		return nil, indexerrors.NewLoadError(indexerrors.KindIndexCorrupt, "", err)
	}

	fstBytes, err := readSection(br)
	if err != nil {
		return nil, indexerrors.NewLoadError(indexerrors.KindIndexCorrupt, "", err)
	}
	g.GlobalFST, err = fstindex.Load(fstBytes)
	if err != nil {
		return nil, indexerrors.NewLoadError(indexerrors.KindIndexCorrupt, "", err)
	}

	// Reject unknown trailing bytes: the format is self-delimited.
	var probe [1]byte
	if n, _ := br.Read(probe[:]); n > 0 {
		return nil, indexerrors.NewLoadError(indexerrors.KindIndexCorrupt, "", fmt.Errorf("unexpected trailing bytes"))
	}

	return g, nil
}

func writeU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func writeU64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func writeString(w io.Writer, s string) error {
	if err := writeU32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeSection(w io.Writer, data []byte) error {
	if err := writeU32(w, uint32(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func readSection(r io.Reader) ([]byte, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeBitmap(w io.Writer, s *bitset.Set) error {
	bm := roaring.New()
	for _, v := range s.ToArray() {
		bm.Add(v)
	}
	var buf []byte
	var err error
	buf, err = bm.ToBytes()
	if err != nil {
		return err
	}
	return writeSection(w, buf)
}

func readBitmap(r io.Reader) (*bitset.Set, error) {
	data, err := readSection(r)
	if err != nil {
		return nil, err
	}
	bm := roaring.New()
	if len(data) > 0 {
		if _, err := bm.FromBuffer(data); err != nil {
			return nil, err
		}
	}
	s := bitset.FromValues(bm.ToArray()...)
	return s, nil
}

func writeCommitTable(w io.Writer, commits []repoaccess.CommitInfo) error {
	if err := writeU32(w, uint32(len(commits))); err != nil {
		return err
	}
	for _, c := range commits {
		if err := writeString(w, c.ID); err != nil {
			return err
		}
		if err := writeU32(w, uint32(len(c.ParentIDs))); err != nil {
			return err
		}
		for _, p := range c.ParentIDs {
			if err := writeString(w, p); err != nil {
				return err
			}
		}
		if err := writeString(w, c.Summary); err != nil {
			return err
		}
		if err := writeU64(w, uint64(c.Date.UnixNano())); err != nil {
			return err
		}
	}
	return nil
}

func readCommitTable(r io.Reader) ([]repoaccess.CommitInfo, map[string]coretypes.CommitOrdinal, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, nil, err
	}
	commits := make([]repoaccess.CommitInfo, n)
	byID := make(map[string]coretypes.CommitOrdinal, n)
	for i := range commits {
		id, err := readString(r)
		if err != nil {
			return nil, nil, err
		}
		pn, err := readU32(r)
		if err != nil {
			return nil, nil, err
		}
		var parents []string
		if pn > 0 {
			parents = make([]string, pn)
		}
		for j := range parents {
			parents[j], err = readString(r)
			if err != nil {
				return nil, nil, err
			}
		}
		summary, err := readString(r)
		if err != nil {
			return nil, nil, err
		}
		nanos, err := readU64(r)
		if err != nil {
			return nil, nil, err
		}
		commits[i] = repoaccess.CommitInfo{
			ID:        id,
			ParentIDs: parents,
			Summary:   summary,
			Date:      time.Unix(0, int64(nanos)).UTC(),
		}
		byID[id] = coretypes.CommitOrdinal(i)
	}
	return commits, byID, nil
}

func writePathTable(w io.Writer, paths []string) error {
	if err := writeU32(w, uint32(len(paths))); err != nil {
		return err
	}
	for _, p := range paths {
		if err := writeString(w, p); err != nil {
			return err
		}
	}
	return nil
}

func readPathTable(r io.Reader) ([]string, map[string]coretypes.FileID, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, nil, err
	}
	paths := make([]string, n)
	byPath := make(map[string]coretypes.FileID, n)
	for i := range paths {
		paths[i], err = readString(r)
		if err != nil {
			return nil, nil, err
		}
		byPath[paths[i]] = coretypes.FileID(i)
	}
	return paths, byPath, nil
}

func writeDocuments(w io.Writer, docs []*document.Document) error {
	if err := writeU32(w, uint32(len(docs))); err != nil {
		return err
	}
	for _, d := range docs {
		if err := writeU32(w, uint32(len(d.Words))); err != nil {
			return err
		}
		tokens := make([]coretypes.Token, 0, len(d.Words))
		for tok := range d.Words {
			tokens = append(tokens, tok)
		}
		sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })

		for _, tok := range tokens {
			wi := d.Words[tok]
			if err := writeString(w, string(tok)); err != nil {
				return err
			}
			if err := writeBitmap(w, wi.CommitInclusion); err != nil {
				return err
			}
			if err := writeU32(w, uint32(len(wi.LiveInstances))); err != nil {
				return err
			}
			keys := make([]coretypes.WordKey, 0, len(wi.LiveInstances))
			for key := range wi.LiveInstances {
				keys = append(keys, key)
			}
			sort.Slice(keys, func(i, j int) bool { return keys[i].Line < keys[j].Line })
			for _, key := range keys {
				if err := writeU32(w, uint32(key.Line)); err != nil {
					return err
				}
				if err := writeU32(w, uint32(wi.LiveInstances[key])); err != nil {
					return err
				}
			}
		}
		if err := writeBitmap(w, d.DocModified); err != nil {
			return err
		}
		if err := writeSection(w, d.TokenFST.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func readDocuments(r io.Reader) ([]*document.Document, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	docs := make([]*document.Document, n)
	for i := range docs {
		d := document.New()
		wordCount, err := readU32(r)
		if err != nil {
			return nil, err
		}
		for j := uint32(0); j < wordCount; j++ {
			tokStr, err := readString(r)
			if err != nil {
				return nil, err
			}
			tok := coretypes.Token(tokStr)
			inclusion, err := readBitmap(r)
			if err != nil {
				return nil, err
			}
			liveCount, err := readU32(r)
			if err != nil {
				return nil, err
			}
			live := make(map[coretypes.WordKey]coretypes.CommitOrdinal, liveCount)
			for k := uint32(0); k < liveCount; k++ {
				line, err := readU32(r)
				if err != nil {
					return nil, err
				}
				origin, err := readU32(r)
				if err != nil {
					return nil, err
				}
				live[coretypes.WordKey{Token: tok, Line: int(line)}] = coretypes.CommitOrdinal(origin)
			}
			d.Words[tok] = &document.WordIndex{LiveInstances: live, CommitInclusion: inclusion}
		}
		modified, err := readBitmap(r)
		if err != nil {
			return nil, err
		}
		d.DocModified = modified
		fstBytes, err := readSection(r)
		if err != nil {
			return nil, err
		}
		fst, err := fstindex.Load(fstBytes)
		if err != nil {
			return nil, err
		}
		d.TokenFST = fst
		docs[i] = d
	}
	return docs, nil
}

func writeWordEverContained(w io.Writer, m map[coretypes.Token]*bitset.Set) error {
	if err := writeU32(w, uint32(len(m))); err != nil {
		return err
	}
	tokens := make([]coretypes.Token, 0, len(m))
	for tok := range m {
		tokens = append(tokens, tok)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })

	for _, tok := range tokens {
		if err := writeString(w, string(tok)); err != nil {
			return err
		}
		if err := writeBitmap(w, m[tok]); err != nil {
			return err
		}
	}
	return nil
}

func readWordEverContained(r io.Reader) (map[coretypes.Token]*bitset.Set, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	m := make(map[coretypes.Token]*bitset.Set, n)
	for i := uint32(0); i < n; i++ {
		tokStr, err := readString(r)
		if err != nil {
			return nil, err
		}
		s, err := readBitmap(r)
		if err != nil {
			return nil, err
		}
		m[coretypes.Token(tokStr)] = s
	}
	return m, nil
}
