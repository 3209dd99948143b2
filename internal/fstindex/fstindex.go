// Package fstindex wraps vellum finite-state transducers as the ordered,
// immutable byte-key sets used for token_fst (per-Document) and global_fst
// (whole-index). Supports membership, prefix iteration and regex-automaton
// driven enumeration.
package fstindex

import (
	"bytes"
	"sort"

	"github.com/blevesearch/vellum"
	"github.com/blevesearch/vellum/regexp"

	"github.com/standardbeagle/lci/internal/coretypes"
)

// Set is an ordered immutable set of tokens.
type Set struct {
	fst *vellum.FST
	raw []byte
}

// Bytes returns the serialised FST, for persistence.
func (s *Set) Bytes() []byte {
	if s == nil {
		return nil
	}
	return s.raw
}

// Load reconstructs a Set from bytes previously returned by Bytes.
func Load(data []byte) (*Set, error) {
	if len(data) == 0 {
		return &Set{}, nil
	}
	fst, err := vellum.Load(data)
	if err != nil {
		return nil, err
	}
	return &Set{fst: fst, raw: data}, nil
}

// Build constructs a Set from an arbitrary slice of tokens, sorting and
// deduplicating them first since vellum requires keys inserted in
// lexicographic order.
func Build(tokens []coretypes.Token) (*Set, error) {
	keys := make([]string, 0, len(tokens))
	for _, t := range tokens {
		keys = append(keys, string(t))
	}
	sort.Strings(keys)
	keys = dedupe(keys)

	var buf bytes.Buffer
	builder, err := vellum.New(&buf, nil)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		if err := builder.Insert([]byte(k), uint64(i)); err != nil {
			return nil, err
		}
	}
	if err := builder.Close(); err != nil {
		return nil, err
	}

	raw := buf.Bytes()
	fst, err := vellum.Load(raw)
	if err != nil {
		return nil, err
	}
	return &Set{fst: fst, raw: raw}, nil
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	var prev string
	first := true
	for _, k := range sorted {
		if !first && k == prev {
			continue
		}
		out = append(out, k)
		prev = k
		first = false
	}
	return out
}

// Contains reports whether tok is a member of the set.
func (s *Set) Contains(tok coretypes.Token) (bool, error) {
	if s == nil || s.fst == nil {
		return false, nil
	}
	return s.fst.Contains([]byte(tok))
}

// IteratePrefix calls fn for every token with the given prefix, in order.
func (s *Set) IteratePrefix(prefix string, fn func(coretypes.Token) error) error {
	if s == nil || s.fst == nil {
		return nil
	}
	upper := prefixUpperBound(prefix)
	it, err := s.fst.Iterator([]byte(prefix), upper)
	if err == vellum.ErrIteratorDone {
		return nil
	}
	if err != nil {
		return err
	}
	for err == nil {
		k, _ := it.Current()
		if cbErr := fn(coretypes.Token(string(k))); cbErr != nil {
			return cbErr
		}
		err = it.Next()
	}
	if err != vellum.ErrIteratorDone {
		return err
	}
	return nil
}

// IterateRegex calls fn for every token matching the regex pattern, using
// the FST's automaton-driven search rather than a linear scan.
func (s *Set) IterateRegex(pattern string, fn func(coretypes.Token) error) error {
	if s == nil || s.fst == nil {
		return nil
	}
	re, err := regexp.New(pattern)
	if err != nil {
		return err
	}
	it, err := s.fst.Search(re, nil, nil)
	if err == vellum.ErrIteratorDone {
		return nil
	}
	if err != nil {
		return err
	}
	for err == nil {
		k, _ := it.Current()
		if cbErr := fn(coretypes.Token(string(k))); cbErr != nil {
			return cbErr
		}
		err = it.Next()
	}
	if err != vellum.ErrIteratorDone {
		return err
	}
	return nil
}

// prefixUpperBound returns the lexicographically smallest key greater than
// every string starting with prefix, or nil if prefix is all 0xff bytes (no
// finite upper bound is needed; vellum treats a nil end as unbounded).
func prefixUpperBound(prefix string) []byte {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			out := make([]byte, i+1)
			copy(out, b[:i+1])
			out[i]++
			return out
		}
	}
	return nil
}
