// Package trigramlower implements the "RegexSearchCandidates" arithmetic:
// building up, trigram by trigram, the set of byte sequences any match of
// a regex fragment must contain, then combining fragments through
// concatenation, alternation and repetition the same way the underlying
// regex engine combines them.
package trigramlower

import "fmt"

// charClass is either a single literal byte or an inclusive byte range,
// one component of a (partial) trigram.
type charClass struct {
	isRange bool
	lo, hi  byte // used when isRange; lo==hi==b when a single literal byte
}

func literalByte(b byte) charClass { return charClass{lo: b, hi: b} }

func rangeClass(lo, hi byte) charClass { return charClass{isRange: true, lo: lo, hi: hi} }

// trigram is a partial or complete 3-byte window, represented positionally
// so that ranges can be carried until they're either resolved to a
// concrete string or turned into a bracket-expression pattern.
type trigram struct {
	data []charClass // len 0..3
}

func trigramFromLiteral(s string) trigram {
	t := trigram{}
	for i := 0; i < len(s); i++ {
		t.data = append(t.data, literalByte(s[i]))
	}
	return t
}

// splitLongString slides a 3-byte window across s, matching
// Trigram::from_long_string: strings shorter than 3 bytes yield a single
// partial trigram of their own length.
func splitLongString(s string) []trigram {
	if len(s) < 3 {
		return []trigram{trigramFromLiteral(s)}
	}
	out := make([]trigram, 0, len(s)-2)
	for i := 0; i+3 <= len(s); i++ {
		out = append(out, trigramFromLiteral(s[i:i+3]))
	}
	return out
}

// isConcreteLiteral reports whether every position is a single literal
// byte (no ranges), i.e. this trigram denotes exactly one 3-byte string.
func (t trigram) isConcreteLiteral() bool {
	if len(t.data) != 3 {
		return false
	}
	for _, c := range t.data {
		if c.isRange {
			return false
		}
	}
	return true
}

func (t trigram) literalString() string {
	b := make([]byte, len(t.data))
	for i, c := range t.data {
		b[i] = c.lo
	}
	return string(b)
}

func concatSmall(left, right trigram) trigram {
	out := trigram{data: append(append([]charClass{}, left.data...), right.data...)}
	return out
}

// concat slides a window across left++right, matching Trigram::concat:
// used when the combined length exceeds 3 so multiple trigrams result.
func concat(left, right trigram) []trigram {
	total := append(append([]charClass{}, left.data...), right.data...)
	var out []trigram
	for start := 0; start+3 <= len(total); start++ {
		out = append(out, trigram{data: append([]charClass{}, total[start:start+3]...)})
	}
	return out
}

func mergeTrigrams(groups [][]trigram) []trigram {
	if len(groups) == 0 {
		return nil
	}
	merged := append([]trigram{}, groups[0]...)
	for _, g := range groups[1:] {
		left := merged[len(merged)-1]
		merged = merged[:len(merged)-1]
		firstRight := g[0]

		if len(firstRight.data) <= 3-len(left.data) {
			merged = append(merged, concatSmall(left, firstRight))
		} else {
			merged = append(merged, concat(left, firstRight)...)
			merged = append(merged, g[1:]...)
		}
	}
	return merged
}

// SearchPartTrigram is one candidate way to witness a regex fragment: the
// ordered sequence of trigrams a concrete match of that fragment must
// contain.
type SearchPartTrigram struct {
	Trigrams []trigram
}

// Candidates is the full set of alternative SearchPartTrigrams for a
// fragment: a match needs only satisfy one of them.
type Candidates struct {
	Parts []SearchPartTrigram
}

func literalCandidates(s string) Candidates {
	return Candidates{Parts: []SearchPartTrigram{{Trigrams: splitLongString(s)}}}
}

// concatCandidates computes the cross product of parts, merging each
// combination's trigram sequences, mirroring RegexSearchCandidates::concat.
func concatCandidates(parts []Candidates) Candidates {
	sizes := make([]int, len(parts))
	for i, p := range parts {
		sizes[i] = len(p.Parts)
		if sizes[i] == 0 {
			return Candidates{}
		}
	}

	var result []SearchPartTrigram
	forEachPermutation(sizes, func(pick []int) {
		var groups [][]trigram
		for i, idx := range pick {
			part := parts[i].Parts[idx]
			if len(part.Trigrams) > 0 {
				groups = append(groups, part.Trigrams)
			}
		}
		result = append(result, SearchPartTrigram{Trigrams: mergeTrigrams(groups)})
	})
	return Candidates{Parts: result}
}

func alternationCandidates(parts []Candidates) Candidates {
	var out []SearchPartTrigram
	for _, p := range parts {
		out = append(out, p.Parts...)
	}
	return Candidates{Parts: out}
}

// repeatCandidates enumerates repeat counts min..=max (capped at 3, beyond
// which additional repetitions add no new trigram constraints), mirroring
// RegexSearchCandidates::repeat.
func repeatCandidates(part Candidates, min, max int) Candidates {
	if max > 3 {
		max = 3
	}
	if min > 3 {
		min = 3
	}

	var out []SearchPartTrigram
	for repeat := min; repeat <= max; repeat++ {
		if repeat == 0 {
			out = append(out, SearchPartTrigram{})
			continue
		}
		sizes := make([]int, repeat)
		for i := range sizes {
			sizes[i] = len(part.Parts)
		}
		forEachPermutation(sizes, func(pick []int) {
			var groups [][]trigram
			for _, idx := range pick {
				groups = append(groups, part.Parts[idx].Trigrams)
			}
			out = append(out, SearchPartTrigram{Trigrams: mergeTrigrams(groups)})
		})
	}
	return Candidates{Parts: out}
}

// forEachPermutation enumerates the mixed-radix odometer over sizes, in
// lexicographic order, matching PermutationIterator's semantics.
func forEachPermutation(sizes []int, fn func(pick []int)) {
	for _, s := range sizes {
		if s == 0 {
			return
		}
	}
	pick := make([]int, len(sizes))
	for {
		fn(append([]int{}, pick...))

		i := len(sizes) - 1
		for i >= 0 {
			pick[i]++
			if pick[i] < sizes[i] {
				break
			}
			pick[i] = 0
			i--
		}
		if i < 0 {
			return
		}
	}
}

// Result is the public, spec-shaped lowering output: either no constraint
// can be derived (AnyMatch), every match must contain every trigram in a
// single set (All), or at least one of several All-sets must hold (Any).
type Result struct {
	Kind ResultKind
	All  []string   // populated when Kind == KindAll
	Any  [][]string // populated when Kind == KindAny, each entry an All-set
}

type ResultKind int

const (
	KindAnyMatch ResultKind = iota
	KindAll
	KindAny
)

// FromCandidates collapses a Candidates value (one SearchPartTrigram per
// alternative witness) into the spec's AnyMatch/All/Any shape. A witness
// with fewer than 3 concrete bytes anywhere contributes no constraint and
// degrades the whole alternative to AnyMatch; if any alternative
// degrades, the overall result is AnyMatch, since that alternative can
// match without containing any trigram.
func FromCandidates(c Candidates) Result {
	if len(c.Parts) == 0 {
		return Result{Kind: KindAnyMatch}
	}

	var allSets [][]string
	for _, part := range c.Parts {
		set, ok := concreteTrigramSet(part.Trigrams)
		if !ok {
			return Result{Kind: KindAnyMatch}
		}
		allSets = append(allSets, set)
	}

	if len(allSets) == 1 {
		return Result{Kind: KindAll, All: allSets[0]}
	}
	return Result{Kind: KindAny, Any: allSets}
}

// concreteTrigramSet returns the literal trigram strings in trigrams, or
// false if any of them still carries an unresolved byte range (the caller
// must degrade to AnyMatch).
func concreteTrigramSet(trigrams []trigram) ([]string, bool) {
	if len(trigrams) == 0 {
		return nil, false
	}
	seen := make(map[string]bool, len(trigrams))
	var out []string
	for _, t := range trigrams {
		if !t.isConcreteLiteral() {
			return nil, false
		}
		s := t.literalString()
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out, true
}

func (r Result) String() string {
	switch r.Kind {
	case KindAnyMatch:
		return "AnyMatch"
	case KindAll:
		return fmt.Sprintf("All(%v)", r.All)
	default:
		return fmt.Sprintf("Any(%v)", r.Any)
	}
}
