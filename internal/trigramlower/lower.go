package trigramlower

import "regexp/syntax"

// classBranchCap is T in the spec: character classes wider than this many
// code points degrade the position to AnyMatch rather than expanding to
// an OR of single-byte branches.
const classBranchCap = 16

// maxUsefulRepeat caps repetition enumeration: beyond 3 repeats no new
// trigram constraint can be derived, matching RegexSearchCandidates::repeat.
const maxUsefulRepeat = 3

// identityCandidates is the neutral element for concatenation: a single
// witness that contributes no bytes. Used for zero-width assertions and
// anchors.
func identityCandidates() Candidates {
	return Candidates{Parts: []SearchPartTrigram{{}}}
}

// anyMatchCandidates signals "no constraint derivable here"; concatenating
// it with anything degrades the whole concatenation to AnyMatch, which is
// sound (never produces a false negative) though not complete.
func anyMatchCandidates() Candidates {
	return Candidates{}
}

// Lower parses pattern and derives the minimal trigram constraint any
// match must satisfy.
func Lower(pattern string) (Result, error) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return Result{}, err
	}
	re = re.Simplify()
	return FromCandidates(lowerNode(re)), nil
}

func lowerNode(re *syntax.Regexp) Candidates {
	switch re.Op {
	case syntax.OpLiteral:
		return literalCandidates(runesToUTF8(re.Rune))

	case syntax.OpCharClass:
		return lowerCharClass(re.Rune)

	case syntax.OpConcat:
		parts := make([]Candidates, len(re.Sub))
		for i, s := range re.Sub {
			parts[i] = lowerNode(s)
		}
		return concatCandidates(parts)

	case syntax.OpAlternate:
		parts := make([]Candidates, len(re.Sub))
		for i, s := range re.Sub {
			parts[i] = lowerNode(s)
		}
		return alternationCandidates(parts)

	case syntax.OpCapture:
		if len(re.Sub) == 1 {
			return lowerNode(re.Sub[0])
		}
		return identityCandidates()

	case syntax.OpStar, syntax.OpQuest:
		// min == 0: the fragment may match the empty string, so no
		// trigram can be guaranteed from it in isolation.
		return anyMatchCandidates()

	case syntax.OpPlus:
		if len(re.Sub) != 1 {
			return anyMatchCandidates()
		}
		child := lowerNode(re.Sub[0])
		return repeatCandidates(child, 1, maxUsefulRepeat)

	case syntax.OpRepeat:
		if len(re.Sub) != 1 {
			return anyMatchCandidates()
		}
		min := re.Min
		max := re.Max
		if max < 0 || max > maxUsefulRepeat {
			max = maxUsefulRepeat
		}
		if min == 0 {
			return anyMatchCandidates()
		}
		child := lowerNode(re.Sub[0])
		return repeatCandidates(child, min, max)

	case syntax.OpEmptyMatch,
		syntax.OpBeginLine, syntax.OpEndLine,
		syntax.OpBeginText, syntax.OpEndText,
		syntax.OpWordBoundary, syntax.OpNoWordBoundary:
		return identityCandidates()

	case syntax.OpAnyChar, syntax.OpAnyCharNotNL:
		return anyMatchCandidates()

	case syntax.OpNoMatch:
		return anyMatchCandidates()

	default:
		return anyMatchCandidates()
	}
}

// lowerCharClass expands a class into an alternation of single-byte
// literal candidates, capped at classBranchCap members; wider classes (or
// ones containing multi-byte runes, which this module's trigram arithmetic
// does not model) degrade to AnyMatch.
func lowerCharClass(runePairs []rune) Candidates {
	var branches []Candidates
	for i := 0; i+1 < len(runePairs); i += 2 {
		lo, hi := runePairs[i], runePairs[i+1]
		if lo > 0x7f || hi > 0x7f {
			return anyMatchCandidates()
		}
		for b := lo; b <= hi; b++ {
			if len(branches) >= classBranchCap {
				return anyMatchCandidates()
			}
			branches = append(branches, literalCandidates(string([]byte{byte(b)})))
		}
	}
	if len(branches) == 0 {
		return anyMatchCandidates()
	}
	return alternationCandidates(branches)
}

func runesToUTF8(runes []rune) string {
	return string(runes)
}
