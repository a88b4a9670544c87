// Package matching decides which WARN rows concern the target organization.
package matching

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// corporateSuffixes are entity-type tokens dropped from the end of a name
// before scoring. "SA Recycling" keeps its leading "sa".
var corporateSuffixes = map[string]struct{}{
	"inc":          {},
	"incorporated": {},
	"llc":          {},
	"llp":          {},
	"lp":           {},
	"pllc":         {},
	"pbc":          {},
	"pc":           {},
	"corp":         {},
	"corporation":  {},
	"co":           {},
	"company":      {},
	"ltd":          {},
	"limited":      {},
	"plc":          {},
	"gmbh":         {},
	"ag":           {},
	"sa":           {},
	"nv":           {},
	"bv":           {},
}

// Tokens returns the normalized token set of an organization name:
// case-folded, diacritics removed, punctuation stripped, trailing corporate
// suffixes dropped. A name made only of suffix tokens keeps them so that
// "Inc" still matches "Inc". The result is sorted and de-duplicated.
func Tokens(name string) []string {
	cleaned := clean(name)
	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return nil
	}

	end := len(fields)
	for end > 0 {
		if _, ok := corporateSuffixes[fields[end-1]]; !ok {
			break
		}
		end--
	}
	if end == 0 {
		end = len(fields)
	}
	return uniqueSorted(fields[:end])
}

// NormalizeName joins Tokens with single spaces.
func NormalizeName(name string) string {
	return strings.Join(Tokens(name), " ")
}

// Score returns the token-set similarity of two names in [0,100].
// Shared tokens are placed first on both sides and the remainders appended
// in sorted order, so word order and dropped suffixes cost nothing while a
// differing substantive word costs its full edit distance. Either side
// empty scores 0.
func Score(a, b string) float64 {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	common, onlyA, onlyB := split(ta, tb)
	left := joinParts(common, onlyA)
	right := joinParts(common, onlyB)
	return ratio(left, right)
}

// Matches reports whether observed names the same organization as target.
// Names with no tokens (blank or punctuation only) never match, whatever
// the threshold.
func Matches(observed, target string, threshold float64) bool {
	if len(Tokens(observed)) == 0 || len(Tokens(target)) == 0 {
		return false
	}
	return Score(observed, target) >= threshold
}

func clean(name string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		stripped = name
	}
	folded := cases.Fold().String(stripped)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '.' || r == '\'' || r == '’':
			// "L.L.C." -> "llc", "Macy's" -> "macys"
		case r == '&':
			b.WriteString(" and ")
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}

func uniqueSorted(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// split partitions two sorted token sets.
func split(a, b []string) (common, onlyA, onlyB []string) {
	inB := make(map[string]struct{}, len(b))
	for _, t := range b {
		inB[t] = struct{}{}
	}
	inA := make(map[string]struct{}, len(a))
	for _, t := range a {
		inA[t] = struct{}{}
		if _, ok := inB[t]; ok {
			common = append(common, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for _, t := range b {
		if _, ok := inA[t]; !ok {
			onlyB = append(onlyB, t)
		}
	}
	return common, onlyA, onlyB
}

func joinParts(common, rest []string) string {
	parts := make([]string, 0, len(common)+len(rest))
	parts = append(parts, common...)
	parts = append(parts, rest...)
	return strings.Join(parts, " ")
}

func ratio(a, b string) float64 {
	if a == b {
		return 100
	}
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(dist)/float64(longest))
}
