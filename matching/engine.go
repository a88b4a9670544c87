package matching

import (
	"github.com/lgadye/warn-monitor/types"
)

// FilterForTarget returns the records whose organization name matches
// target, in input order. No matches is an empty, non-nil slice.
func FilterForTarget(records []types.ObservedRecord, target string, threshold float64) []types.MatchResult {
	results := make([]types.MatchResult, 0)
	targetTokens := Tokens(target)
	if len(targetTokens) == 0 {
		return results
	}

	for _, rec := range records {
		if len(Tokens(rec.OrganizationName)) == 0 {
			continue
		}
		score := Score(rec.OrganizationName, target)
		if score >= threshold {
			results = append(results, types.MatchResult{Record: rec, Score: score})
		}
	}
	return results
}
