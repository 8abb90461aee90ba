package ranking

import (
	"sort"

	"framepickr/internal/model"
)

// Ranking is the ordered view of a scored batch.
type Ranking struct {
	All    []model.ScoredCandidate // OK candidates, score descending
	Top    []model.ScoredCandidate // All[:topN]
	Failed []model.ScoredCandidate // in submission order
}

// ClampTopN bounds topN to [1, available]. It returns 0 when nothing is available.
func ClampTopN(topN, available int) int {
	if available <= 0 {
		return 0
	}
	if topN < 1 {
		return 1
	}
	return min(topN, available)
}

// Rank orders OK candidates by score, highest first. Equal scores keep
// submission order. The input slice is not modified.
func Rank(candidates []model.ScoredCandidate, topN int) Ranking {
	ok := make([]model.ScoredCandidate, 0, len(candidates))
	var failed []model.ScoredCandidate

	for _, c := range candidates {
		if c.OK() {
			ok = append(ok, c)
		} else {
			failed = append(failed, c)
		}
	}

	sort.SliceStable(failed, func(i, j int) bool {
		return failed[i].Index < failed[j].Index
	})
	sort.SliceStable(ok, func(i, j int) bool {
		if ok[i].Score != ok[j].Score {
			return ok[i].Score > ok[j].Score
		}
		return ok[i].Index < ok[j].Index
	})

	n := ClampTopN(topN, len(ok))
	return Ranking{
		All:    ok,
		Top:    ok[:n:n],
		Failed: failed,
	}
}
