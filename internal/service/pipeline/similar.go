package pipeline

import (
	"framepickr/internal/model"
	"framepickr/internal/service/metrics"
)

// SimilarDistance is the largest fingerprint distance at which two shots in
// one batch are reported as near-identical.
const SimilarDistance = 4

// markSimilar points each ranked candidate at the first better-ranked
// candidate whose fingerprint lies within maxDistance. Ranking is unchanged.
func markSimilar(ranked []model.ScoredCandidate, maxDistance int) {
	for i := range ranked {
		if ranked[i].Fingerprint == "" {
			continue
		}
		for j := 0; j < i; j++ {
			if ranked[j].Fingerprint == "" {
				continue
			}
			d, err := metrics.FingerprintDistance(ranked[i].Fingerprint, ranked[j].Fingerprint)
			if err != nil || d > maxDistance {
				continue
			}
			ranked[i].SimilarTo = ranked[j].Filename
			break
		}
	}
}
