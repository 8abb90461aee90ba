package ranking

import (
	"testing"

	"framepickr/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(index int, score float64) model.ScoredCandidate {
	return model.ScoredCandidate{Index: index, Score: score, Status: model.StatusOK}
}

func failed(index int) model.ScoredCandidate {
	return model.ScoredCandidate{Index: index, Status: model.StatusFailed, FailureReason: "cannot decode"}
}

func indexes(cs []model.ScoredCandidate) []int {
	out := make([]int, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Index)
	}
	return out
}

func TestRankOrdersByScoreDescending(t *testing.T) {
	r := Rank([]model.ScoredCandidate{
		candidate(0, 0.2),
		candidate(1, 0.9),
		candidate(2, 0.5),
	}, 2)

	assert.Equal(t, []int{1, 2, 0}, indexes(r.All))
	assert.Equal(t, []int{1, 2}, indexes(r.Top))
	assert.Empty(t, r.Failed)
}

func TestRankTiesKeepSubmissionOrder(t *testing.T) {
	r := Rank([]model.ScoredCandidate{
		candidate(0, 0.5),
		candidate(1, 0.7),
		candidate(2, 0.5),
		candidate(3, 0.5),
	}, 3)

	assert.Equal(t, []int{1, 0, 2, 3}, indexes(r.All))
	assert.Equal(t, []int{1, 0, 2}, indexes(r.Top))
}

func TestRankSeparatesFailures(t *testing.T) {
	r := Rank([]model.ScoredCandidate{
		failed(3),
		candidate(0, 0.1),
		failed(1),
		candidate(2, 0.3),
	}, 5)

	assert.Equal(t, []int{2, 0}, indexes(r.All))
	assert.Equal(t, []int{2, 0}, indexes(r.Top))
	assert.Equal(t, []int{1, 3}, indexes(r.Failed))
	for _, c := range r.All {
		assert.True(t, c.OK())
	}
}

func TestRankClampsTopN(t *testing.T) {
	input := []model.ScoredCandidate{candidate(0, 0.4), candidate(1, 0.6), candidate(2, 0.1)}

	tests := []struct {
		name string
		topN int
		want int
	}{
		{"zero becomes one", 0, 1},
		{"negative becomes one", -4, 1},
		{"within range", 2, 2},
		{"exactly all", 3, 3},
		{"more than available", 50, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Rank(input, tt.topN)
			require.Len(t, r.Top, tt.want)
			assert.Equal(t, r.All[:tt.want], r.Top)
		})
	}
}

func TestRankNothingScored(t *testing.T) {
	r := Rank([]model.ScoredCandidate{failed(0), failed(1)}, 5)
	assert.Empty(t, r.All)
	assert.Empty(t, r.Top)
	assert.Len(t, r.Failed, 2)

	empty := Rank(nil, 3)
	assert.Empty(t, empty.All)
	assert.Empty(t, empty.Top)
	assert.Empty(t, empty.Failed)
}

func TestRankDoesNotMutateInput(t *testing.T) {
	input := []model.ScoredCandidate{candidate(0, 0.1), candidate(1, 0.9)}
	Rank(input, 1)
	assert.Equal(t, []int{0, 1}, indexes(input))
}

func TestClampTopN(t *testing.T) {
	assert.Equal(t, 0, ClampTopN(5, 0))
	assert.Equal(t, 1, ClampTopN(0, 10))
	assert.Equal(t, 10, ClampTopN(99, 10))
	assert.Equal(t, 4, ClampTopN(4, 10))
}
