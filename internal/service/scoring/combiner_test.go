package scoring

import (
	"math"
	"testing"

	"framepickr/internal/config"
	"framepickr/internal/model"

	"github.com/stretchr/testify/assert"
)

func defaultCombiner() *Combiner {
	return NewCombiner(config.DefaultScoringWeights())
}

func TestScoreIsMonotonicInSharpness(t *testing.T) {
	c := defaultCombiner()
	prev := -1.0
	for _, s := range []float64{0, 10, 100, 500, 1000, 5000} {
		score := c.Score(model.MetricSet{Sharpness: s, Brightness: 128})
		assert.GreaterOrEqual(t, score, prev, "sharpness %v", s)
		prev = score
	}
}

func TestScoreIsMonotonicInFaces(t *testing.T) {
	c := defaultCombiner()
	prev := -1.0
	for faces := 0; faces <= 8; faces++ {
		score := c.Score(model.MetricSet{Sharpness: 200, Brightness: 120, FaceCount: faces, EyeCount: 2, SmileCount: 1})
		assert.GreaterOrEqual(t, score, prev, "faces %d", faces)
		prev = score
	}
}

func TestScoreBrightnessPeaksAtTarget(t *testing.T) {
	c := defaultCombiner()
	target := c.Weights().BrightnessTarget

	peak := c.Score(model.MetricSet{Brightness: target})
	assert.Greater(t, peak, c.Score(model.MetricSet{Brightness: target - 40}))
	assert.Greater(t, peak, c.Score(model.MetricSet{Brightness: target + 40}))
	assert.Greater(t, c.Score(model.MetricSet{Brightness: target + 40}), c.Score(model.MetricSet{Brightness: 255}))
}

func TestScoreEyesAndSmilesNeedFaces(t *testing.T) {
	c := defaultCombiner()

	base := c.Score(model.MetricSet{Sharpness: 300, Brightness: 128})
	assert.Equal(t, base, c.Score(model.MetricSet{Sharpness: 300, Brightness: 128, EyeCount: 4, SmileCount: 2}))

	oneFace := c.Score(model.MetricSet{Sharpness: 300, Brightness: 128, FaceCount: 1})
	withEyes := c.Score(model.MetricSet{Sharpness: 300, Brightness: 128, FaceCount: 1, EyeCount: 2})
	withSmile := c.Score(model.MetricSet{Sharpness: 300, Brightness: 128, FaceCount: 1, EyeCount: 2, SmileCount: 1})

	assert.Greater(t, oneFace, base)
	assert.Greater(t, withEyes, oneFace)
	assert.Greater(t, withSmile, withEyes)
}

func TestScoreSaturates(t *testing.T) {
	c := defaultCombiner()
	w := c.Weights()

	best := c.Score(model.MetricSet{Sharpness: 1e9, Brightness: w.BrightnessTarget, FaceCount: 100, EyeCount: 1000, SmileCount: 1000})
	ceiling := w.Sharpness + w.Brightness + w.FacePresence + w.FaceMarginal + w.Eyes + w.Smile
	assert.InDelta(t, ceiling, best, 1e-9)
}

func TestScoreSanitizesInputs(t *testing.T) {
	c := defaultCombiner()

	tests := []struct {
		name string
		m    model.MetricSet
	}{
		{"nan sharpness", model.MetricSet{Sharpness: math.NaN(), Brightness: 128}},
		{"inf sharpness", model.MetricSet{Sharpness: math.Inf(1), Brightness: 128}},
		{"nan brightness", model.MetricSet{Sharpness: 10, Brightness: math.NaN()}},
		{"negative counts", model.MetricSet{Sharpness: 10, Brightness: 128, FaceCount: -3, EyeCount: -1, SmileCount: -1}},
		{"brightness out of range", model.MetricSet{Brightness: 1000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := c.Score(tt.m)
			assert.False(t, math.IsNaN(score))
			assert.False(t, math.IsInf(score, 0))
			assert.GreaterOrEqual(t, score, 0.0)
		})
	}

	assert.Equal(t,
		c.Score(model.MetricSet{Sharpness: 10, Brightness: 128}),
		c.Score(model.MetricSet{Sharpness: 10, Brightness: 128, FaceCount: -3, EyeCount: -1, SmileCount: -1}))
}

func TestScoreIsDeterministic(t *testing.T) {
	c := defaultCombiner()
	m := model.MetricSet{Sharpness: 321.5, Brightness: 101.2, FaceCount: 2, EyeCount: 3, SmileCount: 1}
	assert.Equal(t, c.Score(m), c.Score(m))
}

func TestNewCombinerRepairsDegenerateWeights(t *testing.T) {
	c := NewCombiner(config.ScoringWeights{Sharpness: 1, Brightness: 1})

	score := c.Score(model.MetricSet{Sharpness: 50, Brightness: 128, FaceCount: 3})
	assert.False(t, math.IsNaN(score))
	assert.Greater(t, c.Weights().SharpnessCeiling, 0.0)
	assert.Greater(t, c.Weights().BrightnessTolerance, 0.0)
}
