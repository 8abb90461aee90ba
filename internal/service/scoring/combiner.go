// Package scoring turns a MetricSet into a single ranking score.
package scoring

import (
	"math"

	"framepickr/internal/config"
	"framepickr/internal/model"
)

// Combiner applies a fixed set of weights. It is stateless after construction.
type Combiner struct {
	weights config.ScoringWeights
}

func NewCombiner(weights config.ScoringWeights) *Combiner {
	if weights.SharpnessCeiling <= 0 {
		weights.SharpnessCeiling = config.DefaultScoringWeights().SharpnessCeiling
	}
	if weights.BrightnessTolerance <= 0 {
		weights.BrightnessTolerance = config.DefaultScoringWeights().BrightnessTolerance
	}
	if weights.ExtraFaceCap <= 0 {
		weights.ExtraFaceCap = 1
	}
	return &Combiner{weights: weights}
}

// Weights returns the coefficients in use.
func (c *Combiner) Weights() config.ScoringWeights {
	return c.weights
}

// Score is monotonically non-decreasing in sharpness and in face count,
// peaks when brightness equals the target, and is always finite.
func (c *Combiner) Score(m model.MetricSet) float64 {
	w := c.weights
	m = clampMetrics(m)

	sharp := clamp01(m.Sharpness / w.SharpnessCeiling)
	bright := clamp01(1 - math.Abs(m.Brightness-w.BrightnessTarget)/w.BrightnessTolerance)

	score := w.Sharpness*sharp + w.Brightness*bright

	if m.FaceCount > 0 {
		extra := float64(min(m.FaceCount-1, w.ExtraFaceCap)) / float64(w.ExtraFaceCap)
		score += w.FacePresence + w.FaceMarginal*extra

		// Bonuses saturate and do not depend on FaceCount.
		eyesOpen := clamp01(float64(m.EyeCount) / 2)
		smiling := clamp01(float64(m.SmileCount))
		score += w.Eyes*eyesOpen + w.Smile*smiling
	}

	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return score
}

func clampMetrics(m model.MetricSet) model.MetricSet {
	if math.IsNaN(m.Sharpness) || math.IsInf(m.Sharpness, 0) || m.Sharpness < 0 {
		m.Sharpness = 0
	}
	if math.IsNaN(m.Brightness) || math.IsInf(m.Brightness, 0) {
		m.Brightness = 0
	}
	m.Brightness = math.Max(0, math.Min(255, m.Brightness))
	m.FaceCount = max(0, m.FaceCount)
	m.EyeCount = max(0, m.EyeCount)
	m.SmileCount = max(0, m.SmileCount)
	return m
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
