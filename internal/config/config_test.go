package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "local", cfg.StorageBackend)
	assert.Equal(t, DefaultTopN, cfg.DefaultTopN)
	assert.Equal(t, int64(200<<20), cfg.MaxUploadBytes)
	assert.Equal(t, DefaultPreprocessLimits(), cfg.Preprocess)
	assert.Equal(t, DefaultScoringWeights(), cfg.Scoring)
	assert.Greater(t, cfg.ProcessingWorkers, 0)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "gcs")
	t.Setenv("GCS_BUCKET", "frames")
	t.Setenv("PROCESSING_WORKERS", "2")
	t.Setenv("BATCH_TIMEOUT_SECONDS", "30")
	t.Setenv("RESIZE_MIN_QUALITY", "40")
	t.Setenv("WEIGHT_SMILE", "3.5")

	cfg := Load()

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "gcs", cfg.StorageBackend)
	assert.Equal(t, "frames", cfg.GCSBucket)
	assert.Equal(t, 2, cfg.ProcessingWorkers)
	assert.Equal(t, 30*time.Second, cfg.BatchTimeout)
	assert.Equal(t, 40, cfg.Preprocess.MinQuality)
	assert.Equal(t, 3.5, cfg.Scoring.Smile)
}

func TestInvalidNumbersFallBackToDefaults(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	t.Setenv("WEIGHT_EYES", "lots")

	cfg := Load()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DefaultScoringWeights().Eyes, cfg.Scoring.Eyes)
}

func TestCascadePaths(t *testing.T) {
	cfg := Default()
	cfg.ModelDirectory = "/opt/models"

	face, eye, smile := cfg.CascadePaths()

	assert.Equal(t, filepath.Join("/opt/models", "haarcascade_frontalface_default.xml"), face)
	assert.Equal(t, filepath.Join("/opt/models", "haarcascade_eye.xml"), eye)
	assert.Equal(t, filepath.Join("/opt/models", "haarcascade_smile.xml"), smile)
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
	assert.NoError(t, Load().Validate())
}

func TestValidateRejectsUnsafeLimits(t *testing.T) {
	cases := map[string]func(c *Config){
		"zero quality step":        func(c *Config) { c.Preprocess.QualityStep = 0 },
		"negative quality step":    func(c *Config) { c.Preprocess.QualityStep = -5 },
		"zero processing workers":  func(c *Config) { c.ProcessingWorkers = 0 },
		"negative workers":         func(c *Config) { c.ProcessingWorkers = -1 },
		"zero persist workers":     func(c *Config) { c.PersistWorkers = 0 },
		"zero min quality":         func(c *Config) { c.Preprocess.MinQuality = 0 },
		"min above start quality":  func(c *Config) { c.Preprocess.MinQuality = 95 },
		"start quality above 100":  func(c *Config) { c.Preprocess.StartQuality = 101 },
		"zero target size":         func(c *Config) { c.Preprocess.TargetKB = 0 },
		"zero max dimension":       func(c *Config) { c.Preprocess.MaxDimension = 0 },
		"fallback scale of one":    func(c *Config) { c.Preprocess.FallbackScale = 1 },
		"default top above max":    func(c *Config) { c.DefaultTopN = MaxTopN + 1 },
		"non-positive batch limit": func(c *Config) { c.BatchTimeout = 0 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadedQualityStepIsValidated(t *testing.T) {
	t.Setenv("RESIZE_QUALITY_STEP", "0")
	t.Setenv("PROCESSING_WORKERS", "0")

	err := Load().Validate()

	assert.ErrorContains(t, err, "RESIZE_QUALITY_STEP")
	assert.ErrorContains(t, err, "PROCESSING_WORKERS")
}
