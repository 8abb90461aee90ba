package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultTopN is used when a batch does not ask for a specific selection size.
	DefaultTopN = 5
	// MaxTopN caps top_n on the HTTP surface.
	MaxTopN = 20
)

// PreprocessLimits controls when and how uploads are downscaled and re-encoded.
type PreprocessLimits struct {
	SizeThresholdKB int     // payloads above this are transformed
	MaxDimension    int     // longer side after downscale
	StartQuality    int     // first JPEG quality tried
	TargetKB        int     // size the quality loop aims for
	QualityStep     int     // quality decrement per attempt
	MinQuality      int     // quality floor
	FallbackScale   float64 // extra downscale applied once at the floor
}

// ScoringWeights are the calibratable coefficients of the ranking score.
type ScoringWeights struct {
	Sharpness           float64
	SharpnessCeiling    float64 // Laplacian variance that counts as fully sharp
	Brightness          float64
	BrightnessTarget    float64
	BrightnessTolerance float64
	FacePresence        float64
	FaceMarginal        float64
	ExtraFaceCap        int
	Eyes                float64
	Smile               float64
}

type Config struct {
	Port           int
	LogDirectory   string
	ModelDirectory string
	FaceCascade    string
	EyeCascade     string
	SmileCascade   string

	UploadDirectory string
	UploadBaseURL   string
	StorageBackend  string // local or gcs
	GCSBucket       string
	GCSBaseURL      string

	DatabasePath string

	RedisAddr      string // empty disables the metric cache
	RedisPassword  string
	RedisDB        int
	MetricCacheTTL time.Duration

	ProcessingWorkers int // one cascade set is loaded per worker
	PersistWorkers    int
	DefaultTopN       int
	MaxTopN           int
	MaxUploadBytes    int64
	BatchTimeout      time.Duration

	Preprocess PreprocessLimits
	Scoring    ScoringWeights
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	defaults := Default()

	return &Config{
		Port:           getEnvAsInt("PORT", defaults.Port),
		LogDirectory:   getEnv("LOG_DIR", defaults.LogDirectory),
		ModelDirectory: getEnv("MODEL_DIR", defaults.ModelDirectory),
		FaceCascade:    getEnv("FACE_CASCADE", defaults.FaceCascade),
		EyeCascade:     getEnv("EYE_CASCADE", defaults.EyeCascade),
		SmileCascade:   getEnv("SMILE_CASCADE", defaults.SmileCascade),

		UploadDirectory: getEnv("UPLOAD_DIR", defaults.UploadDirectory),
		UploadBaseURL:   getEnv("UPLOAD_BASE_URL", defaults.UploadBaseURL),
		StorageBackend:  getEnv("STORAGE_BACKEND", defaults.StorageBackend),
		GCSBucket:       getEnv("GCS_BUCKET", defaults.GCSBucket),
		GCSBaseURL:      getEnv("GCS_BASE_URL", defaults.GCSBaseURL),

		DatabasePath: getEnv("DB_PATH", defaults.DatabasePath),

		RedisAddr:      getEnv("REDIS_ADDR", defaults.RedisAddr),
		RedisPassword:  getEnv("REDIS_PASSWORD", defaults.RedisPassword),
		RedisDB:        getEnvAsInt("REDIS_DB", defaults.RedisDB),
		MetricCacheTTL: time.Duration(getEnvAsInt("METRIC_CACHE_TTL_HOURS", 24)) * time.Hour,

		ProcessingWorkers: getEnvAsInt("PROCESSING_WORKERS", defaults.ProcessingWorkers),
		PersistWorkers:    getEnvAsInt("PERSIST_WORKERS", defaults.PersistWorkers),
		DefaultTopN:       getEnvAsInt("DEFAULT_TOP_N", defaults.DefaultTopN),
		MaxTopN:           getEnvAsInt("MAX_TOP_N", defaults.MaxTopN),
		MaxUploadBytes:    getEnvAsInt64("MAX_UPLOAD_MB", 200) << 20,
		BatchTimeout:      time.Duration(getEnvAsInt("BATCH_TIMEOUT_SECONDS", 300)) * time.Second,

		Preprocess: PreprocessLimits{
			SizeThresholdKB: getEnvAsInt("RESIZE_THRESHOLD_KB", defaults.Preprocess.SizeThresholdKB),
			MaxDimension:    getEnvAsInt("RESIZE_MAX_DIMENSION", defaults.Preprocess.MaxDimension),
			StartQuality:    getEnvAsInt("RESIZE_START_QUALITY", defaults.Preprocess.StartQuality),
			TargetKB:        getEnvAsInt("RESIZE_TARGET_KB", defaults.Preprocess.TargetKB),
			QualityStep:     getEnvAsInt("RESIZE_QUALITY_STEP", defaults.Preprocess.QualityStep),
			MinQuality:      getEnvAsInt("RESIZE_MIN_QUALITY", defaults.Preprocess.MinQuality),
			FallbackScale:   getEnvAsFloat("RESIZE_FALLBACK_SCALE", defaults.Preprocess.FallbackScale),
		},
		Scoring: ScoringWeights{
			Sharpness:           getEnvAsFloat("WEIGHT_SHARPNESS", defaults.Scoring.Sharpness),
			SharpnessCeiling:    getEnvAsFloat("WEIGHT_SHARPNESS_CEILING", defaults.Scoring.SharpnessCeiling),
			Brightness:          getEnvAsFloat("WEIGHT_BRIGHTNESS", defaults.Scoring.Brightness),
			BrightnessTarget:    getEnvAsFloat("WEIGHT_BRIGHTNESS_TARGET", defaults.Scoring.BrightnessTarget),
			BrightnessTolerance: getEnvAsFloat("WEIGHT_BRIGHTNESS_TOLERANCE", defaults.Scoring.BrightnessTolerance),
			FacePresence:        getEnvAsFloat("WEIGHT_FACE_PRESENCE", defaults.Scoring.FacePresence),
			FaceMarginal:        getEnvAsFloat("WEIGHT_FACE_MARGINAL", defaults.Scoring.FaceMarginal),
			ExtraFaceCap:        getEnvAsInt("WEIGHT_EXTRA_FACE_CAP", defaults.Scoring.ExtraFaceCap),
			Eyes:                getEnvAsFloat("WEIGHT_EYES", defaults.Scoring.Eyes),
			Smile:               getEnvAsFloat("WEIGHT_SMILE", defaults.Scoring.Smile),
		},
	}
}

// Default returns the configuration used when no environment overrides are set.
func Default() *Config {
	return &Config{
		Port:           8080,
		LogDirectory:   filepath.Join(".", "logs"),
		ModelDirectory: filepath.Join(".", "models"),
		FaceCascade:    "haarcascade_frontalface_default.xml",
		EyeCascade:     "haarcascade_eye.xml",
		SmileCascade:   "haarcascade_smile.xml",

		UploadDirectory: filepath.Join(".", "uploads"),
		UploadBaseURL:   "/uploads",
		StorageBackend:  "local",
		GCSBaseURL:      "https://storage.googleapis.com",

		DatabasePath: filepath.Join(".", "framepickr.db"),

		MetricCacheTTL: 24 * time.Hour,

		ProcessingWorkers: runtime.NumCPU(),
		PersistWorkers:    4,
		DefaultTopN:       DefaultTopN,
		MaxTopN:           MaxTopN,
		MaxUploadBytes:    200 << 20,
		BatchTimeout:      5 * time.Minute,

		Preprocess: DefaultPreprocessLimits(),
		Scoring:    DefaultScoringWeights(),
	}
}

// DefaultPreprocessLimits keeps uploads under roughly 700KB at 1600px.
func DefaultPreprocessLimits() PreprocessLimits {
	return PreprocessLimits{
		SizeThresholdKB: 800,
		MaxDimension:    1600,
		StartQuality:    92,
		TargetKB:        700,
		QualityStep:     10,
		MinQuality:      30,
		FallbackScale:   0.8,
	}
}

func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		Sharpness:           1.0,
		SharpnessCeiling:    1000,
		Brightness:          0.5,
		BrightnessTarget:    128,
		BrightnessTolerance: 128,
		FacePresence:        1.0,
		FaceMarginal:        0.25,
		ExtraFaceCap:        4,
		Eyes:                1.5,
		Smile:               2.0,
	}
}

// Validate rejects limits that would stall or crash the pipeline.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	p := c.Preprocess
	check(c.ProcessingWorkers >= 1, "PROCESSING_WORKERS must be at least 1, got %d", c.ProcessingWorkers)
	check(c.PersistWorkers >= 1, "PERSIST_WORKERS must be at least 1, got %d", c.PersistWorkers)
	check(c.MaxTopN >= 1, "MAX_TOP_N must be at least 1, got %d", c.MaxTopN)
	check(c.DefaultTopN >= 1 && c.DefaultTopN <= c.MaxTopN, "DEFAULT_TOP_N must be in [1, %d], got %d", c.MaxTopN, c.DefaultTopN)
	check(c.MaxUploadBytes > 0, "MAX_UPLOAD_MB must be positive")
	check(c.BatchTimeout > 0, "BATCH_TIMEOUT_SECONDS must be positive")
	check(p.SizeThresholdKB >= 0, "RESIZE_THRESHOLD_KB must not be negative, got %d", p.SizeThresholdKB)
	check(p.MaxDimension >= 1, "RESIZE_MAX_DIMENSION must be at least 1, got %d", p.MaxDimension)
	check(p.QualityStep >= 1, "RESIZE_QUALITY_STEP must be at least 1, got %d", p.QualityStep)
	check(p.TargetKB > 0, "RESIZE_TARGET_KB must be positive, got %d", p.TargetKB)
	check(p.MinQuality > 0 && p.MinQuality <= p.StartQuality && p.StartQuality <= 100,
		"quality bounds must satisfy 0 < RESIZE_MIN_QUALITY <= RESIZE_START_QUALITY <= 100, got %d and %d", p.MinQuality, p.StartQuality)
	check(p.FallbackScale > 0 && p.FallbackScale < 1, "RESIZE_FALLBACK_SCALE must be in (0, 1), got %g", p.FallbackScale)

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// CascadePaths resolves the three cascade files inside ModelDirectory.
func (c *Config) CascadePaths() (face, eye, smile string) {
	return filepath.Join(c.ModelDirectory, c.FaceCascade),
		filepath.Join(c.ModelDirectory, c.EyeCascade),
		filepath.Join(c.ModelDirectory, c.SmileCascade)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
