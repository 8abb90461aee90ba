package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"framepickr/internal/config"

	"gocv.io/x/gocv"
)

// systemCascadeDirs are searched when a cascade is missing from the model directory.
var systemCascadeDirs = []string{
	"/usr/share/opencv4/haarcascades",
	"/usr/local/share/opencv4/haarcascades",
	"/opt/homebrew/share/opencv4/haarcascades",
}

// ModelLoadError is returned when a detector model cannot be loaded.
// The service cannot start without its models.
type ModelLoadError struct {
	Model string
	Path  string
	Err   error
}

func (e *ModelLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to load %s cascade from %s: %v", e.Model, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to load %s cascade from %s", e.Model, e.Path)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

// ModelPaths locates the three Haar cascades.
type ModelPaths struct {
	Face  string
	Eye   string
	Smile string
}

func ModelPathsFromConfig(cfg *config.Config) ModelPaths {
	face, eye, smile := cfg.CascadePaths()
	return ModelPaths{Face: face, Eye: eye, Smile: smile}
}

// CascadeSet is one loaded face/eye/smile triple. A set is not safe for
// concurrent use; each pipeline worker owns its own.
type CascadeSet struct {
	face  gocv.CascadeClassifier
	eye   gocv.CascadeClassifier
	smile gocv.CascadeClassifier
}

// LoadCascadeSet loads all three cascades or none.
func LoadCascadeSet(paths ModelPaths) (*CascadeSet, error) {
	face, err := loadCascade("face", paths.Face)
	if err != nil {
		return nil, err
	}

	eye, err := loadCascade("eye", paths.Eye)
	if err != nil {
		face.Close()
		return nil, err
	}

	smile, err := loadCascade("smile", paths.Smile)
	if err != nil {
		face.Close()
		eye.Close()
		return nil, err
	}

	return &CascadeSet{face: face, eye: eye, smile: smile}, nil
}

// LoadCascadeSets loads n independent sets, one per worker.
func LoadCascadeSets(paths ModelPaths, n int) ([]*CascadeSet, error) {
	if n < 1 {
		return nil, fmt.Errorf("at least one cascade set is required, got %d", n)
	}
	sets := make([]*CascadeSet, 0, n)
	for i := 0; i < n; i++ {
		set, err := LoadCascadeSet(paths)
		if err != nil {
			for _, loaded := range sets {
				loaded.Close()
			}
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}

// Close releases the classifiers.
func (s *CascadeSet) Close() {
	s.face.Close()
	s.eye.Close()
	s.smile.Close()
}

func loadCascade(model, path string) (gocv.CascadeClassifier, error) {
	resolved, err := resolveCascadePath(path)
	if err != nil {
		return gocv.CascadeClassifier{}, &ModelLoadError{Model: model, Path: path, Err: err}
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(resolved) {
		classifier.Close()
		return gocv.CascadeClassifier{}, &ModelLoadError{Model: model, Path: resolved}
	}
	return classifier, nil
}

// resolveCascadePath returns path if it exists, otherwise the first system
// OpenCV data directory containing a file with the same name.
func resolveCascadePath(path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	name := filepath.Base(path)
	for _, dir := range systemCascadeDirs {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("model file not found: %s", path)
}
