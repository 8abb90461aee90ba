package metrics

import (
	"errors"
	"fmt"
	"image"
	"math"

	"framepickr/internal/logger"
	"framepickr/internal/model"

	"github.com/corona10/goimagehash"
	"gocv.io/x/gocv"
)

// DetectParams are the DetectMultiScale settings for one cascade.
type DetectParams struct {
	ScaleFactor  float64
	MinNeighbors int
	MinSize      int
}

var (
	FaceParams  = DetectParams{ScaleFactor: 1.1, MinNeighbors: 5, MinSize: 30}
	EyeParams   = DetectParams{ScaleFactor: 1.1, MinNeighbors: 3, MinSize: 10}
	SmileParams = DetectParams{ScaleFactor: 1.7, MinNeighbors: 22, MinSize: 15}
)

// fingerprintSize is the side of the grayscale thumbnail hashed by Fingerprint.
const fingerprintSize = 32

// ErrEmptyImage is returned for a Mat without pixels.
var ErrEmptyImage = errors.New("image has no pixels")

// detector finds objects in a grayscale image.
type detector interface {
	detect(img gocv.Mat, params DetectParams) []image.Rectangle
}

type cascadeDetector struct {
	classifier *gocv.CascadeClassifier
}

func (d cascadeDetector) detect(img gocv.Mat, params DetectParams) []image.Rectangle {
	return d.classifier.DetectMultiScaleWithParams(
		img,
		params.ScaleFactor,
		params.MinNeighbors,
		0,
		image.Pt(params.MinSize, params.MinSize),
		image.Pt(0, 0),
	)
}

// Extractor measures images. It is bound to one CascadeSet and must only be
// used by one goroutine at a time. A nil set disables detection.
type Extractor struct {
	face   detector
	eye    detector
	smile  detector
	logger *logger.Logger
}

func NewExtractor(cascades *CascadeSet, logger *logger.Logger) *Extractor {
	e := &Extractor{logger: logger}
	if cascades != nil {
		e.face = cascadeDetector{&cascades.face}
		e.eye = cascadeDetector{&cascades.eye}
		e.smile = cascadeDetector{&cascades.smile}
	}
	return e
}

// Extract computes the MetricSet of a BGR image. Detector failures degrade
// to zero counts; only an unusable image is an error.
func (e *Extractor) Extract(mat gocv.Mat) (model.MetricSet, error) {
	if mat.Empty() {
		return model.MetricSet{}, ErrEmptyImage
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if err := toGray(mat, &gray); err != nil {
		return model.MetricSet{}, err
	}

	sharpness := laplacianVariance(gray)
	brightness := meanLuma(gray)
	faces, eyes, smiles := e.detect(gray)

	return model.MetricSet{
		Sharpness:  sanitize(sharpness),
		Brightness: math.Min(255, sanitize(brightness)),
		FaceCount:  faces,
		EyeCount:   eyes,
		SmileCount: smiles,
	}, nil
}

// Fingerprint returns the hex difference hash of the image, or "" if it
// cannot be computed.
func (e *Extractor) Fingerprint(mat gocv.Mat) string {
	if mat.Empty() {
		return ""
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if err := toGray(mat, &gray); err != nil {
		return ""
	}

	thumb := gocv.NewMat()
	defer thumb.Close()
	gocv.Resize(gray, &thumb, image.Pt(fingerprintSize, fingerprintSize), 0, 0, gocv.InterpolationArea)

	img, err := thumb.ToImage()
	if err != nil {
		e.logger.Warning("Failed to convert thumbnail for fingerprint: %v", err)
		return ""
	}

	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		e.logger.Warning("Failed to hash image: %v", err)
		return ""
	}
	return hash.ToString()
}

// FingerprintDistance is the Hamming distance between two fingerprints.
func FingerprintDistance(a, b string) (int, error) {
	ha, err := goimagehash.ImageHashFromString(a)
	if err != nil {
		return 0, fmt.Errorf("invalid fingerprint %q: %w", a, err)
	}
	hb, err := goimagehash.ImageHashFromString(b)
	if err != nil {
		return 0, fmt.Errorf("invalid fingerprint %q: %w", b, err)
	}
	return ha.Distance(hb)
}

// detect counts faces, then eyes and smiles inside each face.
func (e *Extractor) detect(gray gocv.Mat) (faces, eyes, smiles int) {
	if e.face == nil {
		return 0, 0, 0
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Warning("Detection failed, counting zero faces: %v", r)
			faces, eyes, smiles = 0, 0, 0
		}
	}()

	boxes := SuppressOverlaps(e.face.detect(gray, FaceParams))
	bounds := image.Rect(0, 0, gray.Cols(), gray.Rows())

	for _, box := range boxes {
		box = box.Intersect(bounds)
		if box.Empty() {
			continue
		}
		faceEyes, faceSmiles := e.detectInFace(gray, box)
		eyes += faceEyes
		smiles += faceSmiles
	}

	return len(boxes), eyes, smiles
}

func (e *Extractor) detectInFace(gray gocv.Mat, box image.Rectangle) (eyes, smiles int) {
	roi := gray.Region(box)
	defer roi.Close()

	return len(e.eye.detect(roi, EyeParams)), len(e.smile.detect(roi, SmileParams))
}

func toGray(src gocv.Mat, dst *gocv.Mat) error {
	if src.Channels() == 1 {
		src.CopyTo(dst)
		return nil
	}
	if err := gocv.CvtColor(src, dst, gocv.ColorBGRToGray); err != nil {
		return fmt.Errorf("failed to convert to grayscale: %w", err)
	}
	return nil
}

// laplacianVariance is the variance of the Laplacian response; higher means sharper.
func laplacianVariance(gray gocv.Mat) float64 {
	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	_, stddev := meanStdDev(lap)
	return stddev * stddev
}

func meanLuma(gray gocv.Mat) float64 {
	mean, _ := meanStdDev(gray)
	return mean
}

func meanStdDev(src gocv.Mat) (float64, float64) {
	mean := gocv.NewMat()
	defer mean.Close()
	stddev := gocv.NewMat()
	defer stddev.Close()

	gocv.MeanStdDev(src, &mean, &stddev)
	if mean.Empty() || stddev.Empty() {
		return 0, 0
	}
	return mean.GetDoubleAt(0, 0), stddev.GetDoubleAt(0, 0)
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
