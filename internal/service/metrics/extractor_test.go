package metrics

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"framepickr/internal/config"
	"framepickr/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// ===== Helpers =====

func uniformMat(t *testing.T, value float64, size int) gocv.Mat {
	t.Helper()
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(value, value, value, 0), size, size, gocv.MatTypeCV8UC3)
}

func checkerboardMat(t *testing.T, size, block int) gocv.Mat {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if ((x/block)+(y/block))%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 230})
			} else {
				img.SetGray(x, y, color.Gray{Y: 25})
			}
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	mat, err := gocv.IMDecode(buf.Bytes(), gocv.IMReadColor)
	require.NoError(t, err)
	require.False(t, mat.Empty())
	return mat
}

// ===== Extract =====

func TestExtractUniformGray(t *testing.T) {
	mat := uniformMat(t, 128, 100)
	defer mat.Close()

	e := NewExtractor(nil, logger.NewDiscardLogger())
	m, err := e.Extract(mat)
	require.NoError(t, err)

	assert.InDelta(t, 0, m.Sharpness, 1e-6)
	assert.InDelta(t, 128, m.Brightness, 1e-6)
	assert.Zero(t, m.FaceCount)
	assert.Zero(t, m.EyeCount)
	assert.Zero(t, m.SmileCount)
}

func TestExtractBrightnessRange(t *testing.T) {
	e := NewExtractor(nil, logger.NewDiscardLogger())

	for _, v := range []float64{0, 64, 255} {
		mat := uniformMat(t, v, 40)
		m, err := e.Extract(mat)
		mat.Close()

		require.NoError(t, err)
		assert.InDelta(t, v, m.Brightness, 1e-6)
		assert.GreaterOrEqual(t, m.Sharpness, 0.0)
	}
}

func TestExtractFinerDetailIsSharper(t *testing.T) {
	fine := checkerboardMat(t, 128, 2)
	defer fine.Close()
	coarse := checkerboardMat(t, 128, 32)
	defer coarse.Close()

	e := NewExtractor(nil, logger.NewDiscardLogger())

	fineMetrics, err := e.Extract(fine)
	require.NoError(t, err)
	coarseMetrics, err := e.Extract(coarse)
	require.NoError(t, err)

	assert.Greater(t, fineMetrics.Sharpness, coarseMetrics.Sharpness)
	assert.Greater(t, coarseMetrics.Sharpness, 0.0)
}

func TestExtractIsDeterministic(t *testing.T) {
	mat := checkerboardMat(t, 96, 4)
	defer mat.Close()

	e := NewExtractor(nil, logger.NewDiscardLogger())

	first, err := e.Extract(mat)
	require.NoError(t, err)
	second, err := e.Extract(mat)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExtractEmptyMat(t *testing.T) {
	mat := gocv.NewMat()
	defer mat.Close()

	_, err := NewExtractor(nil, logger.NewDiscardLogger()).Extract(mat)
	assert.True(t, errors.Is(err, ErrEmptyImage))
}

func TestExtractWithCascadesFindsNoFacesInPattern(t *testing.T) {
	paths := ModelPathsFromConfig(config.Default())
	set, err := LoadCascadeSet(paths)
	if err != nil {
		t.Skipf("haar cascades not installed: %v", err)
	}
	defer set.Close()

	mat := uniformMat(t, 128, 200)
	defer mat.Close()

	m, err := NewExtractor(set, logger.NewDiscardLogger()).Extract(mat)
	require.NoError(t, err)
	assert.Zero(t, m.FaceCount)
	assert.Zero(t, m.EyeCount)
	assert.Zero(t, m.SmileCount)
}

// ===== Detection =====

// fakeDetector returns fixed boxes and records the size of every image it sees.
type fakeDetector struct {
	boxes []image.Rectangle
	seen  []image.Point
	panic bool
}

func (d *fakeDetector) detect(img gocv.Mat, params DetectParams) []image.Rectangle {
	if d.panic {
		panic("classifier exploded")
	}
	d.seen = append(d.seen, image.Pt(img.Cols(), img.Rows()))
	return d.boxes
}

func TestDetectSumsEyesAndSmilesAcrossFaces(t *testing.T) {
	face := &fakeDetector{boxes: []image.Rectangle{
		image.Rect(0, 0, 40, 40),
		image.Rect(100, 100, 150, 160),
		image.Rect(180, 180, 260, 260),
	}}
	eye := &fakeDetector{boxes: []image.Rectangle{image.Rect(2, 2, 8, 8), image.Rect(20, 2, 26, 8)}}
	smile := &fakeDetector{boxes: []image.Rectangle{image.Rect(10, 25, 30, 35)}}

	e := &Extractor{face: face, eye: eye, smile: smile, logger: logger.NewDiscardLogger()}

	mat := uniformMat(t, 128, 200)
	defer mat.Close()

	m, err := e.Extract(mat)
	require.NoError(t, err)

	assert.Equal(t, 3, m.FaceCount)
	assert.Equal(t, 6, m.EyeCount)
	assert.Equal(t, 3, m.SmileCount)

	// Sub-detection runs on each face region, clipped to the image.
	assert.ElementsMatch(t, []image.Point{{40, 40}, {50, 60}, {20, 20}}, eye.seen)
	assert.Equal(t, eye.seen, smile.seen)
}

func TestDetectSkipsFacesOutsideTheImage(t *testing.T) {
	face := &fakeDetector{boxes: []image.Rectangle{image.Rect(10, 10, 50, 50), image.Rect(300, 300, 340, 340)}}
	eye := &fakeDetector{boxes: []image.Rectangle{image.Rect(1, 1, 5, 5)}}
	smile := &fakeDetector{}

	e := &Extractor{face: face, eye: eye, smile: smile, logger: logger.NewDiscardLogger()}

	mat := uniformMat(t, 128, 100)
	defer mat.Close()

	m, err := e.Extract(mat)
	require.NoError(t, err)

	assert.Equal(t, 2, m.FaceCount)
	assert.Equal(t, 1, m.EyeCount)
	assert.Zero(t, m.SmileCount)
	assert.Len(t, eye.seen, 1)
}

func TestDetectPanicDegradesToZeroCounts(t *testing.T) {
	face := &fakeDetector{boxes: []image.Rectangle{image.Rect(0, 0, 40, 40)}}
	eye := &fakeDetector{boxes: []image.Rectangle{image.Rect(1, 1, 5, 5)}}

	e := &Extractor{face: face, eye: eye, smile: &fakeDetector{panic: true}, logger: logger.NewDiscardLogger()}

	mat := uniformMat(t, 128, 100)
	defer mat.Close()

	m, err := e.Extract(mat)
	require.NoError(t, err)
	assert.Zero(t, m.FaceCount)
	assert.Zero(t, m.EyeCount)
	assert.Zero(t, m.SmileCount)
	assert.InDelta(t, 128, m.Brightness, 1e-6)
}

// ===== Fingerprint =====

func TestFingerprint(t *testing.T) {
	e := NewExtractor(nil, logger.NewDiscardLogger())

	a := checkerboardMat(t, 128, 64)
	defer a.Close()
	b := uniformMat(t, 128, 128)
	defer b.Close()

	fpA := e.Fingerprint(a)
	require.NotEmpty(t, fpA)
	assert.Equal(t, fpA, e.Fingerprint(a))

	same, err := FingerprintDistance(fpA, e.Fingerprint(a))
	require.NoError(t, err)
	assert.Zero(t, same)

	fpB := e.Fingerprint(b)
	require.NotEmpty(t, fpB)
	diff, err := FingerprintDistance(fpA, fpB)
	require.NoError(t, err)
	assert.Greater(t, diff, 0)

	empty := gocv.NewMat()
	defer empty.Close()
	assert.Empty(t, e.Fingerprint(empty))

	_, err = FingerprintDistance("zzz", fpA)
	assert.Error(t, err)
}

// ===== Models =====

func TestLoadCascadeSetMissingModel(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadCascadeSet(ModelPaths{
		Face:  filepath.Join(dir, "framepickr_missing_face.xml"),
		Eye:   filepath.Join(dir, "framepickr_missing_eye.xml"),
		Smile: filepath.Join(dir, "framepickr_missing_smile.xml"),
	})

	var mle *ModelLoadError
	require.True(t, errors.As(err, &mle))
	assert.Equal(t, "face", mle.Model)
}

func TestLoadCascadeSetsReturnsNothingOnFailure(t *testing.T) {
	sets, err := LoadCascadeSets(ModelPaths{Face: "nope.xml", Eye: "nope.xml", Smile: "nope.xml"}, 3)
	assert.Error(t, err)
	assert.Nil(t, sets)
}

func TestLoadCascadeSetsRejectsNonPositiveCount(t *testing.T) {
	for _, n := range []int{0, -1} {
		sets, err := LoadCascadeSets(ModelPathsFromConfig(config.Default()), n)
		assert.Error(t, err)
		assert.Nil(t, sets)
	}
}
