package preprocess

import (
	"errors"
	"fmt"
	"image"
	"math"

	"framepickr/internal/config"
	"framepickr/internal/logger"
	"framepickr/internal/model"

	"github.com/gabriel-vasile/mimetype"
	"gocv.io/x/gocv"
)

const kilobyte = 1024

// DecodeError means the payload could not be turned into pixels.
type DecodeError struct {
	Filename string
	Reason   string
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot decode %s: %s: %v", e.Filename, e.Reason, e.Err)
	}
	return fmt.Sprintf("cannot decode %s: %s", e.Filename, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err carries a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Image is a decoded candidate ready for measurement. Data holds the bytes the
// pixels were decoded from, which are also the bytes that get persisted.
type Image struct {
	Mat         gocv.Mat
	Width       int
	Height      int
	Data        []byte
	ContentType string
	Extension   string
	Transformed bool
	Quality     int // JPEG quality used, 0 when the upload was kept as is
	Capture     model.CaptureInfo
}

// Close releases the pixel buffer.
func (i *Image) Close() error {
	return i.Mat.Close()
}

// Preprocessor decodes uploads and shrinks oversized ones. It holds no mutable
// state and is safe for concurrent use.
type Preprocessor struct {
	limits config.PreprocessLimits
	logger *logger.Logger
}

func NewPreprocessor(config *config.Config, logger *logger.Logger) *Preprocessor {
	return &Preprocessor{
		limits: config.Preprocess,
		logger: logger,
	}
}

// Normalize decodes the candidate and, when it is larger than the size
// threshold, downscales and re-encodes it as JPEG. The caller owns the
// returned Image and must Close it.
func (p *Preprocessor) Normalize(candidate model.ImageCandidate) (*Image, error) {
	if len(candidate.Data) == 0 {
		return nil, &DecodeError{Filename: candidate.Filename, Reason: "empty payload"}
	}

	mat, err := decode(candidate.Filename, candidate.Data)
	if err != nil {
		return nil, err
	}

	mtype := mimetype.Detect(candidate.Data)
	capture := ReadCaptureInfo(candidate.Data, mtype.String())

	if len(candidate.Data) <= p.limits.SizeThresholdKB*kilobyte {
		return &Image{
			Mat:         mat,
			Width:       mat.Cols(),
			Height:      mat.Rows(),
			Data:        candidate.Data,
			ContentType: mtype.String(),
			Extension:   mtype.Extension(),
			Capture:     capture,
		}, nil
	}
	defer mat.Close()

	data, quality, err := p.compress(mat)
	if err != nil {
		return nil, fmt.Errorf("failed to compress %s: %w", candidate.Filename, err)
	}

	// Measure the pixels that will be persisted, not the pre-encode buffer.
	compressed, err := decode(candidate.Filename, data)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Compressed %s from %dKB to %dKB (%dx%d, quality %d)",
		candidate.Filename, len(candidate.Data)/kilobyte, len(data)/kilobyte,
		compressed.Cols(), compressed.Rows(), quality)

	return &Image{
		Mat:         compressed,
		Width:       compressed.Cols(),
		Height:      compressed.Rows(),
		Data:        data,
		ContentType: "image/jpeg",
		Extension:   ".jpg",
		Transformed: true,
		Quality:     quality,
		Capture:     capture,
	}, nil
}

// compress fits src inside MaxDimension and walks the JPEG quality down
// until the payload fits TargetKB. If the floor is reached and it is still
// too large, the image is scaled once more and the result accepted.
func (p *Preprocessor) compress(src gocv.Mat) ([]byte, int, error) {
	target := p.limits.TargetKB * kilobyte

	scaled := fitWithin(src, p.limits.MaxDimension)
	defer scaled.Close()

	step := max(p.limits.QualityStep, 1)
	quality := p.limits.StartQuality
	data, err := encodeJPEG(scaled, quality)
	if err != nil {
		return nil, 0, err
	}

	for len(data) > target && quality-step >= p.limits.MinQuality {
		quality -= step
		if data, err = encodeJPEG(scaled, quality); err != nil {
			return nil, 0, err
		}
	}

	if len(data) <= target || p.limits.FallbackScale <= 0 || p.limits.FallbackScale >= 1 {
		return data, quality, nil
	}

	smaller := scaleBy(scaled, p.limits.FallbackScale)
	defer smaller.Close()

	quality = p.limits.MinQuality
	if data, err = encodeJPEG(smaller, quality); err != nil {
		return nil, 0, err
	}
	return data, quality, nil
}

func decode(filename string, data []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.NewMat(), &DecodeError{Filename: filename, Reason: "unsupported image data", Err: err}
	}
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), &DecodeError{Filename: filename, Reason: "decoded image is empty"}
	}
	return mat, nil
}

// fitWithin returns a copy of src whose longer side is at most maxDimension.
// It never upscales.
func fitWithin(src gocv.Mat, maxDimension int) gocv.Mat {
	width, height := src.Cols(), src.Rows()
	longer := max(width, height)
	if maxDimension <= 0 || longer <= maxDimension {
		return src.Clone()
	}
	return scaleBy(src, float64(maxDimension)/float64(longer))
}

func scaleBy(src gocv.Mat, factor float64) gocv.Mat {
	width := max(1, int(math.Round(float64(src.Cols())*factor)))
	height := max(1, int(math.Round(float64(src.Rows())*factor)))

	dst := gocv.NewMat()
	gocv.Resize(src, &dst, image.Pt(width, height), 0, 0, gocv.InterpolationArea)
	return dst
}

func encodeJPEG(mat gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	encoded := buf.GetBytes()
	data := make([]byte, len(encoded))
	copy(data, encoded)
	return data, nil
}
