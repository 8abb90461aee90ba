package model

// Status is the terminal outcome of scoring a single candidate.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// ImageCandidate is one uploaded photo. Index is its submission order and
// identifies it for the rest of the batch.
type ImageCandidate struct {
	Index       int
	Filename    string
	ContentType string
	Data        []byte
}

// MetricSet holds the objective measurements taken from one image.
type MetricSet struct {
	Sharpness  float64 `json:"sharpness"`
	Brightness float64 `json:"brightness"`
	FaceCount  int     `json:"faceCount"`
	EyeCount   int     `json:"eyeCount"`
	SmileCount int     `json:"smileCount"`
}

// CaptureInfo is optional EXIF data carried through to the report.
type CaptureInfo struct {
	Make     string `json:"make,omitempty"`
	Model    string `json:"model,omitempty"`
	TakenAt  string `json:"takenAt,omitempty"`
	Software string `json:"software,omitempty"`
}

// Empty reports whether no EXIF field was found.
func (c CaptureInfo) Empty() bool {
	return c == CaptureInfo{}
}

// ScoredCandidate is the per-candidate record produced by the pipeline.
type ScoredCandidate struct {
	Index         int
	Filename      string
	ContentType   string
	Width         int
	Height        int
	Size          int
	Transformed   bool
	Metrics       MetricSet
	Score         float64
	Fingerprint   string
	SimilarTo     string // filename of a better-ranked near-identical shot in the same batch
	Capture       CaptureInfo
	Status        Status
	FailureReason string
}

// OK reports whether the candidate was scored.
func (c ScoredCandidate) OK() bool {
	return c.Status == StatusOK
}
