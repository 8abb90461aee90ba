package dto

import "framepickr/internal/model"

// CandidateReport is one scored image in a batch response.
type CandidateReport struct {
	Filename      string             `json:"filename"`
	Locator       string             `json:"locator,omitempty"`
	Score         float64            `json:"score"`
	Sharpness     float64            `json:"sharpness"`
	Brightness    float64            `json:"brightness"`
	FaceCount     int                `json:"faceCount"`
	EyeCount      int                `json:"eyeCount"`
	SmileCount    int                `json:"smileCount"`
	PersistedName string             `json:"persistedName,omitempty"`
	Width         int                `json:"width"`
	Height        int                `json:"height"`
	PersistError  string             `json:"persistError,omitempty"`
	Capture       *model.CaptureInfo `json:"capture,omitempty"`
	SimilarTo     string             `json:"similarTo,omitempty"`
}

// FailureReport names a candidate that could not be scored.
type FailureReport struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// SavedReport is one successfully persisted image.
type SavedReport struct {
	Filename      string `json:"filename"`
	PersistedName string `json:"persistedName"`
	Locator       string `json:"locator"`
}

// BatchReport is the JSON body returned for a scored batch.
type BatchReport struct {
	BatchID string            `json:"batchId"`
	Count   int               `json:"count"`
	Top     []CandidateReport `json:"top"`
	All     []CandidateReport `json:"all"`
	Errors  []FailureReport   `json:"errors"`
	Saved   []SavedReport     `json:"saved"`
}

// NewBatchReport flattens a SelectionResult. Slices are never nil so they
// encode as [] rather than null.
func NewBatchReport(result *model.SelectionResult) BatchReport {
	report := BatchReport{
		BatchID: result.BatchID,
		Count:   result.Count,
		Top:     make([]CandidateReport, 0, len(result.Top)),
		All:     make([]CandidateReport, 0, len(result.All)),
		Errors:  make([]FailureReport, 0, len(result.Failed)),
		Saved:   make([]SavedReport, 0, len(result.Saved)),
	}

	for _, c := range result.Top {
		report.Top = append(report.Top, candidateReport(result, c))

		if saved, ok := result.SavedFor(c.Index); ok && saved.Error == "" {
			report.Saved = append(report.Saved, SavedReport{
				Filename:      saved.Filename,
				PersistedName: saved.PersistedName,
				Locator:       saved.Locator,
			})
		}
	}
	for _, c := range result.All {
		report.All = append(report.All, candidateReport(result, c))
	}
	for _, c := range result.Failed {
		report.Errors = append(report.Errors, FailureReport{Filename: c.Filename, Reason: c.FailureReason})
	}

	return report
}

func candidateReport(result *model.SelectionResult, c model.ScoredCandidate) CandidateReport {
	item := CandidateReport{
		Filename:   c.Filename,
		Score:      c.Score,
		Sharpness:  c.Metrics.Sharpness,
		Brightness: c.Metrics.Brightness,
		FaceCount:  c.Metrics.FaceCount,
		EyeCount:   c.Metrics.EyeCount,
		SmileCount: c.Metrics.SmileCount,
		Width:      c.Width,
		Height:     c.Height,
		SimilarTo:  c.SimilarTo,
	}
	if !c.Capture.Empty() {
		capture := c.Capture
		item.Capture = &capture
	}
	if saved, ok := result.SavedFor(c.Index); ok {
		item.PersistedName = saved.PersistedName
		item.Locator = saved.Locator
		item.PersistError = saved.Error
	}
	return item
}
