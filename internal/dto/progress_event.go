package dto

import "framepickr/internal/model"

// ProgressEvent is pushed to progress listeners on every candidate transition.
// Index is -1 for batch-level events.
type ProgressEvent struct {
	BatchID  string      `json:"batchId"`
	Index    int         `json:"index"`
	Filename string      `json:"filename,omitempty"`
	Stage    model.Stage `json:"stage"`
	Score    float64     `json:"score,omitempty"`
	Reason   string      `json:"reason,omitempty"`
	Done     int         `json:"done"`
	Total    int         `json:"total"`
}
