package model

import "time"

// Batch represents a scored batch record.
type Batch struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"createdAt"`
	CandidateCount int       `json:"candidateCount"`
	ScoredCount    int       `json:"scoredCount"`
	FailedCount    int       `json:"failedCount"`
	TopN           int       `json:"topN"`
}

// Selection represents one persisted top candidate of a batch.
type Selection struct {
	ID            int64   `json:"id"`
	BatchID       string  `json:"batchId"`
	Rank          int     `json:"rank"`
	Filename      string  `json:"filename"`
	PersistedName string  `json:"persistedName"`
	Locator       string  `json:"locator"`
	Score         float64 `json:"score"`
	Sharpness     float64 `json:"sharpness"`
	Brightness    float64 `json:"brightness"`
	FaceCount     int     `json:"faceCount"`
	EyeCount      int     `json:"eyeCount"`
	SmileCount    int     `json:"smileCount"`
	Fingerprint   string  `json:"fingerprint"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	FileSize      int64   `json:"filesize"`
	PersistError  string  `json:"persistError,omitempty"`
}

// BatchWithSelections groups a batch with its persisted selections.
type BatchWithSelections struct {
	Batch
	Selections []Selection `json:"selections"`
}
