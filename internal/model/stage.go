package model

// Stage is a step of a candidate's life within a batch:
//
//	Received -> Preprocessed -> Scored -> Selected  -> Persisted | PersistFailed
//	                                   \-> Discarded
//
// Received and Preprocessed may also end in Failed.
type Stage string

const (
	StageReceived      Stage = "received"
	StagePreprocessed  Stage = "preprocessed"
	StageScored        Stage = "scored"
	StageFailed        Stage = "failed"
	StageSelected      Stage = "selected"
	StageDiscarded     Stage = "discarded"
	StagePersisted     Stage = "persisted"
	StagePersistFailed Stage = "persist_failed"

	// StageBatchCompleted is reported once per batch, not per candidate.
	StageBatchCompleted Stage = "batch_completed"
)

// Terminal reports whether no further transition follows s.
func (s Stage) Terminal() bool {
	switch s {
	case StageFailed, StageDiscarded, StagePersisted, StagePersistFailed:
		return true
	}
	return false
}
