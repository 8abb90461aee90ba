package model

// SavedImage describes where a selected candidate ended up.
// Locator is empty when Error is set.
type SavedImage struct {
	Index         int
	Filename      string
	PersistedName string
	Locator       string
	Error         string
}

// SelectionResult is the outcome of one batch. It is built once and not
// modified afterwards.
type SelectionResult struct {
	BatchID string
	Count   int
	All     []ScoredCandidate // OK candidates, best first
	Top     []ScoredCandidate // prefix of All
	Failed  []ScoredCandidate
	Saved   map[int]SavedImage // keyed by candidate Index
}

// SavedFor returns the persistence outcome of a top candidate.
func (r *SelectionResult) SavedFor(index int) (SavedImage, bool) {
	if r.Saved == nil {
		return SavedImage{}, false
	}
	saved, ok := r.Saved[index]
	return saved, ok
}
