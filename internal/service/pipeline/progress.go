package pipeline

import (
	"sync"

	"framepickr/internal/dto"
	"framepickr/internal/model"
)

// counter stamps progress events with the batch's terminal-stage tally.
// When nothing is persisted, Selected is the last stage a candidate reaches
// and counts as terminal.
type counter struct {
	mu            sync.Mutex
	batchID       string
	total         int
	done          int
	selectedFinal bool
	notifier      ProgressNotifier
}

func newCounter(batchID string, total int, selectedFinal bool, notifier ProgressNotifier) *counter {
	return &counter{batchID: batchID, total: total, selectedFinal: selectedFinal, notifier: notifier}
}

func (c *counter) terminal(stage model.Stage) bool {
	return stage.Terminal() || (c.selectedFinal && stage == model.StageSelected)
}

func (c *counter) publish(candidate model.ScoredCandidate, stage model.Stage, reason string) {
	if c.notifier == nil {
		return
	}

	c.mu.Lock()
	if c.terminal(stage) {
		c.done++
	}
	event := dto.ProgressEvent{
		BatchID:  c.batchID,
		Index:    candidate.Index,
		Filename: candidate.Filename,
		Stage:    stage,
		Score:    candidate.Score,
		Reason:   reason,
		Done:     c.done,
		Total:    c.total,
	}
	c.mu.Unlock()

	c.notifier.Publish(event)
}
