package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"framepickr/internal/config"
	"framepickr/internal/dto"
	"framepickr/internal/logger"
	"framepickr/internal/model"
	"framepickr/internal/repository"
	"framepickr/internal/service/cache"
	"framepickr/internal/service/metrics"
	"framepickr/internal/service/preprocess"
	"framepickr/internal/service/ranking"
	"framepickr/internal/service/scoring"
	"framepickr/internal/service/storage"

	"github.com/google/uuid"
)

// ProgressNotifier receives every candidate transition.
type ProgressNotifier interface {
	Publish(event dto.ProgressEvent)
}

// Orchestrator runs batches through preprocess, measure, score, rank and
// persist. Extractors are shared by all batches: a candidate borrows one
// for the duration of its measurement, so no extractor is ever used by two
// goroutines at once.
type Orchestrator struct {
	preprocessor *preprocess.Preprocessor
	extractors   chan *metrics.Extractor
	combiner     *scoring.Combiner
	persister    *storage.Persister
	cache        cache.MetricCache
	repository   repository.SelectionRepository
	notifier     ProgressNotifier
	logger       *logger.Logger

	numWorkers    int
	similarWithin int
}

// payload is what a scored candidate keeps for persistence.
type payload struct {
	data        []byte
	contentType string
	extension   string
}

// NewOrchestrator takes ownership of extractors. cache, repository and
// notifier may be nil.
func NewOrchestrator(
	extractors []*metrics.Extractor,
	preprocessor *preprocess.Preprocessor,
	combiner *scoring.Combiner,
	persister *storage.Persister,
	cache cache.MetricCache,
	repository repository.SelectionRepository,
	notifier ProgressNotifier,
	config *config.Config,
	logger *logger.Logger,
) *Orchestrator {
	pool := make(chan *metrics.Extractor, len(extractors))
	for _, e := range extractors {
		pool <- e
	}

	return &Orchestrator{
		preprocessor:  preprocessor,
		extractors:    pool,
		combiner:      combiner,
		persister:     persister,
		cache:         cache,
		repository:    repository,
		notifier:      notifier,
		logger:        logger,
		numWorkers:    max(1, config.ProcessingWorkers),
		similarWithin: SimilarDistance,
	}
}

// Run scores the batch, persists the top candidates and records the batch.
// Candidate Index is reassigned from slice position.
func (o *Orchestrator) Run(ctx context.Context, candidates []model.ImageCandidate, topN int) (*model.SelectionResult, error) {
	return o.run(ctx, candidates, topN, true)
}

// Score is Run without persistence or history.
func (o *Orchestrator) Score(ctx context.Context, candidates []model.ImageCandidate, topN int) (*model.SelectionResult, error) {
	return o.run(ctx, candidates, topN, false)
}

func (o *Orchestrator) run(ctx context.Context, candidates []model.ImageCandidate, topN int, persist bool) (*model.SelectionResult, error) {
	if cap(o.extractors) == 0 {
		return nil, fmt.Errorf("orchestrator has no extractors")
	}

	batchID := uuid.NewString()
	started := time.Now()
	total := len(candidates)

	o.logger.Info("📦 Batch %s: scoring %d candidate(s), top %d", batchID, total, topN)

	results := make([]model.ScoredCandidate, total)
	payloads := make([]payload, total)
	progress := newCounter(batchID, total, !persist, o.notifier)

	tasks := make(chan int, total)
	var wg sync.WaitGroup

	for w := 0; w < min(o.numWorkers, max(1, total)); w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range tasks {
				if ctx.Err() != nil {
					continue
				}
				candidate := candidates[i]
				candidate.Index = i
				results[i], payloads[i] = o.processCandidate(ctx, candidate, progress)
			}
		}(w)
	}

feed:
	for i := range candidates {
		select {
		case tasks <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(tasks)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		o.logger.Warning("Batch %s cancelled: %v", batchID, err)
		return nil, err
	}

	ranked := ranking.Rank(results, topN)
	markSimilar(ranked.All, o.similarWithin)

	result := &model.SelectionResult{
		BatchID: batchID,
		Count:   total,
		All:     ranked.All,
		Top:     ranked.Top,
		Failed:  ranked.Failed,
	}

	for rank, c := range ranked.All {
		stage := model.StageDiscarded
		if rank < len(ranked.Top) {
			stage = model.StageSelected
		}
		progress.publish(c, stage, "")
	}

	if persist && len(ranked.Top) > 0 {
		result.Saved = o.persistTop(ctx, ranked.Top, payloads, progress)
		o.record(result, topN, started)
	}

	progress.publish(model.ScoredCandidate{Index: -1}, model.StageBatchCompleted, "")
	o.logger.Info("✅ Batch %s: %d scored, %d failed, %d selected in %s",
		batchID, len(result.All), len(result.Failed), len(result.Top), time.Since(started).Round(time.Millisecond))

	return result, nil
}

// processCandidate moves one candidate from Received to Scored or Failed.
func (o *Orchestrator) processCandidate(ctx context.Context, candidate model.ImageCandidate, progress *counter) (scored model.ScoredCandidate, kept payload) {
	scored = model.ScoredCandidate{
		Index:    candidate.Index,
		Filename: candidate.Filename,
		Status:   model.StatusFailed,
	}
	progress.publish(scored, model.StageReceived, "")

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Candidate %s panicked: %v", candidate.Filename, r)
			scored.Status = model.StatusFailed
			scored.FailureReason = "internal error"
			kept = payload{}
			progress.publish(scored, model.StageFailed, scored.FailureReason)
		}
	}()

	img, err := o.preprocessor.Normalize(candidate)
	if err != nil {
		o.logger.Warning("Skipping %s: %v", candidate.Filename, err)
		scored.FailureReason = err.Error()
		progress.publish(scored, model.StageFailed, scored.FailureReason)
		return scored, payload{}
	}
	defer img.Close()

	scored.ContentType = img.ContentType
	scored.Width = img.Width
	scored.Height = img.Height
	scored.Size = len(img.Data)
	scored.Transformed = img.Transformed
	scored.Capture = img.Capture
	progress.publish(scored, model.StagePreprocessed, "")

	entry, err := o.measure(ctx, img)
	if err != nil {
		o.logger.Warning("Could not measure %s: %v", candidate.Filename, err)
		scored.FailureReason = err.Error()
		progress.publish(scored, model.StageFailed, scored.FailureReason)
		return scored, payload{}
	}

	scored.Metrics = entry.Metrics
	scored.Fingerprint = entry.Fingerprint
	scored.Score = o.combiner.Score(entry.Metrics)
	scored.Status = model.StatusOK
	progress.publish(scored, model.StageScored, "")

	return scored, payload{data: img.Data, contentType: img.ContentType, extension: img.Extension}
}

// measure returns cached metrics for the payload or computes them with a
// borrowed extractor.
func (o *Orchestrator) measure(ctx context.Context, img *preprocess.Image) (cache.Entry, error) {
	key := cache.Key(img.Data)
	if o.cache != nil {
		hit, err := o.cache.Get(ctx, key)
		if err != nil {
			o.logger.Warning("Metric cache read failed: %v", err)
		} else if hit != nil {
			return *hit, nil
		}
	}

	var extractor *metrics.Extractor
	select {
	case extractor = <-o.extractors:
	case <-ctx.Done():
		return cache.Entry{}, ctx.Err()
	}
	defer func() { o.extractors <- extractor }()

	m, err := extractor.Extract(img.Mat)
	if err != nil {
		return cache.Entry{}, err
	}
	entry := cache.Entry{Metrics: m, Fingerprint: extractor.Fingerprint(img.Mat)}

	if o.cache != nil {
		if err := o.cache.Set(ctx, key, entry); err != nil {
			o.logger.Warning("Metric cache write failed: %v", err)
		}
	}
	return entry, nil
}

func (o *Orchestrator) persistTop(ctx context.Context, top []model.ScoredCandidate, payloads []payload, progress *counter) map[int]model.SavedImage {
	items := make([]storage.Item, 0, len(top))
	for _, c := range top {
		p := payloads[c.Index]
		items = append(items, storage.Item{
			Index:       c.Index,
			Filename:    c.Filename,
			Data:        p.data,
			ContentType: p.contentType,
			Extension:   p.extension,
		})
	}

	saved := make(map[int]model.SavedImage, len(items))
	for i, s := range o.persister.Persist(ctx, items) {
		saved[s.Index] = s
		if s.Error != "" {
			progress.publish(top[i], model.StagePersistFailed, s.Error)
		} else {
			progress.publish(top[i], model.StagePersisted, "")
		}
	}
	return saved
}

// record stores the batch in the selection history. Failures are logged only.
func (o *Orchestrator) record(result *model.SelectionResult, topN int, started time.Time) {
	if o.repository == nil {
		return
	}

	batch := &model.Batch{
		ID:             result.BatchID,
		CreatedAt:      started,
		CandidateCount: result.Count,
		ScoredCount:    len(result.All),
		FailedCount:    len(result.Failed),
		TopN:           topN,
	}

	selections := make([]model.Selection, 0, len(result.Top))
	for rank, c := range result.Top {
		saved, _ := result.SavedFor(c.Index)
		selections = append(selections, model.Selection{
			BatchID:       result.BatchID,
			Rank:          rank + 1,
			Filename:      c.Filename,
			PersistedName: saved.PersistedName,
			Locator:       saved.Locator,
			Score:         c.Score,
			Sharpness:     c.Metrics.Sharpness,
			Brightness:    c.Metrics.Brightness,
			FaceCount:     c.Metrics.FaceCount,
			EyeCount:      c.Metrics.EyeCount,
			SmileCount:    c.Metrics.SmileCount,
			Fingerprint:   c.Fingerprint,
			Width:         c.Width,
			Height:        c.Height,
			FileSize:      int64(c.Size),
			PersistError:  saved.Error,
		})
	}

	if err := o.repository.InsertBatch(batch, selections); err != nil {
		o.logger.Error("Failed to record batch %s: %v", result.BatchID, err)
	}
}
