package storage

import (
	"context"

	"framepickr/internal/config"
	"framepickr/internal/logger"
	"framepickr/internal/model"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"
)

// Item is one selected image to be written.
type Item struct {
	Index       int
	Filename    string
	Data        []byte
	ContentType string
	Extension   string
}

// Persister writes selected images through a Backend.
type Persister struct {
	backend Backend
	workers int
	logger  *logger.Logger
}

func NewPersister(backend Backend, config *config.Config, logger *logger.Logger) *Persister {
	return &Persister{
		backend: backend,
		workers: max(1, config.PersistWorkers),
		logger:  logger,
	}
}

// Persist writes every item and returns one SavedImage per item in the same
// order. A failed item carries Error and no Locator; it does not stop the others.
func (p *Persister) Persist(ctx context.Context, items []Item) []model.SavedImage {
	saved := make([]model.SavedImage, len(items))

	var g errgroup.Group
	g.SetLimit(p.workers)

	for i, item := range items {
		g.Go(func() error {
			saved[i] = p.persistOne(ctx, item)
			return nil
		})
	}
	g.Wait()

	return saved
}

func (p *Persister) persistOne(ctx context.Context, item Item) model.SavedImage {
	contentType, ext := item.ContentType, item.Extension
	if contentType == "" || ext == "" {
		detected := mimetype.Detect(item.Data)
		if contentType == "" {
			contentType = detected.String()
		}
		if ext == "" {
			ext = detected.Extension()
		}
	}

	name := PersistedName(item.Filename, ext)
	result := model.SavedImage{
		Index:         item.Index,
		Filename:      item.Filename,
		PersistedName: name,
	}

	locator, err := p.backend.Store(ctx, item.Data, name, contentType)
	if err != nil {
		perr := &PersistError{Name: name, Err: err}
		p.logger.Error("%v", perr)
		result.Error = perr.Error()
		return result
	}

	result.Locator = locator
	p.logger.Info("Saved %s as %s", item.Filename, locator)
	return result
}
