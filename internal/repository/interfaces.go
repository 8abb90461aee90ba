package repository

import (
	"framepickr/internal/dto"
	"framepickr/internal/model"
)

// SelectionRepository defines the interface for the selection history.
type SelectionRepository interface {
	// Create operations
	InsertBatch(batch *model.Batch, selections []model.Selection) error

	// Read operations
	GetBatch(id string) (*model.Batch, error)
	GetBatches(filter *dto.BatchFilter) ([]model.Batch, error)
	GetTotalCount() (int, error)
	GetSelectionsByBatchID(batchID string) ([]model.Selection, error)

	// Delete operations
	DeleteBatch(id string) error
}
