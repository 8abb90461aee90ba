package sqlite

import (
	"database/sql"
	"fmt"

	"framepickr/internal/dto"
	"framepickr/internal/model"
)

const selectionColumns = `id, batch_id, rank, filename, persisted_name, locator, score, sharpness, brightness,
	face_count, eye_count, smile_count, fingerprint, width, height, filesize, persist_error`

// SelectionRepository implements repository.SelectionRepository for SQLite.
type SelectionRepository struct {
	db *DB
}

// NewSelectionRepository creates a new SQLite selection repository.
func NewSelectionRepository(db *DB) *SelectionRepository {
	return &SelectionRepository{db: db}
}

// InsertBatch stores a batch and its selections in one transaction.
func (r *SelectionRepository) InsertBatch(batch *model.Batch, selections []model.Selection) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO batches (id, created_at, candidate_count, scored_count, failed_count, top_n)
		VALUES (?, ?, ?, ?, ?, ?)
	`, batch.ID, batch.CreatedAt.UTC(), batch.CandidateCount, batch.ScoredCount, batch.FailedCount, batch.TopN); err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO selections (batch_id, rank, filename, persisted_name, locator, score, sharpness, brightness,
			face_count, eye_count, smile_count, fingerprint, width, height, filesize, persist_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare selection insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range selections {
		if _, err := stmt.Exec(batch.ID, s.Rank, s.Filename, s.PersistedName, s.Locator, s.Score, s.Sharpness, s.Brightness,
			s.FaceCount, s.EyeCount, s.SmileCount, s.Fingerprint, s.Width, s.Height, s.FileSize, s.PersistError); err != nil {
			return fmt.Errorf("failed to insert selection: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// GetBatch retrieves a batch by its ID.
func (r *SelectionRepository) GetBatch(id string) (*model.Batch, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var b model.Batch
	err := r.db.Conn().QueryRow(`
		SELECT id, created_at, candidate_count, scored_count, failed_count, top_n
		FROM batches WHERE id = ?
	`, id).Scan(&b.ID, &b.CreatedAt, &b.CandidateCount, &b.ScoredCount, &b.FailedCount, &b.TopN)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return &b, nil
}

// GetBatches retrieves batches, newest first.
func (r *SelectionRepository) GetBatches(filter *dto.BatchFilter) ([]model.Batch, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `
		SELECT id, created_at, candidate_count, scored_count, failed_count, top_n
		FROM batches
		WHERE 1=1
	`
	args := []interface{}{}

	if filter != nil && !filter.After.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.After.UTC())
	}

	if filter != nil && !filter.Before.IsZero() {
		query += " AND created_at <= ?"
		args = append(args, filter.Before.UTC())
	}

	query += " ORDER BY created_at DESC, rowid DESC"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var batches []model.Batch
	for rows.Next() {
		var b model.Batch
		if err := rows.Scan(&b.ID, &b.CreatedAt, &b.CandidateCount, &b.ScoredCount, &b.FailedCount, &b.TopN); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// GetTotalCount returns the number of recorded batches.
func (r *SelectionRepository) GetTotalCount() (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM batches`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count batches: %w", err)
	}
	return count, nil
}

// GetSelectionsByBatchID returns a batch's selections ordered by rank.
func (r *SelectionRepository) GetSelectionsByBatchID(batchID string) ([]model.Selection, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.querySelections(`SELECT `+selectionColumns+` FROM selections WHERE batch_id = ? ORDER BY rank`, batchID)
}

func (r *SelectionRepository) querySelections(query string, args ...interface{}) ([]model.Selection, error) {
	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query selections: %w", err)
	}
	defer rows.Close()

	var selections []model.Selection
	for rows.Next() {
		var s model.Selection
		if err := rows.Scan(&s.ID, &s.BatchID, &s.Rank, &s.Filename, &s.PersistedName, &s.Locator, &s.Score,
			&s.Sharpness, &s.Brightness, &s.FaceCount, &s.EyeCount, &s.SmileCount, &s.Fingerprint,
			&s.Width, &s.Height, &s.FileSize, &s.PersistError); err != nil {
			return nil, fmt.Errorf("failed to scan selection: %w", err)
		}
		selections = append(selections, s)
	}
	return selections, rows.Err()
}

// DeleteBatch removes a batch and its selections.
func (r *SelectionRepository) DeleteBatch(id string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM selections WHERE batch_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete selections: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM batches WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	return nil
}
