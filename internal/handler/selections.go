package handler

import (
	"net/http"
	"strconv"
	"time"

	"framepickr/internal/dto"
	"framepickr/internal/logger"
	"framepickr/internal/model"
	"framepickr/internal/repository"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// SelectionsPage is the response of GetSelectionsHandler.
type SelectionsPage struct {
	Batches []model.Batch `json:"batches"`
	Total   int           `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
}

// GetSelectionsHandler lists recorded batches, newest first. Supports
// limit, offset, after and before (YYYY-MM-DD) query parameters.
func GetSelectionsHandler(repo repository.SelectionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit := atoiDefault(q.Get("limit"), defaultHistoryLimit)
		if limit < 1 {
			limit = defaultHistoryLimit
		}
		filter := &dto.BatchFilter{
			After:  parseDate(q.Get("after")),
			Before: endOfDay(parseDate(q.Get("before"))),
			Limit:  min(limit, maxHistoryLimit),
			Offset: atoiDefault(q.Get("offset"), 0),
		}

		batches, err := repo.GetBatches(filter)
		if err != nil {
			logger.Error("Error querying batches: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		if batches == nil {
			batches = []model.Batch{}
		}

		total, err := repo.GetTotalCount()
		if err != nil {
			logger.Error("Error counting batches: %v", err)
			total = len(batches)
		}

		writeJSON(w, http.StatusOK, SelectionsPage{
			Batches: batches,
			Total:   total,
			Limit:   filter.Limit,
			Offset:  filter.Offset,
		}, logger)
	}
}

// ViewSelectionHandler returns one batch and its saved selections.
func ViewSelectionHandler(repo repository.SelectionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "id parameter is required")
			return
		}

		batch, err := repo.GetBatch(id)
		if err != nil {
			logger.Error("Error querying batch %s: %v", id, err)
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		if batch == nil {
			writeError(w, http.StatusNotFound, "batch not found")
			return
		}

		selections, err := repo.GetSelectionsByBatchID(id)
		if err != nil {
			logger.Error("Error querying selections of %s: %v", id, err)
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		if selections == nil {
			selections = []model.Selection{}
		}

		writeJSON(w, http.StatusOK, model.BatchWithSelections{Batch: *batch, Selections: selections}, logger)
	}
}

// DeleteSelectionHandler removes a batch from the history. Saved images
// are left in place.
func DeleteSelectionHandler(repo repository.SelectionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete && r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		id := r.URL.Query().Get("id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "id parameter is required")
			return
		}

		if err := repo.DeleteBatch(id); err != nil {
			logger.Error("Failed to delete batch %s: %v", id, err)
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		logger.Info("Deleted batch: %s", id)
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id}, logger)
	}
}

// atoiDefault converts s to int or returns def when conversion fails or the value is negative.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}

// parseDate parses a "2006-01-02" date (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func endOfDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.Add(24*time.Hour - time.Nanosecond)
}
