package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"framepickr/internal/config"
	"framepickr/internal/dto"
	"framepickr/internal/logger"
	"framepickr/internal/model"
)

// multipartMemory is how much of an upload is kept in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// BatchScorer runs a batch through the selection pipeline.
type BatchScorer interface {
	Run(ctx context.Context, candidates []model.ImageCandidate, topN int) (*model.SelectionResult, error)
	Score(ctx context.Context, candidates []model.ImageCandidate, topN int) (*model.SelectionResult, error)
}

// ScoreAndSaveHandler accepts a multipart upload ("files" field, optional
// "top_n" query parameter), scores every image, saves the best ones and
// returns the batch report.
func ScoreAndSaveHandler(scorer BatchScorer, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return batchHandler(scorer.Run, cfg, logger)
}

// ScoreOnlyHandler is ScoreAndSaveHandler without saving.
func ScoreOnlyHandler(scorer BatchScorer, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return batchHandler(scorer.Score, cfg, logger)
}

type runFunc func(ctx context.Context, candidates []model.ImageCandidate, topN int) (*model.SelectionResult, error)

func batchHandler(run runFunc, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		topN, err := parseTopN(r.URL.Query().Get("top_n"), cfg)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if r.ContentLength > cfg.MaxUploadBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		candidates, err := readCandidates(r.MultipartForm.File["files"])
		if err != nil {
			logger.Error("Error reading upload: %v", err)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(candidates) == 0 {
			writeError(w, http.StatusBadRequest, "no files uploaded")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), cfg.BatchTimeout)
		defer cancel()

		result, err := run(ctx, candidates, topN)
		if err != nil {
			logger.Error("Batch of %d image(s) failed: %v", len(candidates), err)
			if errors.Is(err, context.DeadlineExceeded) {
				writeError(w, http.StatusGatewayTimeout, "batch timed out")
				return
			}
			writeError(w, http.StatusServiceUnavailable, "batch was not completed")
			return
		}

		writeJSON(w, http.StatusOK, dto.NewBatchReport(result), logger)
	}
}

// parseTopN applies the default when raw is empty and rejects anything
// outside [1, MaxTopN].
func parseTopN(raw string, cfg *config.Config) (int, error) {
	if raw == "" {
		return cfg.DefaultTopN, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > cfg.MaxTopN {
		return 0, fmt.Errorf("top_n must be an integer between 1 and %d", cfg.MaxTopN)
	}
	return n, nil
}

// readCandidates loads uploaded parts in submission order.
func readCandidates(files []*multipart.FileHeader) ([]model.ImageCandidate, error) {
	candidates := make([]model.ImageCandidate, 0, len(files))
	for i, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
		}

		candidates = append(candidates, model.ImageCandidate{
			Index:       i,
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return candidates, nil
}

func writeJSON(w http.ResponseWriter, status int, body any, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
