package handler

import (
	"net/http"

	"framepickr/internal/logger"
)

// HealthHandler reports liveness.
func HealthHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	}
}
