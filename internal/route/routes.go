package route

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"framepickr/internal/config"
	"framepickr/internal/handler"
	"framepickr/internal/logger"
	"framepickr/internal/middleware"
	"framepickr/internal/repository"
	"framepickr/internal/service/websocket"
)

// Dependencies groups what the HTTP surface needs from the application.
type Dependencies struct {
	Scorer     handler.BatchScorer
	Repository repository.SelectionRepository // nil disables the history endpoints
	Hub        *websocket.HubService          // nil disables /api/progress
	Config     *config.Config
	Logger     *logger.Logger
}

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join("static", filepath.Clean("/"+strings.TrimSuffix(path, ".html"))+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers the API, log and file endpoints and wraps the mux
// with CORS and request logging.
func SetupRoutes(deps Dependencies) http.Handler {
	cfg, log := deps.Config, deps.Logger
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	// Saved images, when stored locally
	if cfg.StorageBackend == "local" {
		prefix := strings.TrimRight(cfg.UploadBaseURL, "/") + "/"
		if strings.HasPrefix(prefix, "/") {
			mux.Handle(prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.UploadDirectory))))
		}
	}

	// Scoring
	mux.HandleFunc("/api/score_and_save", handler.ScoreAndSaveHandler(deps.Scorer, cfg, log))
	mux.HandleFunc("/api/score", handler.ScoreOnlyHandler(deps.Scorer, cfg, log))

	if deps.Hub != nil {
		mux.HandleFunc("/api/progress", handler.ProgressWebsocketHandler(deps.Hub, log))
	}

	// History
	if deps.Repository != nil {
		mux.HandleFunc("/api/selections", handler.GetSelectionsHandler(deps.Repository, log))
		mux.HandleFunc("/api/selections/view", handler.ViewSelectionHandler(deps.Repository, log))
		mux.HandleFunc("/api/selections/delete", handler.DeleteSelectionHandler(deps.Repository, log))
	}

	// Log endpoints
	for _, level := range []struct{ path, file string }{
		{"info", logger.InfoFile},
		{"warning", logger.WarningFile},
		{"error", logger.ErrorFile},
	} {
		mux.HandleFunc("/logs/"+level.path, handler.ShowLogsHandler(log, level.file))
		mux.HandleFunc("/logs/"+level.path+"/clear", handler.ClearLogsHandler(log, level.file))
	}

	mux.HandleFunc("/health", handler.HealthHandler(log))

	// Automatic HTML handler mapping for example: /history -> /static/history.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	return middleware.CORSMiddleware(middleware.LoggingMiddleware(log, mux))
}
