package route

import (
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"skyvision/internal/config"
	"skyvision/internal/handler"
	"skyvision/internal/logger"
	"skyvision/internal/metrics"
	"skyvision/internal/middleware"
	"skyvision/internal/service"
	"skyvision/internal/service/websocket"
)

// logFiles maps the /logs/{level} endpoints to log files.
var logFiles = map[string]string{
	"info":    logger.InfoFile,
	"warning": logger.WarningFile,
	"error":   logger.ErrorFile,
}

// dynamicHTMLHandler serves /path as {static}/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean(path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// staticHandler serves files under staticDir. Results rendered without a WebP
// encoder are PNG data under a .webp name, so .webp files get the content type
// of their actual bytes.
func staticHandler(staticDir string) http.Handler {
	files := http.FileServer(http.Dir(staticDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.EqualFold(path.Ext(r.URL.Path), ".webp") {
			if ctype := sniffContentType(filepath.Join(staticDir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))); ctype != "" {
				w.Header().Set("Content-Type", ctype)
			}
		}
		files.ServeHTTP(w, r)
	})
}

func sniffContentType(file string) string {
	f, err := os.Open(file)
	if err != nil {
		return ""
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return ""
	}
	return http.DetectContentType(head[:n])
}

// SetupRoutes registers HTTP routes, static file serving and API endpoints,
// and wraps the mux with CORS, request logging and the body size cap.
func SetupRoutes(predictor *service.Predictor, hub *websocket.HubService, m *metrics.Metrics,
	cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Static files, including uploads and results
	mux.Handle("/static/", http.StripPrefix("/static/", staticHandler(cfg.StaticDirectory)))

	// Detection API
	mux.HandleFunc("/predict", handler.PredictHandler(predictor, cfg, logger))
	mux.HandleFunc("/health", handler.HealthHandler(predictor.Handle(), cfg))
	mux.Handle("/metrics", m.Handler())

	// History and live events
	mux.HandleFunc("/api/events", handler.EventsWebsocketHandler(hub, logger))
	mux.HandleFunc("/api/predictions", handler.PredictionsHandler(predictor, logger))
	mux.HandleFunc("/api/predictions/stats", handler.PredictionStatsHandler(predictor, logger))
	mux.HandleFunc("/api/predictions/detail", handler.PredictionDetailHandler(predictor, logger))
	mux.HandleFunc("/api/predictions/delete", handler.DeletePredictionHandler(predictor, logger))

	// Log endpoints
	for level, file := range logFiles {
		mux.HandleFunc("/logs/"+level, handler.ShowLogsHandler(logger, file))
		mux.HandleFunc("/logs/"+level+"/clear", handler.ClearLogsHandler(logger, file))
	}

	// Automatic HTML handler mapping for example: /about -> static/about.html
	mux.HandleFunc("/", dynamicHTMLHandler(cfg.StaticDirectory))

	var h http.Handler = mux
	h = middleware.BodyLimitMiddleware(cfg.MaxUploadSize)(h)
	h = middleware.LoggingMiddleware(logger, m)(h)
	return middleware.CORSMiddleware(h)
}
