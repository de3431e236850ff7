package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"skyvision/internal/logger"
)

// ShowLogsHandler serves one of the per-level log files as text/plain.
func ShowLogsHandler(logger *logger.Logger, fileName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveLogFile(w, r, logger.Directory(), fileName)
	}
}

// serveLogFile is a helper that sets headers and serves a log file if it exists.
func serveLogFile(w http.ResponseWriter, r *http.Request, logDir, filename string) {
	filePath := filepath.Join(logDir, filename)

	if _, err := os.Stat(filePath); logDir == "" || os.IsNotExist(err) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Log file not found: " + filename))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	http.ServeFile(w, r, filePath)
}

// ClearLogsHandler truncates a log file via the logger utility.
func ClearLogsHandler(logger *logger.Logger, fileName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed.")
			return
		}

		if err := logger.CleanLogs(fileName); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to clear "+fileName)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
