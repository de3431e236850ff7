package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"skyvision/internal/dto"
	"skyvision/internal/logger"
	"skyvision/internal/service"
)

const defaultPageSize = 24

// PredictionsHandler returns a filtered, paginated list of past predictions.
func PredictionsHandler(predictor *service.Predictor, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), defaultPageSize)

		filter := &dto.PredictionFilters{
			Class:      q.Get("class"),
			DateAfter:  parseDate(q.Get("dateAfter")),
			DateBefore: parseDate(q.Get("dateBefore")),
			Limit:      limit,
			Offset:     (page - 1) * limit,
		}

		data, err := predictor.History(filter, page)
		if err != nil {
			respondHistoryError(w, logger, err)
			return
		}

		respondJSON(w, http.StatusOK, data)
	}
}

// PredictionStatsHandler returns totals over the whole history.
func PredictionStatsHandler(predictor *service.Predictor, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := predictor.Stats()
		if err != nil {
			respondHistoryError(w, logger, err)
			return
		}

		respondJSON(w, http.StatusOK, stats)
	}
}

// DeletePredictionHandler removes an upload, its result image and its history row.
func DeletePredictionHandler(predictor *service.Predictor, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			w.Header().Set("Allow", "POST, DELETE")
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed.")
			return
		}

		filename := r.URL.Query().Get("filename")
		if filename == "" {
			respondError(w, http.StatusBadRequest, "Filename required")
			return
		}

		found, err := predictor.Delete(filename)
		if errors.Is(err, service.ErrInvalidFilename) {
			respondError(w, http.StatusBadRequest, "Invalid filename")
			return
		}
		if err != nil {
			logger.Error("Failed to delete %s: %v", filename, err)
			respondError(w, http.StatusInternalServerError, "Failed to delete prediction")
			return
		}
		if !found {
			respondError(w, http.StatusNotFound, "Prediction not found")
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{"status": "deleted", "filename": filename})
	}
}

// PredictionDetailHandler returns one stored prediction with its detections.
func PredictionDetailHandler(predictor *service.Predictor, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := r.URL.Query().Get("filename")
		if filename == "" {
			respondError(w, http.StatusBadRequest, "Filename required")
			return
		}

		detail, err := predictor.Detail(filename)
		if err != nil {
			respondHistoryError(w, logger, err)
			return
		}

		respondJSON(w, http.StatusOK, detail)
	}
}

func respondHistoryError(w http.ResponseWriter, logger *logger.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrHistoryDisabled):
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	case errors.Is(err, service.ErrInvalidFilename):
		respondError(w, http.StatusBadRequest, "Invalid filename")
		return
	case errors.Is(err, service.ErrPredictionNotFound):
		respondError(w, http.StatusNotFound, "Prediction not found")
		return
	}
	logger.Error("Error querying prediction history: %v", err)
	respondError(w, http.StatusInternalServerError, "Internal Server Error")
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" (HTML input format).
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
