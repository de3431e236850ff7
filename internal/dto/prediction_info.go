package dto

import (
	"encoding/json"
	"time"

	"skyvision/internal/model"
)

// PredictionInfo is one history entry as shown to clients.
type PredictionInfo struct {
	Filename         string         `json:"filename"`
	UploadedImageURL string         `json:"uploaded_image_url"`
	ResultImageURL   string         `json:"result_image_url"`
	Date             time.Time      `json:"date"`
	FileSize         int64          `json:"file_size"`
	DetectionStats   map[string]int `json:"detection_stats"`
	TotalDetections  int            `json:"total_detections"`
}

// MarshalJSON formats Date as DD-MM-YYYY HH:MM.
func (p PredictionInfo) MarshalJSON() ([]byte, error) {
	type Alias PredictionInfo
	return json.Marshal(&struct {
		Date string `json:"date"`
		Alias
	}{
		Date:  p.Date.Format("02-01-2006 15:04"),
		Alias: (Alias)(p),
	})
}

// PredictionsData is a paginated response payload for the history list.
type PredictionsData struct {
	Predictions []PredictionInfo `json:"predictions"`
	Length      int              `json:"length"`
	TotalPages  int              `json:"totalPages"`
	CurrentPage int              `json:"currentPage"`
	Limit       int              `json:"pageSize"`
}

// PredictionDetail is one history entry with its individual detections.
type PredictionDetail struct {
	Prediction   PredictionInfo    `json:"prediction"`
	OriginalName string            `json:"original_name"`
	Detections   []model.Detection `json:"detections"`
}

// PredictionStats summarizes the stored history.
type PredictionStats struct {
	TotalPredictions int            `json:"total_predictions"`
	TotalDetections  int            `json:"total_detections"`
	ClassCounts      map[string]int `json:"class_counts"`
	StorageBytes     int64          `json:"storage_bytes"`
}
