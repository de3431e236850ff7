package repository

import (
	"skyvision/internal/dto"
	"skyvision/internal/model"
)

// PredictionRepository defines the interface for prediction history operations.
type PredictionRepository interface {
	// Create operations
	Insert(p *model.Prediction) (int64, error)

	// Read operations
	GetByFilename(filename string) (*model.Prediction, error)
	GetAll(filter *dto.PredictionFilters) ([]model.Prediction, error)
	GetTotalCount(filter *dto.PredictionFilters) (int, error)
	Exists(filename string) (bool, error)

	// Delete operations
	DeleteByFilename(filename string) error
}

// DetectionRepository defines the interface for detection data operations.
type DetectionRepository interface {
	// Create operations
	InsertBatch(detections []model.Detection) error

	// Read operations
	GetByPredictionID(predictionID int64) ([]model.Detection, error)
	GetClassCountsByPredictionID(predictionID int64) (map[string]int, error)
	GetClassCounts() (map[string]int, error)
}
