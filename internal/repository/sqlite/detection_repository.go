package sqlite

import (
	"fmt"

	"skyvision/internal/model"
)

// DetectionRepository implements repository.DetectionRepository for SQLite.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository creates a new SQLite detection repository.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

// InsertBatch adds multiple detections in a single transaction.
func (r *DetectionRepository) InsertBatch(detections []model.Detection) error {
	if len(detections) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO detections (prediction_id, class_id, class_name, x, y, width, height, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, det := range detections {
		if _, err := stmt.Exec(det.PredictionID, det.ClassID, det.ClassName, det.X, det.Y, det.Width, det.Height, det.Confidence); err != nil {
			return fmt.Errorf("failed to insert detection: %w", err)
		}
	}

	return tx.Commit()
}

// GetByPredictionID retrieves all detections for a prediction.
func (r *DetectionRepository) GetByPredictionID(predictionID int64) ([]model.Detection, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, prediction_id, class_id, class_name, x, y, width, height, confidence
		FROM detections WHERE prediction_id = ? ORDER BY id
	`, predictionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var detections []model.Detection
	for rows.Next() {
		var det model.Detection
		if err := rows.Scan(&det.ID, &det.PredictionID, &det.ClassID, &det.ClassName, &det.X, &det.Y, &det.Width, &det.Height, &det.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		detections = append(detections, det)
	}

	return detections, rows.Err()
}

// GetClassCountsByPredictionID returns class name -> count for one prediction.
func (r *DetectionRepository) GetClassCountsByPredictionID(predictionID int64) (map[string]int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.classCounts(`
		SELECT class_name, COUNT(*) FROM detections
		WHERE prediction_id = ? GROUP BY class_name
	`, predictionID)
}

// GetClassCounts returns class name -> count across the whole history.
func (r *DetectionRepository) GetClassCounts() (map[string]int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.classCounts(`SELECT class_name, COUNT(*) FROM detections GROUP BY class_name`)
}

func (r *DetectionRepository) classCounts(query string, args ...interface{}) (map[string]int, error) {
	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query class counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("failed to scan class count: %w", err)
		}
		counts[name] = count
	}

	return counts, rows.Err()
}
