package sqlite

import (
	"database/sql"
	"fmt"

	"skyvision/internal/dto"
	"skyvision/internal/model"
)

// PredictionRepository implements repository.PredictionRepository for SQLite.
type PredictionRepository struct {
	db *DB
}

// NewPredictionRepository creates a new SQLite prediction repository.
func NewPredictionRepository(db *DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

const predictionColumns = `p.id, p.filename, p.original_name, p.result_filename, p.timestamp,
	p.upload_path, p.result_path, p.filesize, p.total_detections`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPrediction(row rowScanner) (*model.Prediction, error) {
	var p model.Prediction
	err := row.Scan(&p.ID, &p.Filename, &p.OriginalName, &p.ResultFilename, &p.Timestamp,
		&p.UploadPath, &p.ResultPath, &p.FileSize, &p.TotalDetections)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Insert adds a new prediction record to the database.
func (r *PredictionRepository) Insert(p *model.Prediction) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO predictions (filename, original_name, result_filename, timestamp,
			upload_path, result_path, filesize, total_detections)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.Filename, p.OriginalName, p.ResultFilename, p.Timestamp.UTC(),
		p.UploadPath, p.ResultPath, p.FileSize, p.TotalDetections)
	if err != nil {
		return 0, fmt.Errorf("failed to insert prediction: %w", err)
	}

	return result.LastInsertId()
}

// GetByFilename retrieves a prediction by its stored upload filename.
// A missing row yields (nil, nil).
func (r *PredictionRepository) GetByFilename(filename string) (*model.Prediction, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`SELECT `+predictionColumns+` FROM predictions p WHERE p.filename = ?`, filename)
	p, err := scanPrediction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	return p, nil
}

// filterClause builds the WHERE part shared by GetAll and GetTotalCount.
func filterClause(filter *dto.PredictionFilters) (string, []interface{}) {
	clause := " WHERE 1=1"
	args := []interface{}{}

	if filter == nil {
		return clause, args
	}

	if filter.Class != "" {
		clause += " AND EXISTS (SELECT 1 FROM detections d WHERE d.prediction_id = p.id AND d.class_name = ?)"
		args = append(args, filter.Class)
	}

	if !filter.DateAfter.IsZero() {
		clause += " AND DATE(p.timestamp) >= DATE(?)"
		args = append(args, filter.DateAfter.Format("2006-01-02"))
	}

	if !filter.DateBefore.IsZero() {
		clause += " AND DATE(p.timestamp) <= DATE(?)"
		args = append(args, filter.DateBefore.Format("2006-01-02"))
	}

	return clause, args
}

// GetAll retrieves predictions, newest first, based on filter criteria.
func (r *PredictionRepository) GetAll(filter *dto.PredictionFilters) ([]model.Prediction, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	clause, args := filterClause(filter)
	query := `SELECT ` + predictionColumns + ` FROM predictions p` + clause + ` ORDER BY p.timestamp DESC, p.id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var predictions []model.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, *p)
	}

	return predictions, rows.Err()
}

// GetTotalCount returns the total count of predictions matching the filter.
func (r *PredictionRepository) GetTotalCount(filter *dto.PredictionFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	clause, args := filterClause(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM predictions p`+clause, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count predictions: %w", err)
	}

	return count, nil
}

// Exists checks if a prediction with the given filename exists.
func (r *PredictionRepository) Exists(filename string) (bool, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM predictions WHERE filename = ?`, filename).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check prediction existence: %w", err)
	}
	return count > 0, nil
}

// DeleteByFilename removes a prediction and its detections.
func (r *PredictionRepository) DeleteByFilename(filename string) error {
	r.db.Lock()
	defer r.db.Unlock()

	var predictionID int64
	err := r.db.Conn().QueryRow(`SELECT id FROM predictions WHERE filename = ?`, filename).Scan(&predictionID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get prediction id: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM detections WHERE prediction_id = ?`, predictionID); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM predictions WHERE id = ?`, predictionID); err != nil {
		return fmt.Errorf("failed to delete prediction: %w", err)
	}
	return nil
}
