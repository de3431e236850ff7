package model

import "time"

// Prediction represents one processed upload and its rendered result.
type Prediction struct {
	ID              int64     `json:"id"`
	Filename        string    `json:"filename"`
	OriginalName    string    `json:"original_name"`
	ResultFilename  string    `json:"result_filename"`
	Timestamp       time.Time `json:"timestamp"`
	UploadPath      string    `json:"upload_path"`
	ResultPath      string    `json:"result_path"`
	FileSize        int64     `json:"file_size"`
	TotalDetections int       `json:"total_detections"`
}
