package dto

// PredictionEvent is broadcast to websocket viewers after each successful prediction.
type PredictionEvent struct {
	Type             string         `json:"type"`
	Filename         string         `json:"filename"`
	UploadedImageURL string         `json:"uploaded_image_url"`
	ResultImageURL   string         `json:"result_image_url"`
	DetectionStats   map[string]int `json:"detection_stats"`
	TotalDetections  int            `json:"total_detections"`
	Timestamp        string         `json:"timestamp"`
}
