package dto

// PredictResponse is the success payload of POST /predict.
type PredictResponse struct {
	Status           string         `json:"status"`
	UploadedImageURL string         `json:"uploaded_image_url"`
	ResultImageURL   string         `json:"result_image_url"`
	DetectionStats   map[string]int `json:"detection_stats"`
	TotalDetections  int            `json:"total_detections"`
	Filename         string         `json:"filename"`
	Timestamp        string         `json:"timestamp"`
	FileSize         int64          `json:"file_size"`
}

// ErrorResponse is returned for every rejected or failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

// HealthResponse reports whether the detection model is available.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Service     string `json:"service"`
}
