package model

// Detection represents a detected object in a processed upload.
type Detection struct {
	ID           int64   `json:"id"`
	PredictionID int64   `json:"prediction_id"`
	ClassID      int     `json:"class_id"`
	ClassName    string  `json:"class_name"`
	X            int     `json:"x"`
	Y            int     `json:"y"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	Confidence   float64 `json:"confidence"`
}
