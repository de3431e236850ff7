// Package ai defines the detection model contract shared by the inference backends.
package ai

import (
	"fmt"
	"image"
)

const (
	// ConfidenceThreshold is the minimum score for a detection to be reported.
	ConfidenceThreshold = 0.25
	// IOUThreshold is the maximum overlap allowed between two kept boxes of one class.
	IOUThreshold = 0.7
	// InputSize is the square network input resolution.
	InputSize = 640
)

// Detection is one predicted object instance in source image pixels.
type Detection struct {
	ClassID    int
	Confidence float32
	Box        image.Rectangle
}

// Model is a loaded object detector.
type Model interface {
	// Predict runs inference on the image stored at path.
	Predict(path string) ([]Detection, error)
	// Render draws detections over the image at src and writes the result to dst.
	// The encoding follows the extension of dst.
	Render(src, dst string, detections []Detection) error
	// Names maps class ids to labels.
	Names() map[int]string
	Close() error
}

// ClassName resolves a class id against names, falling back to Class_{id}.
func ClassName(names map[int]string, classID int) string {
	if name, ok := names[classID]; ok {
		return name
	}
	return fmt.Sprintf("Class_%d", classID)
}

// Options configures a backend at load time.
type Options struct {
	ModelPath string
	// Names maps class ids to labels; the model must emit len(Names) classes.
	Names     map[int]string
	InputSize int
	// SharedLibrary is the onnxruntime library path; empty uses the system default.
	SharedLibrary string
}
