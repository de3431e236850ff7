package service

import (
	"skyvision/internal/dto"
	"skyvision/internal/service/ai"
	"skyvision/internal/service/storage"
)

// BuildStats counts detections per class name.
func BuildStats(detections []ai.Detection, handle *ai.Handle) map[string]int {
	stats := make(map[string]int)
	for _, d := range detections {
		stats[handle.ClassName(d.ClassID)]++
	}
	return stats
}

// TotalDetections sums the per-class counts.
func TotalDetections(stats map[string]int) int {
	total := 0
	for _, count := range stats {
		total += count
	}
	return total
}

// BuildResponse assembles the success payload for a processed upload.
func BuildResponse(store *storage.Store, alloc storage.Allocation, stats map[string]int, size int64) *dto.PredictResponse {
	return &dto.PredictResponse{
		Status:           "success",
		UploadedImageURL: store.UploadURL(alloc.Name()),
		ResultImageURL:   store.ResultURL(alloc.ResultName()),
		DetectionStats:   stats,
		TotalDetections:  TotalDetections(stats),
		Filename:         alloc.Name(),
		Timestamp:        alloc.TimestampString(),
		FileSize:         size,
	}
}
