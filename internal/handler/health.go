package handler

import (
	"net/http"

	"skyvision/internal/config"
	"skyvision/internal/dto"
	"skyvision/internal/service/ai"
)

// HealthHandler reports whether the detection model is loaded. It always answers 200.
func HealthHandler(handle *ai.Handle, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "degraded"
		if handle.Loaded() {
			status = "healthy"
		}

		respondJSON(w, http.StatusOK, dto.HealthResponse{
			Status:      status,
			ModelLoaded: handle.Loaded(),
			Service:     cfg.ServiceName,
		})
	}
}
