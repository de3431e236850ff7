package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"skyvision/internal/config"
	"skyvision/internal/logger"
	"skyvision/internal/service"
)

// multipartMemory is how much of a multipart body is kept in memory before
// file parts spill to temporary files.
const multipartMemory = 8 << 20

// PredictHandler accepts a multipart upload in the "image" field and returns
// the detection result as JSON.
func PredictHandler(predictor *service.Predictor, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed.")
			return
		}

		tooLarge := fmt.Sprintf("File too large. Maximum upload size is %d MB.", cfg.MaxUploadSize>>20)
		if cfg.MaxUploadSize > 0 && r.ContentLength > cfg.MaxUploadSize {
			logger.Warning("Upload rejected: body of %d bytes exceeds limit", r.ContentLength)
			respondError(w, http.StatusRequestEntityTooLarge, tooLarge)
			return
		}

		form, err := parseForm(r)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				logger.Warning("Upload rejected: body exceeds %d bytes", maxErr.Limit)
				respondError(w, http.StatusRequestEntityTooLarge, tooLarge)
				return
			}
			// Anything else unparseable is treated as a request without an image part.
			logger.Warning("Failed to parse multipart form: %v", err)
		}
		if form != nil {
			defer form.RemoveAll()
		}

		response, err := predictor.Predict(r.Context(), form)
		if err != nil {
			respondError(w, statusForKind(service.KindOf(err)), err.Error())
			return
		}

		respondJSON(w, http.StatusOK, response)
	}
}

func parseForm(r *http.Request) (*multipart.Form, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, err
	}
	return r.MultipartForm, nil
}

func statusForKind(kind service.Kind) int {
	if kind.ClientError() {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
