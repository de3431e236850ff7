package config

import (
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"HOST", "PORT", "STATIC_DIR", "UPLOAD_DIR", "RESULT_DIR", "MAX_UPLOAD_SIZE", "MODEL_BACKEND", "SERVICE_NAME"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != 5000 {
		t.Errorf("Expected port 5000, got %d", cfg.Port)
	}
	if cfg.MaxUploadSize != 16*1024*1024 {
		t.Errorf("Expected 16 MiB limit, got %d", cfg.MaxUploadSize)
	}
	if cfg.UploadDirectory != filepath.Join("static", "uploads") || cfg.ResultDirectory != filepath.Join("static", "results") {
		t.Errorf("Unexpected directories %s, %s", cfg.UploadDirectory, cfg.ResultDirectory)
	}
	if cfg.ModelBackend != BackendOpenCV {
		t.Errorf("Expected opencv backend, got %s", cfg.ModelBackend)
	}
	if cfg.ServiceName != "SkyVision Object Detection API" {
		t.Errorf("Unexpected service name %s", cfg.ServiceName)
	}
	if cfg.Addr() != "0.0.0.0:5000" {
		t.Errorf("Unexpected address %s", cfg.Addr())
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("STATIC_DIR", "public")
	t.Setenv("UPLOAD_DIR", "")
	t.Setenv("MAX_UPLOAD_SIZE", "1024")
	t.Setenv("MODEL_BACKEND", BackendONNX)

	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Port)
	}
	if cfg.UploadDirectory != filepath.Join("public", "uploads") {
		t.Errorf("Upload directory should follow STATIC_DIR, got %s", cfg.UploadDirectory)
	}
	if cfg.MaxUploadSize != 1024 {
		t.Errorf("Expected limit 1024, got %d", cfg.MaxUploadSize)
	}
	if cfg.ModelBackend != BackendONNX {
		t.Errorf("Expected onnx backend, got %s", cfg.ModelBackend)
	}
}

func TestGetEnvAsInt_Invalid(t *testing.T) {
	t.Setenv("SKYVISION_TEST_INT", "not-a-number")

	if got := getEnvAsInt("SKYVISION_TEST_INT", 7); got != 7 {
		t.Errorf("Expected default 7, got %d", got)
	}
	if got := getEnvAsInt64("SKYVISION_TEST_INT", 9); got != 9 {
		t.Errorf("Expected default 9, got %d", got)
	}
}
