package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	// BackendOpenCV runs the model through the gocv DNN module.
	BackendOpenCV = "opencv"
	// BackendONNX runs the model through ONNX Runtime.
	BackendONNX = "onnx"
)

type Config struct {
	Host            string
	Port            int
	StaticDirectory string
	UploadDirectory string
	ResultDirectory string
	MaxUploadSize   int64 // bytes
	ModelPath       string
	NamesPath       string
	ModelBackend    string
	OnnxRuntimeLib  string
	DatabasePath    string
	LogDirectory    string
	ServiceName     string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	// Missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	staticDir := getEnv("STATIC_DIR", "static")

	return &Config{
		Host:            getEnv("HOST", "0.0.0.0"),
		Port:            getEnvAsInt("PORT", 5000),
		StaticDirectory: staticDir,
		UploadDirectory: getEnv("UPLOAD_DIR", filepath.Join(staticDir, "uploads")),
		ResultDirectory: getEnv("RESULT_DIR", filepath.Join(staticDir, "results")),
		MaxUploadSize:   getEnvAsInt64("MAX_UPLOAD_SIZE", 16<<20),
		ModelPath:       getEnv("MODEL_PATH", filepath.Join("models", "best.onnx")),
		NamesPath:       getEnv("NAMES_PATH", filepath.Join("models", "best.names")),
		ModelBackend:    getEnv("MODEL_BACKEND", BackendOpenCV),
		OnnxRuntimeLib:  getEnv("ONNXRUNTIME_LIB", ""),
		DatabasePath:    getEnv("DB_PATH", filepath.Join("data", "skyvision.db")),
		LogDirectory:    getEnv("LOG_DIR", "logs"),
		ServiceName:     getEnv("SERVICE_NAME", "SkyVision Object Detection API"),
	}
}

// Addr returns the host:port pair the HTTP server listens on.
func (c *Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
