package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"skyvision/internal/config"
	"skyvision/internal/logger"
	"skyvision/internal/metrics"
	"skyvision/internal/repository/sqlite"
	"skyvision/internal/route"
	"skyvision/internal/service"
	"skyvision/internal/service/ai"
	"skyvision/internal/service/ai/onnx"
	"skyvision/internal/service/ai/opencv"
	"skyvision/internal/service/storage"
	"skyvision/internal/service/websocket"
	"skyvision/internal/service/yolo"
)

type App struct {
	config    *config.Config
	logger    *logger.Logger
	handle    *ai.Handle
	db        *sqlite.DB
	hub       *websocket.HubService
	metrics   *metrics.Metrics
	predictor *service.Predictor
}

func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	store := storage.NewStore(cfg)
	if err := store.EnsureDirs(); err != nil {
		return nil, err
	}

	handle := loadModel(cfg, log)

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		handle.Close()
		return nil, err
	}

	hub := websocket.NewHubService(log)
	m := metrics.New()
	m.WatchViewers(hub.GetClientCount)

	predictor := service.NewPredictor(handle, store, log, service.Options{
		Predictions: sqlite.NewPredictionRepository(db),
		Detections:  sqlite.NewDetectionRepository(db),
		Notifier:    hub,
		Metrics:     m,
	})

	return &App{
		config:    cfg,
		logger:    log,
		handle:    handle,
		db:        db,
		hub:       hub,
		metrics:   m,
		predictor: predictor,
	}, nil
}

// loadModel loads the configured backend. A failure leaves the service running
// without a model; /predict then answers 500 and /health reports degraded.
func loadModel(cfg *config.Config, log *logger.Logger) *ai.Handle {
	names, err := ai.ResolveNames(
		func() (map[int]string, error) { return yolo.LoadNames(cfg.NamesPath) },
		func() (map[int]string, error) { return onnx.ModelNames(cfg.ModelPath, cfg.OnnxRuntimeLib) },
	)
	if err != nil {
		log.Warning("Class names unavailable, classes will be labelled by id: %v", err)
	}

	opts := ai.Options{
		ModelPath:     cfg.ModelPath,
		Names:         names,
		InputSize:     ai.InputSize,
		SharedLibrary: cfg.OnnxRuntimeLib,
	}

	var model ai.Model
	switch cfg.ModelBackend {
	case config.BackendONNX:
		var detector *onnx.Detector
		detector, err = onnx.Load(opts)
		if err == nil {
			model = detector
		}
	case config.BackendOpenCV:
		var detector *opencv.Detector
		detector, err = opencv.Load(opts)
		if err == nil {
			model = detector
		}
	default:
		err = fmt.Errorf("unknown model backend %q", cfg.ModelBackend)
	}

	handle := ai.NewHandle(model, err)
	if !handle.Loaded() {
		log.Warning("Error loading model from %s: %v", cfg.ModelPath, handle.Err())
		log.Warning("Running without a model; /predict will fail until it is available")
		return handle
	}

	log.Info("Model loaded from %s (%s backend, %d class names)", cfg.ModelPath, cfg.ModelBackend, len(names))
	return handle
}

// Run serves HTTP until SIGINT or SIGTERM, then shuts down gracefully.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.hub.Run(ctx)

	router := route.SetupRoutes(a.predictor, a.hub, a.metrics, a.config, a.logger)

	server := &http.Server{
		Addr:              a.config.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
	}

	a.logger.Info("🚀 %s", a.config.ServiceName)
	a.logger.Info("📍 URL: http://%s", a.config.Addr())
	a.logger.Info("📁 Uploads: %s, results: %s", a.config.UploadDirectory, a.config.ResultDirectory)
	a.logger.Info("🤖 Model: %s (loaded: %t)", a.config.ModelPath, a.handle.Loaded())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		a.close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("🛑 Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	a.close()
	return err
}

func (a *App) close() {
	if err := a.handle.Close(); err != nil {
		a.logger.Error("Failed to release model: %v", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database: %v", err)
	}
}
