package route

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"skyvision/internal/config"
	"skyvision/internal/dto"
	"skyvision/internal/logger"
	"skyvision/internal/metrics"
	"skyvision/internal/service"
	"skyvision/internal/service/ai"
	"skyvision/internal/service/storage"
	"skyvision/internal/service/websocket"

	gorilla "github.com/gorilla/websocket"
)

type stubModel struct{}

func (stubModel) Predict(string) ([]ai.Detection, error) {
	return []ai.Detection{{ClassID: 0, Confidence: 0.9}}, nil
}

func (stubModel) Render(src, dst string, _ []ai.Detection) error {
	return os.WriteFile(dst, []byte("result"), 0644)
}

func (stubModel) Names() map[int]string { return map[int]string{0: "airplane"} }

func (stubModel) Close() error { return nil }

func setupTestServer(t *testing.T) (*httptest.Server, *config.Config, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "skyvision_routes_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	cfg := &config.Config{
		StaticDirectory: filepath.Join(tempDir, "static"),
		UploadDirectory: filepath.Join(tempDir, "static", "uploads"),
		ResultDirectory: filepath.Join(tempDir, "static", "results"),
		MaxUploadSize:   1 << 20,
		ServiceName:     "SkyVision Object Detection API",
	}

	store := storage.NewStore(cfg)
	if err := store.EnsureDirs(); err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("EnsureDirs failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.StaticDirectory, "index.html"), []byte("<h1>SkyVision</h1>"), 0644); err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("Failed to write index: %v", err)
	}

	log := logger.NewWithWriter(io.Discard)
	m := metrics.New()
	hub := websocket.NewHubService(log)
	m.WatchViewers(hub.GetClientCount)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	predictor := service.NewPredictor(ai.NewHandle(stubModel{}, nil), store, log, service.Options{
		Notifier: hub,
		Metrics:  m,
	})

	server := httptest.NewServer(SetupRoutes(predictor, hub, m, cfg, log))

	cleanup := func() {
		server.Close()
		cancel()
		os.RemoveAll(tempDir)
	}

	return server, cfg, cleanup
}

func upload(t *testing.T, url, filename string, content []byte) *http.Response {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("image", filename)
	part.Write(content)
	writer.Close()

	resp, err := http.Post(url+"/predict", writer.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST /predict failed: %v", err)
	}
	return resp
}

func TestRoutes_IndexAndHealth(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	resp, err := http.Get(server.URL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "SkyVision") {
		t.Errorf("Unexpected index response %d: %s", resp.StatusCode, body)
	}

	resp, err = http.Get(server.URL + "/missing-page")
	if err != nil {
		t.Fatalf("GET /missing-page failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown page, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()

	var health dto.HealthResponse
	json.NewDecoder(resp.Body).Decode(&health)
	if health.Status != "healthy" || !health.ModelLoaded {
		t.Errorf("Unexpected health %+v", health)
	}
}

func TestRoutes_PredictBroadcastsEvent(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/events"
	conn, _, err := gorilla.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	// Registration is asynchronous; keep uploading until an event arrives.
	events := make(chan dto.PredictionEvent, 1)
	go func() {
		var event dto.PredictionEvent
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&event); err == nil {
			events <- event
		}
		close(events)
	}()

	var filename string
	deadline := time.After(5 * time.Second)
	for {
		resp := upload(t, server.URL, "plane.png", []byte("png"))
		var body dto.PredictResponse
		json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected 200, got %d", resp.StatusCode)
		}
		filename = body.Filename

		select {
		case event, ok := <-events:
			if !ok {
				t.Fatal("Websocket closed before an event arrived")
			}
			if event.Type != "prediction" || event.DetectionStats["airplane"] != 1 {
				t.Errorf("Unexpected event %+v", event)
			}
			if event.Filename == "" || !strings.HasPrefix(event.Filename, "plane_") {
				t.Errorf("Unexpected event filename %s (last upload %s)", event.Filename, filename)
			}
			return
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("No event received")
		}
	}
}

func TestRoutes_StaticResultAndMetrics(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	resp := upload(t, server.URL, "plane.jpg", []byte("jpeg"))
	var body dto.PredictResponse
	json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()

	result, err := http.Get(server.URL + body.ResultImageURL)
	if err != nil {
		t.Fatalf("GET result failed: %v", err)
	}
	data, _ := io.ReadAll(result.Body)
	result.Body.Close()
	if result.StatusCode != http.StatusOK || string(data) != "result" {
		t.Errorf("Result image not served: %d %q", result.StatusCode, data)
	}

	metricsResp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	exposition, _ := io.ReadAll(metricsResp.Body)
	metricsResp.Body.Close()
	if !strings.Contains(string(exposition), `skyvision_predictions_total{outcome="success"} 1`) {
		t.Errorf("Metrics missing prediction count:\n%s", exposition)
	}
	if !strings.Contains(string(exposition), "skyvision_event_viewers") {
		t.Errorf("Metrics missing viewer gauge:\n%s", exposition)
	}
}

func TestRoutes_WebPResultContentType(t *testing.T) {
	server, cfg, cleanup := setupTestServer(t)
	defer cleanup()

	var png bytes.Buffer
	png.WriteString("\x89PNG\r\n\x1a\n")
	png.Write(make([]byte, 32))
	if err := os.WriteFile(filepath.Join(cfg.ResultDirectory, "result_sky_1_abcd1234.webp"), png.Bytes(), 0644); err != nil {
		t.Fatalf("Failed to write result: %v", err)
	}

	resp, err := http.Get(server.URL + "/static/results/result_sky_1_abcd1234.webp")
	if err != nil {
		t.Fatalf("GET result failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ctype := resp.Header.Get("Content-Type"); ctype != "image/png" {
		t.Errorf("Expected image/png for PNG bytes, got %q", ctype)
	}
}

func TestRoutes_BodyLimit(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("image", "huge.png")
	part.Write(make([]byte, 2<<20))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/predict", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()
	server.Config.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", rec.Code)
	}
}

func TestRoutes_CORSPreflight(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	req, _ := http.NewRequest(http.MethodOptions, server.URL+"/predict", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Preflight failed: %v", err)
	}
	resp.Body.Close()

	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Expected wildcard origin, got %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}
}
