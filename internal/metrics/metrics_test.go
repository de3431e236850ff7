package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/predict", "/predict"},
		{"/health", "/health"},
		{"/static/uploads/cat_1_abcd1234.jpg", "/static/"},
		{"/api/predictions/stats", "/api/predictions/stats"},
		{"/api/predictions/detail", "/api/predictions/detail"},
		{"/wp-admin", "other"},
	}

	for _, tt := range tests {
		if got := RouteLabel(tt.path); got != tt.expected {
			t.Errorf("RouteLabel(%q) = %q, expected %q", tt.path, got, tt.expected)
		}
	}
}

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveRequest("POST", "/predict", 200, 10*time.Millisecond)
	m.ObserveRequest("POST", "/predict", 200, 20*time.Millisecond)
	m.ObservePrediction("success")
	m.ObserveDetections(map[string]int{"cat": 2, "dog": 1})
	m.ObserveInference(150 * time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	for _, line := range []string{
		`skyvision_http_requests_total{code="200",method="POST",route="/predict"} 2`,
		`skyvision_predictions_total{outcome="success"} 1`,
		`skyvision_detections_total{class="cat"} 2`,
		`skyvision_detections_total{class="dog"} 1`,
		`skyvision_inference_duration_seconds_count 1`,
	} {
		if !strings.Contains(body, line) {
			t.Errorf("Exposition missing %q", line)
		}
	}
}

func TestMetrics_WatchViewers(t *testing.T) {
	m := New()
	viewers := 3
	m.WatchViewers(func() int { return viewers })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "skyvision_event_viewers 3") {
		t.Errorf("Exposition missing viewer gauge:\n%s", rec.Body.String())
	}

	var nilMetrics *Metrics
	nilMetrics.WatchViewers(func() int { return 0 })
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObservePrediction("no_file")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `skyvision_predictions_total{outcome="no_file"} 1`) {
		t.Errorf("Exposition missing prediction counter:\n%s", rec.Body.String())
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	m.ObserveRequest("GET", "/", 200, time.Millisecond)
	m.ObservePrediction("success")
	m.ObserveDetections(map[string]int{"cat": 1})
	m.ObserveInference(time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Errorf("Expected 404 from a nil registry, got %d", rec.Code)
	}
}
