package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"skyvision/internal/logger"
	"skyvision/internal/metrics"
)

func TestBodyLimitMiddleware(t *testing.T) {
	var readErr error
	handler := BodyLimitMiddleware(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/predict", strings.NewReader("0123456789")))

	var maxErr *http.MaxBytesError
	if !errors.As(readErr, &maxErr) {
		t.Errorf("Expected MaxBytesError, got %v", readErr)
	}

	readErr = nil
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/predict", strings.NewReader("0123")))
	if readErr != nil {
		t.Errorf("Body within limit should be readable, got %v", readErr)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	m := metrics.New()

	handler := LoggingMiddleware(logger.NewWithWriter(&buf), m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("Expected status to pass through, got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), "status=418") || !strings.Contains(buf.String(), "path=/health") {
		t.Errorf("Request not logged: %s", buf.String())
	}

	exposition := httptest.NewRecorder()
	m.Handler().ServeHTTP(exposition, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(exposition.Body.String(), `skyvision_http_requests_total{code="418",method="GET",route="/health"} 1`) {
		t.Error("Request not counted")
	}
}

func TestLoggingMiddleware_SkipsStaticLogs(t *testing.T) {
	var buf bytes.Buffer

	handler := LoggingMiddleware(logger.NewWithWriter(&buf), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/static/uploads/a.jpg", nil))

	if buf.Len() != 0 {
		t.Errorf("Static requests should not be logged, got %s", buf.String())
	}
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected wildcard origin, got %q", got)
	}
}
