// Package metrics exposes Prometheus collectors for the detection service.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "skyvision"

// Metrics holds the service collectors on a private registry.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	requestCount     *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	predictionCount  *prometheus.CounterVec
	detectionCount   *prometheus.CounterVec
	inferenceSeconds prometheus.Histogram
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "route", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		predictionCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "predictions_total",
				Help:      "Prediction requests by outcome.",
			},
			[]string{"outcome"},
		),
		detectionCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "detections_total",
				Help:      "Detected objects by class.",
			},
			[]string{"class"},
		),
		inferenceSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "inference_duration_seconds",
				Help:      "Time spent in model inference and rendering.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),
	}

	m.registry.MustRegister(
		m.requestCount,
		m.requestDuration,
		m.predictionCount,
		m.detectionCount,
		m.inferenceSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, path string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	route := RouteLabel(path)
	m.requestCount.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObservePrediction counts a /predict outcome ("success" or a failure kind).
func (m *Metrics) ObservePrediction(outcome string) {
	if m == nil {
		return
	}
	m.predictionCount.WithLabelValues(outcome).Inc()
}

// ObserveDetections adds per-class detection counts.
func (m *Metrics) ObserveDetections(stats map[string]int) {
	if m == nil {
		return
	}
	for class, count := range stats {
		m.detectionCount.WithLabelValues(class).Add(float64(count))
	}
}

// ObserveInference records the duration of one inference.
func (m *Metrics) ObserveInference(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.inferenceSeconds.Observe(elapsed.Seconds())
}

// WatchViewers exports the number of connected live event viewers.
func (m *Metrics) WatchViewers(count func() int) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_viewers",
			Help:      "Connected live event viewers.",
		},
		func() float64 { return float64(count()) },
	))
}

var routes = []string{
	"/",
	"/predict",
	"/health",
	"/metrics",
	"/api/events",
	"/api/predictions",
	"/api/predictions/stats",
	"/api/predictions/detail",
	"/api/predictions/delete",
	"/logs/info",
	"/logs/warning",
	"/logs/error",
	"/logs/info/clear",
	"/logs/warning/clear",
	"/logs/error/clear",
}

// RouteLabel maps a request path to a bounded label value.
func RouteLabel(path string) string {
	for _, route := range routes {
		if path == route {
			return route
		}
	}
	if strings.HasPrefix(path, "/static/") {
		return "/static/"
	}
	return "other"
}
