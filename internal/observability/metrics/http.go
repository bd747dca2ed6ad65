package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	uploadsCreatedTotal      *prometheus.CounterVec
	uploadSetupFailuresTotal *prometheus.CounterVec
	extractionEventsTotal    *prometheus.CounterVec
	submissionsTotal         *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autofill",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "autofill",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "autofill",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	uploadsCreatedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autofill",
			Subsystem: "uploads",
			Name:      "created_total",
			Help:      "Total upload sessions created with issued credentials.",
		},
		[]string{"service"},
	)
	uploadSetupFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autofill",
			Subsystem: "uploads",
			Name:      "setup_failures_total",
			Help:      "Total credential requests that did not return success.",
		},
		[]string{"service", "reason"},
	)
	extractionEventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autofill",
			Subsystem: "uploads",
			Name:      "extraction_events_total",
			Help:      "Total text extraction notifications by outcome.",
		},
		[]string{"service", "outcome"},
	)
	submissionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autofill",
			Subsystem: "form",
			Name:      "submissions_total",
			Help:      "Total form submissions by outcome.",
		},
		[]string{"service", "outcome"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		uploadsCreatedTotal,
		uploadSetupFailuresTotal,
		extractionEventsTotal,
		submissionsTotal,
	)

	return &HTTPServerMetrics{
		registry:                 registry,
		requestTotal:             requestTotal,
		requestDuration:          requestDuration,
		requestInFlight:          requestInFlight,
		uploadsCreatedTotal:      uploadsCreatedTotal,
		uploadSetupFailuresTotal: uploadSetupFailuresTotal,
		extractionEventsTotal:    extractionEventsTotal,
		submissionsTotal:         submissionsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses upload ids so the path label stays low-cardinality.
func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/v1/uploads/") {
		return path
	}
	rest := strings.TrimPrefix(path, "/v1/uploads/")
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		return "/v1/uploads/{upload_id}" + rest[idx:]
	}
	return "/v1/uploads/{upload_id}"
}

func (m *HTTPServerMetrics) RecordUploadCreated(service string) {
	m.uploadsCreatedTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordUploadSetupFailure(service, reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.uploadSetupFailuresTotal.WithLabelValues(service, reason).Inc()
}

func (m *HTTPServerMetrics) RecordExtractionEvent(service, outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.extractionEventsTotal.WithLabelValues(service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordSubmission(service string, submitted bool) {
	outcome := "submitted"
	if !submitted {
		outcome = "invalid"
	}
	m.submissionsTotal.WithLabelValues(service, outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
