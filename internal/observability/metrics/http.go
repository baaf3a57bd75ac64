package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	batchesTotal       *prometheus.CounterVec
	filesTotal         *prometheus.CounterVec
	submissionsTotal   *prometheus.CounterVec
	submissionDuration *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "intake",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	batchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "upload",
			Name:      "batches_total",
			Help:      "File batches presented to a slot by outcome.",
		},
		[]string{"service", "slot", "outcome"},
	)
	filesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "upload",
			Name:      "files_total",
			Help:      "Files presented to a slot by batch outcome.",
		},
		[]string{"service", "slot", "outcome"},
	)
	submissionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "submission",
			Name:      "total",
			Help:      "Submission attempts by status.",
		},
		[]string{"service", "status"},
	)
	submissionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "submission",
			Name:      "duration_seconds",
			Help:      "Submission duration in seconds by status.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 1.5, 2, 5, 10, 30},
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		batchesTotal,
		filesTotal,
		submissionsTotal,
		submissionDuration,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		service:            service,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		batchesTotal:       batchesTotal,
		filesTotal:         filesTotal,
		submissionsTotal:   submissionsTotal,
		submissionDuration: submissionDuration,
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

// normalizePath folds ids out of the path so label cardinality stays bounded.
func normalizePath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 || parts[0] != "v1" || parts[1] != "forms" {
		return path
	}
	parts[2] = "{form_id}"
	if len(parts) >= 5 && parts[3] == "slots" {
		parts[4] = "{slot}"
	}
	if len(parts) >= 7 && parts[5] == "files" {
		parts[6] = "{file_id}"
	}
	return "/" + strings.Join(parts, "/")
}

func (m *HTTPServerMetrics) ObserveBatch(slot domain.SlotName, outcome string, files int) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.batchesTotal.WithLabelValues(m.service, string(slot), outcome).Inc()
	if files > 0 {
		m.filesTotal.WithLabelValues(m.service, string(slot), outcome).Add(float64(files))
	}
}

func (m *HTTPServerMetrics) ObserveSubmission(status domain.SubmissionStatus, duration time.Duration) {
	label := string(status)
	if label == "" {
		label = "unknown"
	}
	m.submissionsTotal.WithLabelValues(m.service, label).Inc()
	m.submissionDuration.WithLabelValues(m.service, label).Observe(duration.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
