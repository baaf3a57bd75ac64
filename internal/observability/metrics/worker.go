package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

// RelayMetrics covers the notice relay worker.
type RelayMetrics struct {
	registry *prometheus.Registry
	service  string

	noticesTotal *prometheus.CounterVec
	relayLag     *prometheus.HistogramVec
}

func NewRelayMetrics(service string) *RelayMetrics {
	registry := prometheus.NewRegistry()

	noticesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "relay",
			Name:      "notices_total",
			Help:      "Relayed notices by severity and status.",
		},
		[]string{"service", "severity", "status"},
	)
	relayLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "relay",
			Name:      "lag_seconds",
			Help:      "Delay between notice creation and relay.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"service"},
	)

	registry.MustRegister(noticesTotal, relayLag)

	return &RelayMetrics{
		registry:     registry,
		service:      service,
		noticesTotal: noticesTotal,
		relayLag:     relayLag,
	}
}

func (m *RelayMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *RelayMetrics) ObserveNotice(notice domain.Notice, now time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	severity := string(notice.Severity)
	if severity == "" {
		severity = "unknown"
	}
	m.noticesTotal.WithLabelValues(m.service, severity, status).Inc()

	if notice.CreatedAt.IsZero() {
		return
	}
	if lag := now.Sub(notice.CreatedAt); lag >= 0 {
		m.relayLag.WithLabelValues(m.service).Observe(lag.Seconds())
	}
}
