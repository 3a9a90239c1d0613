package board

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stealthnote/internal/domain"
)

// Metrics holds the board's Prometheus collectors on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	verifications *prometheus.CounterVec
	verifyTime    prometheus.Histogram
	keyRefresh    *prometheus.CounterVec
}

// NewMetrics registers the board collectors and the Go runtime collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stealthnote",
			Name:      "verifications_total",
			Help:      "Submissions verified, by result code.",
		}, []string{"result"}),
		verifyTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stealthnote",
			Name:      "verify_seconds",
			Help:      "Time spent verifying one submission.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		keyRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stealthnote",
			Name:      "issuer_key_refresh_total",
			Help:      "Issuer key refresh attempts, by provider and result.",
		}, []string{"provider", "result"}),
	}
	m.registry.MustRegister(
		m.verifications,
		m.verifyTime,
		m.keyRefresh,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveVerification records one verification outcome. It matches
// verifier.Observer.
func (m *Metrics) ObserveVerification(result string, elapsed time.Duration) {
	m.verifications.WithLabelValues(result).Inc()
	m.verifyTime.Observe(elapsed.Seconds())
}

// ObserveKeyRefresh records one issuer key refresh. It matches
// provider.RefreshObserver.
func (m *Metrics) ObserveKeyRefresh(p domain.ProviderID, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.keyRefresh.WithLabelValues(string(p), result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
