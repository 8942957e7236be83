package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "openclaw"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	pairingClaims      *prometheus.CounterVec
	sessionResolutions *prometheus.CounterVec
	relayExchanges     *prometheus.CounterVec
	relayDuration      prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pairingClaims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairing_claims_total",
			Help:      "Pairing code claims by result.",
		}, []string{"result"}),
		sessionResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_resolutions_total",
			Help:      "Session token resolutions by result.",
		}, []string{"result"}),
		relayExchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_exchanges_total",
			Help:      "Gateway relay exchanges by result.",
		}, []string{"result"}),
		relayDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "relay_duration_seconds",
			Help:      "Wall time of gateway relay exchanges.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 70},
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.pairingClaims,
		m.sessionResolutions,
		m.relayExchanges,
		m.relayDuration,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveClaim records a claim outcome; result is "ok" or an error kind.
func (m *Metrics) ObserveClaim(result string) {
	if m == nil {
		return
	}
	m.pairingClaims.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveResolve(result string) {
	if m == nil {
		return
	}
	m.sessionResolutions.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRelay(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.relayExchanges.WithLabelValues(result).Inc()
	m.relayDuration.Observe(elapsed.Seconds())
}
