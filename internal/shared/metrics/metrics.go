package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for registry lookups and the proxy list cache.
// Each instance owns its registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	Lookups         *prometheus.CounterVec // result: success|failed
	Attempts        *prometheus.CounterVec // stage, outcome
	ProxyRefreshes  prometheus.Counter
	ProxyCandidates prometheus.Gauge
	SourceFailures  *prometheus.CounterVec // source
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_lookups_total",
			Help: "Device registry lookups by final result.",
		}, []string{"result"}),
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_fetch_attempts_total",
			Help: "Registry page fetch attempts by stage and outcome.",
		}, []string{"stage", "outcome"}),
		ProxyRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "proxy_list_refreshes_total",
			Help: "Proxy list cache refreshes.",
		}),
		ProxyCandidates: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "proxy_list_candidates",
			Help: "Proxy candidates currently cached.",
		}),
		SourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proxy_list_source_failures_total",
			Help: "Failed proxy list source fetches.",
		}, []string{"source"}),
	}
	m.registry.MustRegister(m.Lookups, m.Attempts, m.ProxyRefreshes, m.ProxyCandidates, m.SourceFailures)
	return m
}

// Handler exposes the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
