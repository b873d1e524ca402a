package tunnelpool

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the Prometheus collectors a Pool updates as it runs.
// Each Pool owns an isolated registry rather than registering against
// prometheus.DefaultRegisterer, so multiple pools (as in tests) never
// collide on metric names.
type metrics struct {
	registry *prometheus.Registry

	activeSize prometheus.Gauge
	cacheSize  prometheus.Gauge

	selectorPicks     prometheus.Counter
	selectorDemotions prometheus.Counter

	activatorOpened prometheus.Counter
	activatorFailed prometheus.Counter

	reconnectorSwaps  prometheus.Counter
	reconnectorFailed prometheus.Counter
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	m := &metrics{
		registry: reg,
		activeSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tunnelpool_active_size",
			Help: "Number of tunnels currently in the active set.",
		}),
		cacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tunnelpool_cache_size",
			Help: "Number of tunnels currently known to the cache set.",
		}),
		selectorPicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tunnelpool_selector_picks_total",
			Help: "Number of tunnels returned by the selector.",
		}),
		selectorDemotions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tunnelpool_selector_demotions_total",
			Help: "Number of times the selector penalised a blamed tunnel.",
		}),
		activatorOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tunnelpool_activator_opened_total",
			Help: "Number of tunnels the activator successfully opened.",
		}),
		activatorFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tunnelpool_activator_failed_total",
			Help: "Number of tunnel open attempts the activator exhausted retries on.",
		}),
		reconnectorSwaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tunnelpool_reconnector_swaps_total",
			Help: "Number of active tunnels successfully replaced by the reconnector.",
		}),
		reconnectorFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tunnelpool_reconnector_failed_total",
			Help: "Number of reconnect attempts that failed to open a replacement.",
		}),
	}
	reg.MustRegister(
		m.activeSize, m.cacheSize,
		m.selectorPicks, m.selectorDemotions,
		m.activatorOpened, m.activatorFailed,
		m.reconnectorSwaps, m.reconnectorFailed,
	)
	return m
}

// Registry exposes the Pool's isolated Prometheus registry so the HTTP
// surface can mount it at /metrics.
func (p *Pool) Registry() *prometheus.Registry {
	return p.metrics.registry
}
