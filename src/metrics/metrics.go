package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// -----------------------------------------------------------------------------
// Metrics exposes the ingestion pipeline's counters on a private registry so
// tests can instantiate it repeatedly without collisions.
// -----------------------------------------------------------------------------

type Metrics struct {
	registry *prometheus.Registry

	EventsIngested     *prometheus.CounterVec
	EventsRejected     prometheus.Counter
	ParseErrors        prometheus.Counter
	Reconnects         prometheus.Counter
	SnapshotsPublished prometheus.Counter
	ConnectionState    prometheus.Gauge
}

// -----------------------------------------------------------------------------

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EventsIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "solterm_events_ingested_total",
			Help: "Normalized events ingested, by kind.",
		}, []string{"kind"}),
		EventsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "solterm_events_rejected_total",
			Help: "Events rejected by the aggregation engine.",
		}),
		ParseErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "solterm_parse_errors_total",
			Help: "Malformed wire messages dropped by the normalizer.",
		}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "solterm_reconnects_total",
			Help: "WebSocket reconnection attempts.",
		}),
		SnapshotsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "solterm_snapshots_published_total",
			Help: "Snapshots handed to consumers.",
		}),
		ConnectionState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "solterm_connection_state",
			Help: "Current connection state (0 down, 1 reconnecting, 2 connected).",
		}),
	}
}

// -----------------------------------------------------------------------------

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
