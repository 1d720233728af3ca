// Package metrics declares the server's prometheus collectors and
// exposes them, plus a JSON debug snapshot, over a small fasthttp
// admin server separate from the data-plane reactor.
package metrics

import (
	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors holds every metric the reactor and store update while
// serving traffic, registered against a private registry so tests can
// spin up independent instances without colliding on the global
// default registerer.
type Collectors struct {
	Registry *prometheus.Registry

	CommandsTotal     *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec
	ConnectionsTotal  prometheus.Counter
	ConnectionsActive prometheus.Gauge
	RehashInProgress  prometheus.Gauge
	KeysTotal         prometheus.Gauge
}

// New builds and registers a fresh set of collectors.
func New() *Collectors {
	reg := prometheus.NewRegistry()

	c := &Collectors{
		Registry: reg,
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "redicache",
			Name:      "commands_total",
			Help:      "Total commands processed, by command name and result.",
		}, []string{"command", "result"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "redicache",
			Name:      "command_duration_seconds",
			Help:      "Command handling latency in seconds, by command name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "redicache",
			Name:      "connections_total",
			Help:      "Total accepted connections.",
		}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "redicache",
			Name:      "connections_active",
			Help:      "Currently open connections.",
		}),
		RehashInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "redicache",
			Name:      "rehash_in_progress",
			Help:      "1 while the store's secondary table is being drained, 0 otherwise.",
		}),
		KeysTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "redicache",
			Name:      "keys_total",
			Help:      "Number of keys currently stored.",
		}),
	}

	reg.MustRegister(
		c.CommandsTotal,
		c.CommandDuration,
		c.ConnectionsTotal,
		c.ConnectionsActive,
		c.RehashInProgress,
		c.KeysTotal,
	)
	return c
}

// ConnectionsActiveValue reads back the current value of the
// ConnectionsActive gauge, for the debug snapshot to mirror what
// /metrics would report without keeping a second counter in sync by
// hand.
func (c *Collectors) ConnectionsActiveValue() int64 {
	var m dto.Metric
	if err := c.ConnectionsActive.Write(&m); err != nil {
		return 0
	}
	return int64(m.GetGauge().GetValue())
}
