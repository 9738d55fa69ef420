package game

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the simulation-side Prometheus instruments. Registered once on
// the default registry; the debug server exposes them on /metrics.
type Metrics struct {
	TickDuration    prometheus.Histogram
	TickOverruns    prometheus.Counter
	ActivePlayers   prometheus.Gauge
	InputsProcessed prometheus.Counter
	InputsDropped   prometheus.Counter
	KicksAccepted   prometheus.Counter
	GoalsScored     *prometheus.CounterVec
	SnapshotsSent   prometheus.Counter
	PendingTimers   prometheus.Gauge
}

// NewMetrics registers the simulation metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers on a caller-supplied registry. Tests use a fresh
// registry per engine so repeated registration cannot collide.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "soccer_tick_duration_seconds",
			Help:    "Wall time of one physics step.",
			Buckets: []float64{.0005, .001, .002, .004, .008, .016, .032, .064},
		}),
		TickOverruns: factory.NewCounter(prometheus.CounterOpts{
			Name: "soccer_tick_overruns_total",
			Help: "Steps that exceeded the physics tick budget.",
		}),
		ActivePlayers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "soccer_active_players",
			Help: "Players currently registered in the simulation.",
		}),
		InputsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "soccer_inputs_processed_total",
			Help: "Directional inputs applied by the simulation.",
		}),
		InputsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "soccer_inputs_dropped_total",
			Help: "Inputs rejected as stale, duplicate or overflowing.",
		}),
		KicksAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "soccer_kicks_accepted_total",
			Help: "Kick requests that passed validation.",
		}),
		GoalsScored: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soccer_goals_total",
			Help: "Goals scored, labelled by scoring team.",
		}, []string{"team"}),
		SnapshotsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "soccer_snapshots_sent_total",
			Help: "World snapshots broadcast to the room.",
		}),
		PendingTimers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "soccer_pending_timers",
			Help: "Entries in the simulation timer queue, tombstones included.",
		}),
	}
}
