package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	intMetrics "github.com/stimkit/stimkit/internal/metrics"
	stimlog "github.com/stimkit/stimkit/pkg/stimkit/v1/log"
)

// Metrics holds the painter's Prometheus collectors. One instance is shared
// by all painters created from the same factory.
type Metrics struct {
	presentations *prometheus.CounterVec
	runs          *prometheus.CounterVec
	overshoot     prometheus.Histogram
	late          prometheus.Counter
	interruptions prometheus.Counter
	suspended     prometheus.Counter
	runDuration   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg. Collectors
// already present on reg are reused so several factories can share one
// registry.
func NewMetrics(reg prometheus.Registerer, log stimlog.Logger) *Metrics {
	m := &Metrics{}
	m.presentations = intMetrics.RegisterOrReuse(reg, log, prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "stimkit_presentations_total", Help: "Stimuli presented, by sequence."},
		[]string{"sequence"},
	))
	m.runs = intMetrics.RegisterOrReuse(reg, log, prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "stimkit_sequence_runs_total", Help: "Sequence runs by final status."},
		[]string{"status"},
	))
	m.overshoot = intMetrics.RegisterOrReuse(reg, log, prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stimkit_wait_overshoot_seconds",
			Help:    "How far past its target each wait woke up.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	))
	m.late = intMetrics.RegisterOrReuse(reg, log, prometheus.NewCounter(
		prometheus.CounterOpts{Name: "stimkit_late_wakeups_total", Help: "Waits whose target had already passed."},
	))
	m.interruptions = intMetrics.RegisterOrReuse(reg, log, prometheus.NewCounter(
		prometheus.CounterOpts{Name: "stimkit_timing_interruptions_total", Help: "Sleeps that returned early with an error."},
	))
	m.suspended = intMetrics.RegisterOrReuse(reg, log, prometheus.NewCounter(
		prometheus.CounterOpts{Name: "stimkit_suspended_seconds_total", Help: "Time sequences spent blocked on the suspend flag."},
	))
	m.runDuration = intMetrics.RegisterOrReuse(reg, log, prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "stimkit_run_duration_seconds", Help: "Wall time of sequence runs.", Buckets: prometheus.DefBuckets},
	))
	log.Debugf("Prometheus metrics initialized and registered.")
	return m
}
