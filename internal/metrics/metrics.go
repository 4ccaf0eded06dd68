package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/BartekS5/eventsync/internal/etl"
)

// Job is the pushgateway job name used for every run.
const Job = "eventsync"

// Run holds the metrics of a single sync invocation in its own registry, so
// a batch process can push them once at exit.
type Run struct {
	registry *prometheus.Registry
	// checkpoint is registered on the first Observe that carries a loaded
	// checkpoint, so a failed load never exports 0.
	checkpointRegistered bool

	eventsFetched  prometheus.Counter
	eventsFiltered prometheus.Counter
	rowsPushed     prometheus.Counter
	truncated      prometheus.Counter
	windows        prometheus.Counter
	checkpoint     prometheus.Gauge
	duration       prometheus.Gauge
	success        prometheus.Gauge
}

// NewRun registers the run metrics on a fresh registry.
func NewRun() *Run {
	r := &Run{
		registry: prometheus.NewRegistry(),
		eventsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventsync_events_fetched_total",
			Help: "Raw events returned by the events API during the run",
		}),
		eventsFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventsync_events_new_total",
			Help: "Events that fell strictly inside their window",
		}),
		rowsPushed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventsync_rows_pushed_total",
			Help: "Rows accepted by Power BI during the run",
		}),
		truncated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventsync_messages_truncated_total",
			Help: "Messages shortened to the destination limit",
		}),
		windows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventsync_windows_total",
			Help: "Time windows processed during the run",
		}),
		checkpoint: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eventsync_checkpoint_milliseconds",
			Help: "Checkpoint value at the end of the run (epoch ms)",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eventsync_run_duration_seconds",
			Help: "Wall-clock duration of the run",
		}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eventsync_run_success",
			Help: "1 when the run finished without halting, 0 otherwise",
		}),
	}
	r.registry.MustRegister(r.eventsFetched, r.eventsFiltered, r.rowsPushed, r.truncated,
		r.windows, r.duration, r.success)
	return r
}

// Observe records the outcome of a pipeline run.
func (r *Run) Observe(stats etl.RunStats, runErr error) {
	r.eventsFetched.Add(float64(stats.Fetched))
	r.eventsFiltered.Add(float64(stats.Filtered))
	r.rowsPushed.Add(float64(stats.Pushed))
	r.truncated.Add(float64(stats.Truncated))
	r.windows.Add(float64(stats.Windows))
	if stats.Loaded {
		if !r.checkpointRegistered {
			r.registry.MustRegister(r.checkpoint)
			r.checkpointRegistered = true
		}
		r.checkpoint.Set(float64(stats.Checkpoint))
	}
	r.duration.Set(stats.Duration.Seconds())
	if runErr == nil {
		r.success.Set(1)
	} else {
		r.success.Set(0)
	}
}

// Gatherer exposes the registry, mainly for tests.
func (r *Run) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Push sends the run metrics to a Prometheus pushgateway, grouped by run ID.
func (r *Run) Push(gatewayURL, runID string) error {
	return push.New(gatewayURL, Job).
		Gatherer(r.registry).
		Grouping("instance", runID).
		Push()
}
