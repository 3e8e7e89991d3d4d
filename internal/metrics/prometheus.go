package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stream labels.
const (
	StreamAlerts = "alerts"
	StreamStatus = "status"
)

// Fetch and action result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultStale = "stale"
)

// Recorder exposes the dashboard's Prometheus collectors. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	gatherer prometheus.Gatherer

	fetches      *prometheus.CounterVec
	staleDrops   *prometheus.CounterVec
	skippedTicks *prometheus.CounterVec
	malformed    prometheus.Counter
	actions      *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	viewClients  prometheus.Gauge
}

// New registers the collectors on reg. Passing nil uses the default registry.
func New(reg *prometheus.Registry) *Recorder {
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if reg != nil {
		registerer, gatherer = reg, reg
	}
	factory := promauto.With(registerer)

	return &Recorder{
		gatherer: gatherer,
		fetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertdash_fetches_total",
				Help: "Feed fetches by stream and result",
			},
			[]string{"stream", "result"},
		),
		staleDrops: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertdash_stale_responses_total",
				Help: "Responses discarded because a newer request was issued",
			},
			[]string{"stream"},
		),
		skippedTicks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertdash_skipped_ticks_total",
				Help: "Poll ticks skipped because the previous fetch was still in flight",
			},
			[]string{"stream"},
		),
		malformed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "alertdash_malformed_records_total",
				Help: "Alert records skipped because they could not be parsed",
			},
		),
		actions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertdash_actions_total",
				Help: "User actions by kind and result",
			},
			[]string{"kind", "result"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alertdash_backend_request_duration_seconds",
				Help:    "Duration of backend requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		viewClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "alertdash_view_clients",
				Help: "Connected dashboard websocket clients",
			},
		),
	}
}

// RecordFetch records a completed fetch on stream.
func (r *Recorder) RecordFetch(stream, result string) {
	if r == nil {
		return
	}
	r.fetches.WithLabelValues(stream, result).Inc()
	if result == ResultStale {
		r.staleDrops.WithLabelValues(stream).Inc()
	}
}

// RecordSkippedTick records a tick dropped by back-pressure.
func (r *Recorder) RecordSkippedTick(stream string) {
	if r == nil {
		return
	}
	r.skippedTicks.WithLabelValues(stream).Inc()
}

// RecordMalformed records n skipped alert records.
func (r *Recorder) RecordMalformed(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.malformed.Add(float64(n))
}

// RecordAction records the outcome of a user action.
func (r *Recorder) RecordAction(kind, result string) {
	if r == nil {
		return
	}
	r.actions.WithLabelValues(kind, result).Inc()
}

// ObserveLatency records how long op took since start.
func (r *Recorder) ObserveLatency(op string, start time.Time) {
	if r == nil {
		return
	}
	r.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// SetViewClients records the number of connected dashboard clients.
func (r *Recorder) SetViewClients(n int) {
	if r == nil {
		return
	}
	r.viewClients.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
