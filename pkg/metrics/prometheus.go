package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksTotal    *prometheus.CounterVec
	scoreGauge    *prometheus.GaugeVec
	transitions   *prometheus.CounterVec
	subscribers   prometheus.Gauge
	droppedEvents *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ticksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ltpcoach_ticks_total",
				Help: "Total ticks consumed from the market stream",
			},
			[]string{"symbol"},
		),
		scoreGauge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ltpcoach_confluence_score",
				Help: "Last computed confluence score per symbol and direction",
			},
			[]string{"symbol", "direction"},
		),
		transitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ltpcoach_setup_transitions_total",
				Help: "Setup lifecycle transitions by stage",
			},
			[]string{"stage"},
		),
		subscribers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ltpcoach_stream_subscribers",
				Help: "Live event stream subscriptions",
			},
		),
		droppedEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ltpcoach_dropped_events_total",
				Help: "Events dropped by backpressure, by reason",
			},
			[]string{"reason"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ltpcoach_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ltpcoach_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ltpcoach_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordTick counts one consumed tick.
func (r *Recorder) RecordTick(symbol string) {
	r.ticksTotal.WithLabelValues(symbol).Inc()
}

// RecordScore records the latest confluence total.
func (r *Recorder) RecordScore(symbol, direction string, total float64) {
	r.scoreGauge.WithLabelValues(symbol, direction).Set(total)
}

// RecordTransition counts a lifecycle stage change.
func (r *Recorder) RecordTransition(stage string) {
	r.transitions.WithLabelValues(stage).Inc()
}

// RecordSubscribers tracks live stream subscriptions.
func (r *Recorder) RecordSubscribers(n int) {
	r.subscribers.Set(float64(n))
}

// RecordDroppedEvents counts backpressure drops.
func (r *Recorder) RecordDroppedEvents(reason string) {
	r.droppedEvents.WithLabelValues(reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
