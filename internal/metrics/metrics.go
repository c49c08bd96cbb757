// Package metrics wraps github.com/prometheus/client_golang exactly as
// the teacher's Registry does (Go/process collectors plus business
// counters/histograms/gauges), extended here with the core-specific
// series SPEC_FULL.md's ambient-stack section names: orders submitted,
// checks rejected by reason, reconciliation tick duration, unknown-id
// events, contingent queue depth, and cash balances per currency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every Prometheus metric the engine exposes.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics, for the thin operator server cmd/corebookctl serve runs.
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Order lifecycle metrics.
	ordersSubmitted       *prometheus.CounterVec
	checksRejected        *prometheus.CounterVec
	reconcileTickDuration prometheus.Histogram
	unknownOrderIDEvents  prometheus.Counter
	contingentQueueDepth  prometheus.Gauge
	cashBalance           *prometheus.GaugeVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),

		ordersSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corebook_orders_submitted_total",
				Help: "Total number of orders submitted to the brokerage, by order type",
			},
			[]string{"type"},
		),
		checksRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corebook_checks_rejected_total",
				Help: "Total number of orders rejected by the pre-order check pipeline, by reason code",
			},
			[]string{"reason"},
		),
		reconcileTickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "corebook_reconcile_tick_duration_seconds",
				Help:    "Fill Reconciliation Engine poll-tick duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		unknownOrderIDEvents: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "corebook_unknown_order_id_events_total",
				Help: "Total number of fatal UnknownOrderId events raised by the reconciler",
			},
		),
		contingentQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "corebook_contingent_queue_depth",
				Help: "Number of live contingent (zero-crossing) order queues",
			},
		),
		cashBalance: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "corebook_cash_balance",
				Help: "Cash book balance by currency, in that currency's own units",
			},
			[]string{"currency"},
		),
	}

	reg.MustRegister(
		r.httpRequestsTotal,
		r.httpRequestDuration,
		r.httpRequestsInFlight,
		r.ordersSubmitted,
		r.checksRejected,
		r.reconcileTickDuration,
		r.unknownOrderIDEvents,
		r.contingentQueueDepth,
		r.cashBalance,
	)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordOrderSubmitted records one order submission of the given type.
func (r *Registry) RecordOrderSubmitted(orderType string) {
	r.ordersSubmitted.WithLabelValues(orderType).Inc()
}

// RecordCheckRejected records one pre-order check pipeline rejection by
// reason code.
func (r *Registry) RecordCheckRejected(reason string) {
	r.checksRejected.WithLabelValues(reason).Inc()
}

// RecordReconcileTick records one reconciler poll-tick's duration.
func (r *Registry) RecordReconcileTick(seconds float64) {
	r.reconcileTickDuration.Observe(seconds)
}

// RecordUnknownOrderID records one fatal UnknownOrderId escalation.
func (r *Registry) RecordUnknownOrderID() {
	r.unknownOrderIDEvents.Inc()
}

// SetContingentQueueDepth sets the current number of live contingent
// queues.
func (r *Registry) SetContingentQueueDepth(n int) {
	r.contingentQueueDepth.Set(float64(n))
}

// SetCashBalance sets currency's reported cash balance.
func (r *Registry) SetCashBalance(currency string, amount float64) {
	r.cashBalance.WithLabelValues(currency).Set(amount)
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
