// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Token metrics
	TokensDecoded   prometheus.Counter
	TokensDuplicate prometheus.Counter
	TokensMalformed prometheus.Counter
	TokensDropped   prometheus.Counter

	// Batch metrics
	BatchesClosed prometheus.Counter
	BatchSize     prometheus.Histogram

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionOutcomes *prometheus.CounterVec

	// Curve update metrics
	CurveUpdatesProcessed prometheus.Counter
	CurveUpdatesDropped   *prometheus.CounterVec
	CurveUpdatesLate      prometheus.Counter

	// Price metrics
	PriceFetchErrors prometheus.Counter
	SOLPriceUSD      prometheus.Gauge

	// Build metrics
	BuildsTotal        *prometheus.CounterVec
	BuildLatency       prometheus.Histogram
	SimulationFailures prometheus.Counter
	PublishErrors      prometheus.Counter

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	HighestSlotSeen prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg ...prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "pump_sniper"
	}

	factory := promauto.With(prometheus.DefaultRegisterer)
	if len(reg) > 0 && reg[0] != nil {
		factory = promauto.With(reg[0])
	}

	return &Metrics{
		// Token metrics
		TokensDecoded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "decoded_total",
			Help:      "Total number of create instructions decoded",
		}),
		TokensDuplicate: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "duplicate_total",
			Help:      "Total number of create events for an already assigned mint",
		}),
		TokensMalformed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "malformed_total",
			Help:      "Total number of malformed create instructions",
		}),
		TokensDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "dropped_total",
			Help:      "Total number of decoded tokens dropped on a full channel",
		}),

		// Batch metrics
		BatchesClosed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batches",
			Name:      "closed_total",
			Help:      "Total number of batches closed and handed to the monitor",
		}),
		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batches",
			Name:      "size_tokens",
			Help:      "Number of tokens per closed batch",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200},
		}),

		// Session metrics
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Number of pending monitoring sessions",
		}),
		SessionOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "outcomes_total",
			Help:      "Total number of terminal sessions by status",
		}, []string{"status"}),

		// Curve update metrics
		CurveUpdatesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "curve",
			Name:      "updates_processed_total",
			Help:      "Total number of curve updates evaluated",
		}),
		CurveUpdatesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "curve",
			Name:      "updates_dropped_total",
			Help:      "Total number of curve updates dropped by reason",
		}, []string{"reason"}),
		CurveUpdatesLate: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "curve",
			Name:      "updates_late_total",
			Help:      "Total number of curve updates received after a terminal status",
		}),

		// Price metrics
		PriceFetchErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "price",
			Name:      "fetch_errors_total",
			Help:      "Total number of failed SOL/USD price fetches",
		}),
		SOLPriceUSD: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "price",
			Name:      "sol_usd",
			Help:      "Last fetched SOL/USD price",
		}),

		// Build metrics
		BuildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "builds_total",
			Help:      "Total number of buy transaction builds by status",
		}, []string{"status"}),
		BuildLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "build_latency_seconds",
			Help:      "Time from eligibility to signed transaction",
			Buckets:   prometheus.DefBuckets,
		}),
		SimulationFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "simulation_failures_total",
			Help:      "Total number of simulations reporting an error",
		}),
		PublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "publish_errors_total",
			Help:      "Total number of failed transaction publications",
		}),

		// Latency metrics
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		HighestSlotSeen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "highest_slot_seen",
			Help:      "Highest Solana slot number seen",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTokenDecoded increments the decoded tokens counter.
func RecordTokenDecoded() {
	DefaultMetrics.TokensDecoded.Inc()
}

// RecordTokenDuplicate increments the duplicate tokens counter.
func RecordTokenDuplicate() {
	DefaultMetrics.TokensDuplicate.Inc()
}

// RecordTokenMalformed increments the malformed tokens counter.
func RecordTokenMalformed() {
	DefaultMetrics.TokensMalformed.Inc()
}

// RecordTokenDropped increments the dropped tokens counter.
func RecordTokenDropped() {
	DefaultMetrics.TokensDropped.Inc()
}

// RecordBatchClosed records a closed batch and its size.
func RecordBatchClosed(size int) {
	DefaultMetrics.BatchesClosed.Inc()
	DefaultMetrics.BatchSize.Observe(float64(size))
}

// AddActiveSessions adjusts the pending sessions gauge.
func AddActiveSessions(delta int) {
	DefaultMetrics.SessionsActive.Add(float64(delta))
}

// RecordSessionOutcome records a terminal session.
func RecordSessionOutcome(status string) {
	DefaultMetrics.SessionOutcomes.WithLabelValues(status).Inc()
}

// RecordCurveUpdateProcessed increments the evaluated updates counter.
func RecordCurveUpdateProcessed() {
	DefaultMetrics.CurveUpdatesProcessed.Inc()
}

// RecordCurveUpdateDropped records a dropped update.
// reason is one of "inbox_full", "feed_full", "malformed", "price_unavailable", "unknown_account".
func RecordCurveUpdateDropped(reason string) {
	DefaultMetrics.CurveUpdatesDropped.WithLabelValues(reason).Inc()
}

// RecordCurveUpdateLate increments the late updates counter.
func RecordCurveUpdateLate() {
	DefaultMetrics.CurveUpdatesLate.Inc()
}

// RecordPriceFetch records the result of a price fetch.
func RecordPriceFetch(price float64, err error) {
	if err != nil {
		DefaultMetrics.PriceFetchErrors.Inc()
		return
	}
	DefaultMetrics.SOLPriceUSD.Set(price)
}

// RecordBuild records a build result and its latency.
func RecordBuild(status string, latency time.Duration) {
	DefaultMetrics.BuildsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.BuildLatency.Observe(latency.Seconds())
}

// RecordSimulationFailure increments the simulation failures counter.
func RecordSimulationFailure() {
	DefaultMetrics.SimulationFailures.Inc()
}

// RecordPublishError increments the publish errors counter.
func RecordPublishError() {
	DefaultMetrics.PublishErrors.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, d time.Duration) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(d.Seconds())
}

// UpdateHighestSlot updates the highest slot seen gauge.
func UpdateHighestSlot(slot int64) {
	DefaultMetrics.HighestSlotSeen.Set(float64(slot))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
