// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Cache metrics
	CacheHits        *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
	CacheStaleServes *prometheus.CounterVec
	CacheWriteErrors prometheus.Counter

	// Upstream metrics
	UpstreamCallLatency *prometheus.HistogramVec
	UpstreamCallErrors  *prometheus.CounterVec

	// Scoring metrics
	SignalsComputed   *prometheus.CounterVec
	PatternsDetected  *prometheus.CounterVec
	UniverseSize      prometheus.Gauge
	SignalsArchived   prometheus.Counter
	ArchiveDropsTotal prometheus.Counter

	// Ledger metrics
	TradesRequested  *prometheus.CounterVec
	TradeTransitions *prometheus.CounterVec
	TradeConflicts   prometheus.Counter
	PortfolioBalance prometheus.Gauge
	PortfolioPnL     prometheus.Gauge

	// HTTP metrics
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponses       *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulCompute prometheus.Gauge
	UptimeSeconds         prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_signals"
	}

	return &Metrics{
		// Cache metrics
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of fresh cache hits by query kind",
		}, []string{"kind"}),
		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses by query kind",
		}, []string{"kind"}),
		CacheStaleServes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "stale_serves_total",
			Help:      "Total number of expired entries served while refreshing",
		}, []string{"kind"}),
		CacheWriteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "write_errors_total",
			Help:      "Total number of failed cache writes",
		}),

		// Upstream metrics
		UpstreamCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "call_latency_seconds",
			Help:      "Upstream data source call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source", "operation"}),
		UpstreamCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "call_errors_total",
			Help:      "Total number of upstream call failures by source",
		}, []string{"source", "operation"}),

		// Scoring metrics
		SignalsComputed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "signals_computed_total",
			Help:      "Total number of signals computed by signal type",
		}, []string{"signal_type"}),
		PatternsDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "patterns_detected_total",
			Help:      "Total number of chart patterns detected by pattern",
		}, []string{"pattern"}),
		UniverseSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "universe_size",
			Help:      "Current number of tokens in the scan universe",
		}),
		SignalsArchived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "signals_archived_total",
			Help:      "Total number of signals written to the archive",
		}),
		ArchiveDropsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "archive_drops_total",
			Help:      "Total number of signals dropped because the archive buffer was full",
		}),

		// Ledger metrics
		TradesRequested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "trades_requested_total",
			Help:      "Total number of trade requests by side",
		}, []string{"side"}),
		TradeTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "trade_transitions_total",
			Help:      "Total number of trade status transitions",
		}, []string{"from", "to"}),
		TradeConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "trade_conflicts_total",
			Help:      "Total number of rejected trade status transitions",
		}),
		PortfolioBalance: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "portfolio_balance_sol",
			Help:      "Current portfolio SOL balance",
		}),
		PortfolioPnL: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "portfolio_pnl_sol",
			Help:      "Current daily realized PnL in SOL",
		}),

		// HTTP metrics
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		HTTPResponses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "responses_total",
			Help:      "Total number of HTTP responses by route and status class",
		}, []string{"route", "status"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulCompute: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_compute_timestamp",
			Help:      "Unix timestamp of the last successful signal computation",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCacheHit increments the fresh hit counter for a query kind.
func RecordCacheHit(kind string) {
	DefaultMetrics.CacheHits.WithLabelValues(kind).Inc()
}

// RecordCacheMiss increments the miss counter for a query kind.
func RecordCacheMiss(kind string) {
	DefaultMetrics.CacheMisses.WithLabelValues(kind).Inc()
}

// RecordCacheStale increments the stale serve counter for a query kind.
func RecordCacheStale(kind string) {
	DefaultMetrics.CacheStaleServes.WithLabelValues(kind).Inc()
}

// RecordCacheWriteError increments the failed cache write counter.
func RecordCacheWriteError() {
	DefaultMetrics.CacheWriteErrors.Inc()
}

// RecordUpstreamCall records one upstream call with its outcome.
func RecordUpstreamCall(source, operation string, seconds float64, err error) {
	DefaultMetrics.UpstreamCallLatency.WithLabelValues(source, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.UpstreamCallErrors.WithLabelValues(source, operation).Inc()
	}
}

// RecordSignalComputed records one scored token.
func RecordSignalComputed(signalType, pattern string) {
	DefaultMetrics.SignalsComputed.WithLabelValues(signalType).Inc()
	if pattern != "" {
		DefaultMetrics.PatternsDetected.WithLabelValues(pattern).Inc()
	}
}

// RecordSignalsArchived adds to the archived signal counter.
func RecordSignalsArchived(n int) {
	DefaultMetrics.SignalsArchived.Add(float64(n))
}

// RecordArchiveDrop increments the dropped signal counter.
func RecordArchiveDrop() {
	DefaultMetrics.ArchiveDropsTotal.Inc()
}

// UpdateUniverseSize updates the scan universe gauge.
func UpdateUniverseSize(n int) {
	DefaultMetrics.UniverseSize.Set(float64(n))
}

// RecordTradeRequested increments the trade request counter for a side.
func RecordTradeRequested(side string) {
	DefaultMetrics.TradesRequested.WithLabelValues(side).Inc()
}

// RecordTradeTransition records a trade status transition.
func RecordTradeTransition(from, to string) {
	DefaultMetrics.TradeTransitions.WithLabelValues(from, to).Inc()
}

// RecordTradeConflict increments the rejected transition counter.
func RecordTradeConflict() {
	DefaultMetrics.TradeConflicts.Inc()
}

// UpdatePortfolio updates the portfolio gauges.
func UpdatePortfolio(balanceSol, pnlSol float64) {
	DefaultMetrics.PortfolioBalance.Set(balanceSol)
	DefaultMetrics.PortfolioPnL.Set(pnlSol)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(route, method string, statusCode int, seconds float64) {
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(route, method).Observe(seconds)
	DefaultMetrics.HTTPResponses.WithLabelValues(route, statusClass(statusCode)).Inc()
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
