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
	// Refresh metrics
	RefreshRunsTotal    *prometheus.CounterVec
	RefreshDuration     prometheus.Histogram
	RefreshRejected     prometheus.Counter
	HoldersInSnapshot   prometheus.Gauge
	FallbackSnapshots   prometheus.Counter
	BalanceLookupErrors prometheus.Counter

	// Monitor metrics
	MonitorPassesTotal   prometheus.Counter
	MonitorAddressErrors prometheus.Counter
	TransactionsUpserted *prometheus.CounterVec
	ClassifierOutcomes   *prometheus.CounterVec

	// Live feed metrics
	LiveNotifications prometheus.Counter
	WSReconnects      prometheus.Counter

	// Ledger metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRefresh prometheus.Gauge
	LastSuccessfulMonitor prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "holder_tracker"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		RefreshRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "runs_total",
			Help:      "Total number of holder refresh cycles by status and snapshot source",
		}, []string{"status", "source"}),
		RefreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "duration_seconds",
			Help:      "Holder refresh cycle duration in seconds",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		RefreshRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "rejected_total",
			Help:      "Refresh triggers rejected because a cycle was already running",
		}),
		HoldersInSnapshot: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "holders",
			Help:      "Number of holders in the current snapshot",
		}),
		FallbackSnapshots: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "fallback_total",
			Help:      "Total number of synthetic fallback snapshots built",
		}),
		BalanceLookupErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "balance_lookup_errors_total",
			Help:      "Native balance lookups that failed and defaulted to zero",
		}),

		MonitorPassesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "passes_total",
			Help:      "Total number of transaction monitor passes",
		}),
		MonitorAddressErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "address_errors_total",
			Help:      "Addresses skipped in a monitor pass because the ledger failed",
		}),
		TransactionsUpserted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "transactions_upserted_total",
			Help:      "Classified transactions written to the store by direction",
		}, []string{"direction"}),
		ClassifierOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "outcomes_total",
			Help:      "Classification outcomes (accepted, rejected)",
		}, []string{"outcome"}),

		LiveNotifications: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "notifications_total",
			Help:      "Log notifications received from the websocket feed",
		}),
		WSReconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_reconnects_total",
			Help:      "Websocket reconnect attempts",
		}),

		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Solana RPC calls that failed after retries",
		}, []string{"method"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulRefresh: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of last completed holder refresh",
		}),
		LastSuccessfulMonitor: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_monitor_timestamp",
			Help:      "Unix timestamp of last monitor pass",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordRefresh records a finished refresh cycle.
func RecordRefresh(status, source string, holders int, durationSeconds float64, finishedAt int64) {
	DefaultMetrics.RefreshRunsTotal.WithLabelValues(status, source).Inc()
	DefaultMetrics.RefreshDuration.Observe(durationSeconds)
	if status == "completed" {
		DefaultMetrics.HoldersInSnapshot.Set(float64(holders))
		DefaultMetrics.LastSuccessfulRefresh.Set(float64(finishedAt))
	}
}

// RecordRefreshRejected increments the rejected trigger counter.
func RecordRefreshRejected() {
	DefaultMetrics.RefreshRejected.Inc()
}

// RecordFallbackSnapshot increments the fallback snapshot counter.
func RecordFallbackSnapshot() {
	DefaultMetrics.FallbackSnapshots.Inc()
}

// RecordBalanceLookupError increments the balance lookup error counter.
func RecordBalanceLookupError() {
	DefaultMetrics.BalanceLookupErrors.Inc()
}

// RecordMonitorPass records a finished monitor pass.
func RecordMonitorPass(failedAddresses int, finishedAt int64) {
	DefaultMetrics.MonitorPassesTotal.Inc()
	DefaultMetrics.MonitorAddressErrors.Add(float64(failedAddresses))
	DefaultMetrics.LastSuccessfulMonitor.Set(float64(finishedAt))
}

// RecordTransactionUpserted increments the upserted transactions counter.
func RecordTransactionUpserted(direction string) {
	DefaultMetrics.TransactionsUpserted.WithLabelValues(direction).Inc()
}

// RecordClassification records a classifier outcome.
func RecordClassification(accepted bool) {
	if accepted {
		DefaultMetrics.ClassifierOutcomes.WithLabelValues("accepted").Inc()
		return
	}
	DefaultMetrics.ClassifierOutcomes.WithLabelValues("rejected").Inc()
}

// RecordLiveNotification increments the live notification counter.
func RecordLiveNotification() {
	DefaultMetrics.LiveNotifications.Inc()
}

// RecordWSReconnect increments the websocket reconnect counter.
func RecordWSReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordRPCError increments the RPC error counter.
func RecordRPCError(method string) {
	DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
