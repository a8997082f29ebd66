// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"solana-exit-engine/internal/solana"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "solana_exit_engine"

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	// Executor metrics
	SellAttempts       *prometheus.CounterVec
	SellAttemptLatency *prometheus.HistogramVec
	SellOutcomes       *prometheus.CounterVec
	SellDuration       prometheus.Histogram
	SellsInFlight      prometheus.Gauge

	// Verification metrics
	VerifyPolls *prometheus.CounterVec

	// Watcher metrics
	StreamNotifications prometheus.Counter
	DuplicateSignatures prometheus.Counter
	TradesExtracted     *prometheus.CounterVec
	ExtractErrors       prometheus.Counter
	TriggersSkipped     *prometheus.CounterVec
	HighestSlotSeen     prometheus.Gauge

	// RPC metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec

	// Health
	LastSuccessfulSell prometheus.Gauge
}

// NewMetrics registers all metrics on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SellAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "attempts_total",
			Help:      "Sell attempts by venue, final stage and result",
		}, []string{"venue", "stage", "result"}),
		SellAttemptLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "attempt_latency_seconds",
			Help:      "Duration of one build/submit/verify attempt",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"venue"}),
		SellOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "sells_total",
			Help:      "Finished sells by final venue and result",
		}, []string{"venue", "result", "fallback"}),
		SellDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "sell_duration_seconds",
			Help:      "End-to-end sell duration",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}),
		SellsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "sells_in_flight",
			Help:      "Sells currently executing",
		}),

		VerifyPolls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "confirm",
			Name:      "status_polls_total",
			Help:      "Signature status queries by observed status",
		}, []string{"status"}),

		StreamNotifications: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "notifications_total",
			Help:      "Log notifications received from the stream",
		}),
		DuplicateSignatures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "duplicate_signatures_total",
			Help:      "Notifications dropped as already seen",
		}),
		TradesExtracted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "trades_extracted_total",
			Help:      "Trades extracted by side and confidence",
		}, []string{"side", "confidence"}),
		ExtractErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "extract_errors_total",
			Help:      "Transactions that could not be fetched or decoded",
		}),
		TriggersSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "triggers_skipped_total",
			Help:      "Trades not acted on, by reason",
		}, []string{"reason"}),
		HighestSlotSeen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "highest_slot_seen",
			Help:      "Highest slot seen on the log stream",
		}),

		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Failed Solana RPC calls",
		}, []string{"method"}),

		LastSuccessfulSell: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_sell_timestamp",
			Help:      "Unix timestamp of the last confirmed sell",
		}),
	}
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRPCCall matches solana.CallObserver.
func (m *Metrics) ObserveRPCCall(method string, elapsed time.Duration, err error) {
	m.RPCCallLatency.WithLabelValues(method).Observe(elapsed.Seconds())
	if err != nil {
		m.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// ObserveVerifyPoll matches confirm.PollFunc.
func (m *Metrics) ObserveVerifyPoll(_ int, status *solana.SignatureStatus, err error) {
	label := "pending"
	switch {
	case err != nil:
		label = "error"
	case status == nil:
		label = "not_found"
	case status.Err != nil:
		label = "failed"
	case status.ConfirmationStatus != "":
		label = string(status.ConfirmationStatus)
	}
	m.VerifyPolls.WithLabelValues(label).Inc()
}
