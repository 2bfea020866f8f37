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
	// Storefront metrics
	PageViews      *prometheus.CounterVec
	MintAttempts   *prometheus.CounterVec
	MintOutcomes   *prometheus.CounterVec
	ClaimDuration  prometheus.Histogram
	ActiveSessions prometheus.Gauge

	// Wallet metrics
	WalletConnects *prometheus.CounterVec

	// Content metrics
	ContentFetchLatency *prometheus.HistogramVec
	ContentFetchErrors  *prometheus.CounterVec

	// Chain metrics
	RPCCallLatency   *prometheus.HistogramVec
	WSReconnects     prometheus.Counter
	SignatureLatency prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulMint prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "drop_storefront"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		PageViews: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storefront",
			Name:      "page_views_total",
			Help:      "Total number of drop page renders by slug",
		}, []string{"slug"}),
		MintAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storefront",
			Name:      "mint_attempts_total",
			Help:      "Total number of mint attempts by slug",
		}, []string{"slug"}),
		MintOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storefront",
			Name:      "mint_outcomes_total",
			Help:      "Total number of settled mints by slug and result",
		}, []string{"slug", "result"}),
		ClaimDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storefront",
			Name:      "claim_duration_seconds",
			Help:      "Time from claim submission to settled receipt",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "storefront",
			Name:      "active_controllers",
			Help:      "Number of page controllers held in memory",
		}),

		WalletConnects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "connects_total",
			Help:      "Total number of wallet connect attempts by result",
		}, []string{"result"}),

		ContentFetchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "content",
			Name:      "fetch_latency_seconds",
			Help:      "Content store query latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"dataset"}),
		ContentFetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "content",
			Name:      "fetch_errors_total",
			Help:      "Total number of failed content store queries",
		}, []string{"dataset", "reason"}),

		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		WSReconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_reconnects_total",
			Help:      "Total number of successful WebSocket reconnects",
		}),
		SignatureLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "signature_confirmation_seconds",
			Help:      "Time from sendTransaction to signature confirmation",
			Buckets:   []float64{0.4, 0.8, 1.6, 3.2, 6.4, 12.8, 25.6, 51.2},
		}),

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

		LastSuccessfulMint: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_mint_timestamp",
			Help:      "Unix timestamp of last successful mint",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordPageView increments the page view counter for slug.
func RecordPageView(slug string) {
	DefaultMetrics.PageViews.WithLabelValues(slug).Inc()
}

// RecordMintAttempt increments the mint attempt counter for slug.
func RecordMintAttempt(slug string) {
	DefaultMetrics.MintAttempts.WithLabelValues(slug).Inc()
}

// RecordMintOutcome records a settled mint and how long the claim took.
func RecordMintOutcome(slug string, success bool, seconds float64, unixNow int64) {
	result := "failure"
	if success {
		result = "success"
		DefaultMetrics.LastSuccessfulMint.Set(float64(unixNow))
	}
	DefaultMetrics.MintOutcomes.WithLabelValues(slug, result).Inc()
	DefaultMetrics.ClaimDuration.Observe(seconds)
}

// SetActiveSessions updates the page controller gauge.
func SetActiveSessions(n int) {
	DefaultMetrics.ActiveSessions.Set(float64(n))
}

// RecordWalletConnect records a wallet connect attempt.
func RecordWalletConnect(ok bool) {
	result := "rejected"
	if ok {
		result = "connected"
	}
	DefaultMetrics.WalletConnects.WithLabelValues(result).Inc()
}

// RecordContentFetch records a content store query. reason is empty on success.
func RecordContentFetch(dataset string, seconds float64, reason string) {
	DefaultMetrics.ContentFetchLatency.WithLabelValues(dataset).Observe(seconds)
	if reason != "" {
		DefaultMetrics.ContentFetchErrors.WithLabelValues(dataset, reason).Inc()
	}
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordWSReconnect increments the WebSocket reconnect counter.
func RecordWSReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}

// RecordSignatureLatency records how long a signature took to confirm.
func RecordSignatureLatency(seconds float64) {
	DefaultMetrics.SignatureLatency.Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
