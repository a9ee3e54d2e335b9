package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// It is passed explicitly to every component that records metrics; a nil
// *Metrics means "do not record".
type Metrics struct {
	// Explorer API
	explorerRequestsTotal   *prometheus.CounterVec
	explorerRequestDuration *prometheus.HistogramVec
	transactionsFetched     *prometheus.HistogramVec

	// Solana RPC
	solanaRPCCallsTotal   *prometheus.CounterVec
	solanaRPCCallDuration *prometheus.HistogramVec

	// Token resolution
	tokenResolutionsTotal *prometheus.CounterVec
	tokenCacheSize        prometheus.Gauge
	tokenCacheFlushes     *prometheus.CounterVec

	// Classification
	actionsClassifiedTotal *prometheus.CounterVec
	dataAnomaliesTotal     *prometheus.CounterVec

	// Commands
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec

	// Database
	dbQueryDuration   *prometheus.HistogramVec
	dbOperationsTotal *prometheus.CounterVec

	// HTTP
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec

	// Digests
	digestActivityDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		explorerRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "explorer_requests_total",
				Help: "Total number of explorer transfer page requests by status",
			},
			[]string{"status"},
		),
		explorerRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "explorer_request_duration_seconds",
				Help:    "Duration of explorer transfer page requests in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"status"},
		),
		transactionsFetched: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "transactions_fetched_per_command",
				Help:    "Number of transactions fetched for one command",
				Buckets: []float64{0, 1, 10, 50, 100, 250, 500, 1000},
			},
			[]string{"command"},
		),

		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method"},
		),

		tokenResolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_resolutions_total",
				Help: "Total number of token metadata resolutions by source (cache, chain, placeholder)",
			},
			[]string{"source"},
		),
		tokenCacheSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "token_cache_entries",
				Help: "Number of tokens held in the metadata cache",
			},
		),
		tokenCacheFlushes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_cache_flushes_total",
				Help: "Total number of token cache flushes to the backing store",
			},
			[]string{"status"},
		),

		actionsClassifiedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "actions_classified_total",
				Help: "Total number of transactions classified by action kind",
			},
			[]string{"kind"},
		),
		dataAnomaliesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "data_anomalies_total",
				Help: "Total number of tolerated data anomalies by kind",
			},
			[]string{"kind"},
		),

		commandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commands_total",
				Help: "Total number of report commands by command, surface and status",
			},
			[]string{"command", "surface", "status"},
		),
		commandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "command_duration_seconds",
				Help:    "Duration of report commands in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"command", "surface"},
		),

		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation", "table"},
		),
		dbOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),

		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),

		digestActivityDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "digest_activity_duration_seconds",
				Help:    "Duration of digest workflow activities in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"activity", "status"},
		),
	}
}

// Explorer metric helpers

// RecordExplorerRequest records one explorer page request.
func (m *Metrics) RecordExplorerRequest(status string, duration float64) {
	m.explorerRequestsTotal.WithLabelValues(status).Inc()
	m.explorerRequestDuration.WithLabelValues(status).Observe(duration)
}

// RecordTransactionsFetched records how many transactions a command fetched.
func (m *Metrics) RecordTransactionsFetched(command string, count int) {
	m.transactionsFetched.WithLabelValues(command).Observe(float64(count))
}

// Solana RPC metric helpers

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method).Observe(duration)
}

// Token metric helpers

// RecordTokenResolution records where a token's metadata came from.
func (m *Metrics) RecordTokenResolution(source string) {
	m.tokenResolutionsTotal.WithLabelValues(source).Inc()
}

// SetTokenCacheSize records the current number of cached tokens.
func (m *Metrics) SetTokenCacheSize(n int) {
	m.tokenCacheSize.Set(float64(n))
}

// RecordTokenCacheFlush records a flush of the token cache.
func (m *Metrics) RecordTokenCacheFlush(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.tokenCacheFlushes.WithLabelValues(status).Inc()
}

// Classification metric helpers

// RecordActionClassified records one classified transaction.
func (m *Metrics) RecordActionClassified(kind string) {
	m.actionsClassifiedTotal.WithLabelValues(kind).Inc()
}

// RecordDataAnomaly records a tolerated data anomaly such as a timestamp mismatch.
func (m *Metrics) RecordDataAnomaly(kind string) {
	m.dataAnomaliesTotal.WithLabelValues(kind).Inc()
}

// Command metric helpers

// RecordCommand records a completed report command.
func (m *Metrics) RecordCommand(command, surface string, err error, duration float64) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.commandsTotal.WithLabelValues(command, surface, status).Inc()
	m.commandDuration.WithLabelValues(command, surface).Observe(duration)
}

// Database metric helpers

// RecordDBQuery records a database query with duration.
func (m *Metrics) RecordDBQuery(operation, table string, duration float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration)
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

// Digest metric helpers

// RecordDigestActivity records a digest activity execution.
func (m *Metrics) RecordDigestActivity(activity string, err error, duration float64) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.digestActivityDuration.WithLabelValues(activity, status).Observe(duration)
}

func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
