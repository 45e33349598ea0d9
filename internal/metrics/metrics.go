package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DirectoryOperations tracks remote directory calls
	DirectoryOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mevx_directory_operations_total",
			Help: "The total number of remote directory operations",
		},
		[]string{"operation", "status"}, // create/list/update/delete, success/failed/unavailable
	)

	// DirectoryPushes tracks full-collection pushes to subscribers
	DirectoryPushes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mevx_directory_pushes_total",
		Help: "The total number of collection snapshots pushed to subscribers",
	})

	// PriceFetches tracks price source requests by source and status
	PriceFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mevx_price_fetches_total",
			Help: "The total number of price source requests",
		},
		[]string{"source", "status"},
	)

	// SolPrice tracks the cached SOL/USD price
	SolPrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mevx_sol_price_usd",
		Help: "The cached SOL price in USD",
	})

	// PriceSourceHealth tracks price source health
	PriceSourceHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mevx_price_source_health",
			Help: "Health status of price sources (1 = healthy, 0 = cooling down)",
		},
		[]string{"source"},
	)

	// EventsPublished tracks bus events by topic
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mevx_events_published_total",
			Help: "The total number of events published on the in-process bus",
		},
		[]string{"topic"},
	)

	// LocalStateWrites tracks device-local blob writes
	LocalStateWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mevx_local_state_writes_total",
			Help: "The total number of local state writes",
		},
		[]string{"key", "status"},
	)

	// WalletConnections tracks connect attempts by method and outcome
	WalletConnections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mevx_wallet_connections_total",
			Help: "The total number of wallet connection attempts",
		},
		[]string{"method", "status"},
	)

	// CachedUsers tracks the size of the local user cache
	CachedUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mevx_cached_users",
		Help: "The number of users held in the local cache",
	})

	// Reconciliations tracks scheduled reloads of the user cache
	Reconciliations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mevx_reconciliations_total",
			Help: "The total number of scheduled user cache reconciliations",
		},
		[]string{"status"},
	)
)

// RecordDirectoryOperation records a remote directory operation
func RecordDirectoryOperation(operation, status string) {
	DirectoryOperations.WithLabelValues(operation, status).Inc()
}

// RecordPriceFetch records a price source request with the given status
func RecordPriceFetch(source, status string) {
	PriceFetches.WithLabelValues(source, status).Inc()
}

// SetPriceSourceHealth sets the health status of a price source
func SetPriceSourceHealth(source string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	PriceSourceHealth.WithLabelValues(source).Set(value)
}

// RecordEvent records a published bus event
func RecordEvent(topic string) {
	EventsPublished.WithLabelValues(topic).Inc()
}

// RecordLocalStateWrite records a local state write
func RecordLocalStateWrite(key, status string) {
	LocalStateWrites.WithLabelValues(key, status).Inc()
}

// RecordWalletConnection records a wallet connection attempt
func RecordWalletConnection(method, status string) {
	WalletConnections.WithLabelValues(method, status).Inc()
}

// RecordReconciliation records a scheduled user cache reload
func RecordReconciliation(status string) {
	Reconciliations.WithLabelValues(status).Inc()
}
