package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	// Transactions
	TransactionsCreated   *prometheus.CounterVec
	TransactionsPosted    prometheus.Counter
	TransactionsArchived  prometheus.Counter
	TransactionsRejected  *prometheus.CounterVec
	EntriesPerTransaction prometheus.Histogram

	// Balance engine
	EngineRequests prometheus.Counter
	EngineErrors   *prometheus.CounterVec
	EngineDuration *prometheus.HistogramVec

	// Balance cache
	BalanceCacheHits   prometheus.Counter
	BalanceCacheMisses prometheus.Counter

	// Idempotency
	IdempotencyReplays   prometheus.Counter
	IdempotencyConflicts prometheus.Counter
	WriteTxDuration      prometheus.Histogram

	// Consistency checks
	ConsistencyChecks prometheus.Counter
	ConsistencyDrifts prometheus.Counter
}

// New creates and registers all metrics.
func New() *Metrics {
	return &Metrics{
		TransactionsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerapi_transactions_created_total",
			Help: "Total number of transactions created, by status.",
		}, []string{"status"}),
		TransactionsPosted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgerapi_transactions_posted_total",
			Help: "Total number of pending transactions posted.",
		}),
		TransactionsArchived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgerapi_transactions_archived_total",
			Help: "Total number of pending transactions archived.",
		}),
		TransactionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerapi_transactions_rejected_total",
			Help: "Total number of transactions rejected, by reason.",
		}, []string{"reason"}),
		EntriesPerTransaction: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledgerapi_entries_per_transaction",
			Help:    "Number of entries per submitted transaction.",
			Buckets: []float64{2, 4, 8, 16, 32, 64, 100},
		}),
		EngineRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgerapi_engine_requests_total",
			Help: "Total number of balance engine requests.",
		}),
		EngineErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerapi_engine_errors_total",
			Help: "Total number of balance engine errors, by kind.",
		}, []string{"kind"}),
		EngineDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledgerapi_engine_request_duration_seconds",
			Help:    "Balance engine request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		BalanceCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgerapi_balance_cache_hits_total",
			Help: "Total number of balance cache hits.",
		}),
		BalanceCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgerapi_balance_cache_misses_total",
			Help: "Total number of balance cache misses.",
		}),
		IdempotencyReplays: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgerapi_idempotency_replays_total",
			Help: "Total number of requests answered from stored idempotency records.",
		}),
		IdempotencyConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgerapi_idempotency_conflicts_total",
			Help: "Total number of idempotency key conflicts.",
		}),
		WriteTxDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledgerapi_write_tx_duration_seconds",
			Help:    "Duration of idempotent write transactions in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		ConsistencyChecks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgerapi_consistency_checks_total",
			Help: "Total number of ledger consistency checks run.",
		}),
		ConsistencyDrifts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgerapi_consistency_drifts_total",
			Help: "Total number of accounts found drifted from the engine.",
		}),
	}
}
