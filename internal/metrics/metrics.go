package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests by method, path and status",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and path",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	BatchesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_batches_applied_total",
		Help: "Committed upload batches",
	})

	BatchesReverted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_batches_reverted_total",
		Help: "Uploads reverted without replacement (empty batch or admin revert)",
	})

	RowsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_rows_inserted_total",
		Help: "Sale rows committed to the ledger",
	})

	RowsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_rows_skipped_total",
		Help: "Rows rejected during batch application, by reason",
	}, []string{"reason"})

	LockTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_lock_timeouts_total",
		Help: "Uploads rejected because the key lock could not be acquired",
	})

	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reconcile_batch_duration_seconds",
		Help:    "Wall time of ApplyBatch including lock wait",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
	})
)
