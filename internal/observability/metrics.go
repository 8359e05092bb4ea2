package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brs_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "brs_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "brs_outbox_lag_seconds",
			Help: "Age of the oldest unpublished outbox record",
		},
	)

	SaleConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "brs_sale_conflicts_total",
			Help: "Confirm-sale attempts rejected because a sale already existed",
		},
	)

	CascadeDeletions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "brs_cascade_deletions_total",
			Help: "Reservations deleted by removing their last passenger",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "brs_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)
