package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ekaant_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)

	AllocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ekaant_allocations_total",
			Help: "Seat allocation attempts by path and outcome",
		},
		[]string{"path", "outcome"},
	)

	AvailabilityTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ekaant_availability_tx_seconds",
			Help:    "Duration of availability store transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	AvailabilityTxRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ekaant_availability_tx_retries_total",
			Help: "Serialization-conflict retries inside the availability store",
		},
	)

	WaitlistPromotions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ekaant_waitlist_promotions_total",
			Help: "Waiting-list entries promoted to offered",
		},
	)

	WaitlistOffersExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ekaant_waitlist_offers_expired_total",
			Help: "Waiting-list offers reclaimed by the expiry sweep",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ekaant_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)
