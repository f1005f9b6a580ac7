package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Domain metrics for ad decisioning and impression billing, following the
// same promauto.NewCounterVec/NewHistogramVec pattern as the teacher's
// app/middleware/metrics.go HTTP metrics, but tracking spec §4.5-§4.8's
// business events rather than request shape.
var (
	candidatesFetched = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ad_candidates_fetched",
			Help:    "Number of eligible candidates returned per serve request",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
		[]string{"fetch_mode"},
	)

	scoreDistribution = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ad_score_distribution",
			Help:    "Composite score of the selected ad candidate",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	reservationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ad_reservation_outcomes_total",
			Help: "Outcome of ad reservation attempts",
		},
		[]string{"outcome"},
	)

	confirmOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "impression_confirm_outcomes_total",
			Help: "Outcome of impression confirm events",
		},
		[]string{"event", "outcome"},
	)

	budgetExceededTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ad_budget_exceeded_total",
			Help: "Number of billable confirms rejected for insufficient budget",
		},
	)
)
