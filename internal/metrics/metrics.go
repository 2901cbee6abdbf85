package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Quote metrics
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_engine_quote_requests_total",
			Help: "Total number of quote requests",
		},
		[]string{"swap_mode", "route", "status"},
	)

	QuoteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swap_engine_quote_duration_seconds",
			Help:    "Quote request duration in seconds, pool reads included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"swap_mode"},
	)

	PoolResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_engine_pool_resolutions_total",
			Help: "Total number of pool lookups by result",
		},
		[]string{"result"},
	)

	PriceImpact = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swap_engine_price_impact_bps",
			Help:    "Price impact in basis points",
			Buckets: []float64{0, 10, 50, 100, 300, 500, 1000, 5000, 10000},
		},
		[]string{"severity"},
	)

	// Execution metrics
	Executions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_engine_executions_total",
			Help: "Total number of executed plans by outcome",
		},
		[]string{"route", "outcome"},
	)

	ExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swap_engine_execution_duration_seconds",
			Help:    "Plan execution duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 45, 60},
		},
		[]string{"route"},
	)

	SubmissionAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_engine_submission_attempts_total",
			Help: "Total number of transaction sends by result",
		},
		[]string{"result"},
	)

	Confirmations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_engine_confirmations_total",
			Help: "Total number of terminal confirmation states",
		},
		[]string{"state"},
	)

	ConfirmationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swap_engine_confirmation_duration_seconds",
		Help:    "Time from acceptance to terminal state",
		Buckets: []float64{0.5, 1, 2, 3, 5, 8, 13, 20, 30},
	})

	PartialRoutes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swap_engine_partial_routes_total",
		Help: "Routed plans whose first leg settled while the second did not",
	})

	// Simulation metrics
	SimulationRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swap_engine_simulation_requests_total",
		Help: "Total number of transaction simulations",
	})

	SimulationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_engine_simulation_failures_total",
			Help: "Total number of failed transaction simulations",
		},
		[]string{"reason"},
	)

	ComputeUnits = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swap_engine_compute_units",
		Help:    "Compute units consumed by simulated transactions",
		Buckets: []float64{1000, 5000, 10000, 50000, 100000, 200000, 400000},
	})

	// Blockhash metrics
	BlockhashSource = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_engine_blockhash_requests_total",
			Help: "Blockhash requests by source (stream or rpc)",
		},
		[]string{"source"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_engine_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swap_engine_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
