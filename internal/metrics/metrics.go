package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Detection metrics
	AnalyzedTransactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zapmono_analyzed_transactions_total",
			Help: "Total number of transactions analyzed for copyability",
		},
		[]string{"result"},
	)

	DetectedSwaps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zapmono_detected_swaps_total",
			Help: "Total number of detected copyable swap instructions",
		},
		[]string{"platform", "trade_type"},
	)

	DetectionAnomalies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zapmono_detection_anomalies_total",
		Help: "Total number of data-quality anomalies seen during detection",
	})

	// Forge metrics
	ForgedInstructions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zapmono_forged_instructions_total",
			Help: "Total number of forged instruction sets",
		},
		[]string{"platform", "status"},
	)

	ForgeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "zapmono_forge_duration_seconds",
		Help:    "Forge duration in seconds",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})

	AtaCreations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zapmono_ata_create_instructions_total",
		Help: "Total number of create-ATA instructions injected by the forge",
	})

	// Artifact cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zapmono_artifact_cache_hits_total",
			Help: "Total number of artifact cache hits",
		},
		[]string{"class"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zapmono_artifact_cache_misses_total",
			Help: "Total number of artifact cache misses",
		},
		[]string{"class"},
	)

	CacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zapmono_artifact_cache_entries",
		Help: "Current number of live artifact cache entries",
	})

	CacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zapmono_artifact_cache_evictions_total",
		Help: "Total number of artifact cache entries evicted by TTL sweep",
	})

	// Execution queue metrics
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zapmono_execution_queue_depth",
		Help: "Current number of trades waiting for an execution slot",
	})

	InFlightExecutions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zapmono_inflight_executions",
		Help: "Current number of executing trades",
	})

	TradeOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zapmono_trade_outcomes_total",
			Help: "Total number of terminal trade outcomes",
		},
		[]string{"status"},
	)

	ExecutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "zapmono_execution_duration_seconds",
		Help:    "Submit-to-terminal duration per trade in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	})

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zapmono_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zapmono_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
