package ml

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MLPredictionsTotal tracks total win probability predictions
	MLPredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "win_probability_predictions_total",
			Help: "Total number of win probability predictions made",
		},
		[]string{"cache_hit"},
	)

	// MLPredictionLatency tracks ensemble scoring latency
	MLPredictionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "win_probability_prediction_latency_seconds",
			Help:    "Prediction latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// MLCacheHitRatio tracks cache hit ratio
	MLCacheHitRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "win_probability_cache_hit_ratio",
			Help: "Prediction cache hit ratio",
		},
	)

	// MLTrainingJobsTotal tracks backend fits
	MLTrainingJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "win_probability_training_jobs_total",
			Help: "Total number of backend training attempts",
		},
		[]string{"backend", "status"}, // success, failure
	)

	// MLBackendAUC tracks the holdout AUC-ROC of the last accepted fit per backend
	MLBackendAUC = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "win_probability_backend_auc_roc",
			Help: "Holdout AUC-ROC of the last trained backend",
		},
		[]string{"backend"},
	)

	// MLEnsembleMembers tracks the number of backends in the live ensemble
	MLEnsembleMembers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "win_probability_ensemble_members",
			Help: "Number of backends in the live ensemble",
		},
	)
)
