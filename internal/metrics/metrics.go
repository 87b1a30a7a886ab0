// Package metrics provides the centralized Prometheus registry for the win probability service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "win_probability"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	ServiceRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "service_requests_total",
		Help:      "Total number of service operations by outcome",
	}, []string{"operation", "status"})
	DegradedSignalsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "degraded_signals_total",
		Help:      "Optional inputs that were unavailable at prediction time",
	}, []string{"signal"})
	PredictionsPersistedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "predictions_persisted_total",
		Help:      "Total number of prediction upserts by outcome",
	}, []string{"status"})
	MarketRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "market_refresh_total",
		Help:      "Total number of market snapshot reloads by outcome",
	}, []string{"status"})
)

// Gauge metrics
var (
	ModelLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "model_loaded",
		Help:      "1 when a trained ensemble is serving predictions",
	})
	ModelTrainedTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "model_trained_timestamp_seconds",
		Help:      "Unix time the live ensemble was trained",
	})
	MarketSnapshotTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "market_snapshot_timestamp_seconds",
		Help:      "Unix time of the market snapshot in use",
	})
)

// Histogram metrics
var (
	OperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of service operations in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	PredictedProbability = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "predicted_probability",
		Help:      "Distribution of served win probabilities",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})
	PredictedConfidence = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "predicted_confidence",
		Help:      "Distribution of served confidence scores",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(ServiceRequestsTotal)
		registry.MustRegister(DegradedSignalsTotal)
		registry.MustRegister(PredictionsPersistedTotal)
		registry.MustRegister(MarketRefreshTotal)

		// Register gauge metrics
		registry.MustRegister(ModelLoaded)
		registry.MustRegister(ModelTrainedTimestamp)
		registry.MustRegister(MarketSnapshotTimestamp)

		// Register histogram metrics
		registry.MustRegister(OperationDuration)
		registry.MustRegister(PredictedProbability)
		registry.MustRegister(PredictedConfidence)

		// Register training and scheduler metrics
		registry.MustRegister(TrainingRunsTotal)
		registry.MustRegister(TrainingDuration)
		registry.MustRegister(TrainingRows)
		registry.MustRegister(SchedulerJobRunsTotal)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler. It also exposes the default
// registry, which carries the Go runtime collectors and the promauto ML metrics.
func Handler() http.Handler {
	gatherers := prometheus.Gatherers{GetRegistry(), prometheus.DefaultGatherer}
	return promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})
}

// RecordRequest records the outcome and duration of a service operation.
func RecordRequest(operation string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ServiceRequestsTotal.WithLabelValues(operation, status).Inc()
	OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordDegradedSignal records an optional input that could not be loaded.
func RecordDegradedSignal(signal string) {
	DegradedSignalsTotal.WithLabelValues(signal).Inc()
}

// RecordPrediction records the distribution of a served prediction.
func RecordPrediction(probability, confidence float64) {
	PredictedProbability.Observe(probability)
	PredictedConfidence.Observe(confidence)
}

// RecordPredictionPersisted records a prediction upsert.
func RecordPredictionPersisted(err error) {
	if err != nil {
		PredictionsPersistedTotal.WithLabelValues("error").Inc()
		return
	}
	PredictionsPersistedTotal.WithLabelValues("success").Inc()
}

// RecordMarketRefresh records a market snapshot reload.
func RecordMarketRefresh(err error, refreshedAt time.Time) {
	if err != nil {
		MarketRefreshTotal.WithLabelValues("error").Inc()
		return
	}
	MarketRefreshTotal.WithLabelValues("success").Inc()
	MarketSnapshotTimestamp.Set(float64(refreshedAt.Unix()))
}

// UpdateModelState updates the live model gauges.
func UpdateModelState(loaded bool, trainedAt time.Time) {
	if !loaded {
		ModelLoaded.Set(0)
		return
	}
	ModelLoaded.Set(1)
	ModelTrainedTimestamp.Set(float64(trainedAt.Unix()))
}
