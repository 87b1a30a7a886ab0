// Package logger provides ML-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// MLLogger provides dedicated logging for model training and inference.
type MLLogger struct {
	*logrus.Entry
}

// NewMLLogger creates a new ML logger.
func NewMLLogger(baseLogger *logrus.Logger) *MLLogger {
	return &MLLogger{
		Entry: baseLogger.WithField("component", "ml"),
	}
}

// LogTrainingCompleted logs a finished training run.
func (ml *MLLogger) LogTrainingCompleted(modelVersion string, backends []string, trainRows, holdoutRows int, trainingDuration float64, auc map[string]float64) {
	ml.WithFields(logrus.Fields{
		"model_version":     modelVersion,
		"backends":          backends,
		"train_rows":        trainRows,
		"holdout_rows":      holdoutRows,
		"training_duration": trainingDuration,
		"auc_roc":           auc,
	}).Info("Model training completed")
}

// LogBackendRejected logs a backend excluded from the ensemble.
func (ml *MLLogger) LogBackendRejected(backend string, reason string) {
	ml.WithFields(logrus.Fields{
		"backend":      backend,
		"error_reason": reason,
	}).Warn("Backend rejected from ensemble")
}

// LogPredictionServed logs a completed prediction.
func (ml *MLLogger) LogPredictionServed(opportunityID, bidderID, modelVersion string, probability, confidence float64, cacheHit bool, latencyMs float64) {
	ml.WithFields(logrus.Fields{
		"opportunity_id":   opportunityID,
		"bidder_id":        bidderID,
		"model_version":    modelVersion,
		"win_probability":  probability,
		"confidence_score": confidence,
		"cache_hit":        cacheHit,
		"latency_ms":       latencyMs,
	}).Debug("Prediction served")
}

// LogDegradedSignal logs optional data that was unavailable for a prediction.
func (ml *MLLogger) LogDegradedSignal(opportunityID, bidderID, signal string, err error) {
	ml.WithFields(logrus.Fields{
		"opportunity_id": opportunityID,
		"bidder_id":      bidderID,
		"signal":         signal,
		"error":          err,
	}).Warn("Degraded signal, continuing with defaults")
}

// LogPredictionError logs prediction errors.
func (ml *MLLogger) LogPredictionError(opportunityID, bidderID string, errorReason string) {
	ml.WithFields(logrus.Fields{
		"opportunity_id": opportunityID,
		"bidder_id":      bidderID,
		"error_reason":   errorReason,
	}).Error("Prediction failed")
}
