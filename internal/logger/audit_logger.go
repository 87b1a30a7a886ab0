// Package logger provides audit logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogPredictionPersisted logs a stored prediction superseding any earlier one for the pair.
func (al *AuditLogger) LogPredictionPersisted(predictionID, opportunityID, bidderID, modelVersion string, probability float64, timestamp time.Time) {
	al.WithFields(logrus.Fields{
		"prediction_id":   predictionID,
		"opportunity_id":  opportunityID,
		"bidder_id":       bidderID,
		"model_version":   modelVersion,
		"win_probability": probability,
		"timestamp":       timestamp.Unix(),
	}).Info("Prediction persisted")
}

// LogModelActivated logs a model swap.
func (al *AuditLogger) LogModelActivated(artifactID, modelVersion, previousVersion string, backends []string, trainedAt time.Time) {
	al.WithFields(logrus.Fields{
		"artifact_id":      artifactID,
		"model_version":    modelVersion,
		"previous_version": previousVersion,
		"backends":         backends,
		"trained_at":       trainedAt.Unix(),
	}).Info("Model activated")
}

// LogModelLoaded logs a persisted model installed at startup.
func (al *AuditLogger) LogModelLoaded(modelVersion, source string) {
	al.WithFields(logrus.Fields{
		"model_version": modelVersion,
		"source":        source,
	}).Info("Model loaded")
}

// LogTrainingAborted logs a training run that left the previous model in place.
func (al *AuditLogger) LogTrainingAborted(reason string, rows int, activeVersion string) {
	al.WithFields(logrus.Fields{
		"reason":         reason,
		"rows":           rows,
		"active_version": activeVersion,
	}).Warn("Training aborted, previous model remains active")
}
