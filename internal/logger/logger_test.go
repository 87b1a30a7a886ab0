package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerLevels(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewLoggerWithOutput("debug", "development", buf)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	_, isText := log.Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)

	log = NewLoggerWithOutput("bogus", "production", buf)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	_, isJSON := log.Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)
}

func TestMLLoggerTrainingCompleted(t *testing.T) {
	log, buf := setupTestLogger()
	mlLogger := NewMLLogger(log)

	mlLogger.LogTrainingCompleted("v1", []string{"random_forest"}, 80, 20, 1.5, map[string]float64{"random_forest": 0.8})

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "ml", logEntry["component"])
	assert.Equal(t, "v1", logEntry["model_version"])
	assert.Equal(t, float64(80), logEntry["train_rows"])
}

func TestMLLoggerBackendRejected(t *testing.T) {
	log, buf := setupTestLogger()
	mlLogger := NewMLLogger(log)

	mlLogger.LogBackendRejected("logistic_regression", "degenerate labels")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "warning", logEntry["level"])
	assert.Equal(t, "logistic_regression", logEntry["backend"])
}

func TestMLLoggerPredictionServed(t *testing.T) {
	log, buf := setupTestLogger()
	mlLogger := NewMLLogger(log)

	mlLogger.LogPredictionServed("opp-1", "acme", "v1", 0.72, 0.6, true, 1.2)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "opp-1", logEntry["opportunity_id"])
	assert.Equal(t, "acme", logEntry["bidder_id"])
	assert.Equal(t, true, logEntry["cache_hit"])
}

func TestMLLoggerDegradedSignal(t *testing.T) {
	log, buf := setupTestLogger()
	mlLogger := NewMLLogger(log)

	mlLogger.LogDegradedSignal("opp-1", "acme", "market_data", errors.New("timeout"))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "market_data", logEntry["signal"])
	assert.Equal(t, "timeout", logEntry["error"])
}

func TestMLLoggerPredictionError(t *testing.T) {
	log, buf := setupTestLogger()
	mlLogger := NewMLLogger(log)

	mlLogger.LogPredictionError("opp-1", "acme", "model not loaded")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "error", logEntry["level"])
	assert.Equal(t, "model not loaded", logEntry["error_reason"])
}

func TestAuditLoggerPredictionPersisted(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	now := time.Now()
	auditLogger.LogPredictionPersisted("pred-1", "opp-1", "acme", "v1", 0.4, now)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "audit", logEntry["component"])
	assert.Equal(t, "pred-1", logEntry["prediction_id"])
	assert.Equal(t, float64(now.Unix()), logEntry["timestamp"])
}

func TestAuditLoggerModelActivated(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogModelActivated("art-1", "v2", "v1", []string{"gradient_boosting"}, time.Now())

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "v2", logEntry["model_version"])
	assert.Equal(t, "v1", logEntry["previous_version"])
}

func TestAuditLoggerTrainingAborted(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogTrainingAborted("insufficient data", 5, "v1")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "warning", logEntry["level"])
	assert.Equal(t, "v1", logEntry["active_version"])
}
