package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistry(t *testing.T) {
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
	assert.Same(t, registry, InitRegistry())
}

func TestRecordRequest(t *testing.T) {
	InitRegistry()

	before := testutil.ToFloat64(ServiceRequestsTotal.WithLabelValues("predict", "error"))
	RecordRequest("predict", errors.New("boom"), 10*time.Millisecond)
	RecordRequest("predict", nil, 5*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(ServiceRequestsTotal.WithLabelValues("predict", "error")))
}

func TestUpdateModelState(t *testing.T) {
	InitRegistry()

	tests := []struct {
		name     string
		loaded   bool
		expected float64
	}{
		{name: "loaded", loaded: true, expected: 1},
		{name: "not loaded", loaded: false, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			UpdateModelState(tt.loaded, time.Unix(1700000000, 0))
			assert.Equal(t, tt.expected, testutil.ToFloat64(ModelLoaded))
		})
	}
	assert.Equal(t, float64(1700000000), testutil.ToFloat64(ModelTrainedTimestamp))
}

func TestRecordMarketRefresh(t *testing.T) {
	InitRegistry()

	refreshed := time.Unix(1717200000, 0)
	RecordMarketRefresh(nil, refreshed)
	assert.Equal(t, float64(refreshed.Unix()), testutil.ToFloat64(MarketSnapshotTimestamp))

	before := testutil.ToFloat64(MarketRefreshTotal.WithLabelValues("error"))
	RecordMarketRefresh(errors.New("feed down"), time.Time{})
	assert.Equal(t, before+1, testutil.ToFloat64(MarketRefreshTotal.WithLabelValues("error")))
	assert.Equal(t, float64(refreshed.Unix()), testutil.ToFloat64(MarketSnapshotTimestamp))
}

func TestRecordTrainingRun(t *testing.T) {
	InitRegistry()

	RecordTrainingRun("success", 420, time.Second)
	assert.Equal(t, 420.0, testutil.ToFloat64(TrainingRows))

	RecordTrainingRun("aborted", 3, time.Millisecond)
	assert.Equal(t, 420.0, testutil.ToFloat64(TrainingRows))
}

func TestMiscRecorders(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordDegradedSignal("market_data")
		RecordPrediction(0.42, 0.8)
		RecordPredictionPersisted(nil)
		RecordPredictionPersisted(errors.New("db down"))
		RecordSchedulerJob("retrain", nil)
	})
}

func TestMetricsHandler(t *testing.T) {
	InitRegistry()
	RecordDegradedSignal("historical_outcomes")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "win_probability_degraded_signals_total")
}

func BenchmarkRecordRequest(b *testing.B) {
	InitRegistry()

	for i := 0; i < b.N; i++ {
		RecordRequest("predict", nil, time.Millisecond)
	}
}
