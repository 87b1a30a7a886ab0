package datasource

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/win-probability/internal/config"
	"github.com/yourusername/win-probability/internal/models"
)

const marketPayload = `{
	"refreshed_at": "2024-06-01T00:00:00Z",
	"agencies": [
		{"name": "NASA", "avg_competitors": 6.5, "win_rate_variance": 0.04, "contracts_per_month": 12},
		{"name": "  ", "avg_competitors": 3}
	],
	"value_buckets": [
		{"bucket": "Medium", "avg_competitors": 5, "small_business_rate": 1.4}
	],
	"keyword_competition": {"Cloud": 0.8, "radar": -0.2},
	"seasonal": {"9": 1.3, "13": 2.0, "x": 1.1, "2": 0}
}`

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func fastClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:           2 * time.Second,
		MaxRetries:        2,
		RetryWaitMin:      time.Millisecond,
		RetryWaitMax:      5 * time.Millisecond,
		RateLimit:         1000,
		CircuitBreakerMax: 2,
		CircuitCooldown:   time.Hour,
	}
}

// TestHTTPMarketDataSourceSnapshot tests fetching and normalizing market statistics
func TestHTTPMarketDataSourceSnapshot(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/market-statistics", r.URL.Path)
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(marketPayload))
	}))
	defer server.Close()

	client := NewRateLimitedHTTPClient(fastClientConfig(), quietLogger())
	src := NewHTTPMarketDataSource(client, server.URL+"/v1/", "secret", quietLogger())

	snap, err := src.GetSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", auth)

	require.Len(t, snap.Agencies, 1)
	stats, ok := snap.Agency("nasa")
	require.True(t, ok)
	assert.Equal(t, 6.5, stats.AvgCompetitors)

	bucket, ok := snap.Bucket("medium")
	require.True(t, ok)
	assert.Equal(t, 1.0, bucket.SmallBusinessRate)

	assert.Equal(t, 0.8, snap.KeywordScores["cloud"])
	assert.Equal(t, 0.0, snap.KeywordScores["radar"])

	assert.Equal(t, map[int]float64{9: 1.3}, snap.SeasonalByMonth)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), snap.RefreshedAt.UTC())
}

// TestHTTPMarketDataSourceStatusCodes tests error classification by status
func TestHTTPMarketDataSourceStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
	}{
		{"Unauthorized", http.StatusUnauthorized, ErrCodeAuthenticationFailed},
		{"Not found", http.StatusNotFound, ErrCodeNotFound},
		{"Bad request", http.StatusBadRequest, ErrCodeServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			src := NewHTTPMarketDataSource(NewRateLimitedHTTPClient(fastClientConfig(), quietLogger()), server.URL, "", quietLogger())
			_, err := src.GetSnapshot(context.Background())
			require.Error(t, err)
			assert.True(t, HasCode(err, tt.code), "got %v", err)
		})
	}
}

// TestHTTPMarketDataSourceNotFoundUnwraps tests that a missing feed maps to models.ErrNotFound
func TestHTTPMarketDataSourceNotFoundUnwraps(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	src := NewHTTPMarketDataSource(NewRateLimitedHTTPClient(fastClientConfig(), quietLogger()), server.URL, "", quietLogger())
	_, err := src.GetSnapshot(context.Background())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

// TestHTTPMarketDataSourceInvalidJSON tests handling of malformed payloads
func TestHTTPMarketDataSourceInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer server.Close()

	src := NewHTTPMarketDataSource(NewRateLimitedHTTPClient(fastClientConfig(), quietLogger()), server.URL, "", quietLogger())
	_, err := src.GetSnapshot(context.Background())
	assert.True(t, HasCode(err, ErrCodeInvalidData), "got %v", err)
}

// TestRateLimitedHTTPClientRetries tests that transient server errors are retried
func TestRateLimitedHTTPClientRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewRateLimitedHTTPClient(fastClientConfig(), quietLogger())
	resp, err := client.Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.False(t, client.IsOpen())
}

// TestRateLimitedHTTPClientCircuitBreaker tests that repeated failures open the breaker
func TestRateLimitedHTTPClientCircuitBreaker(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := fastClientConfig()
	cfg.MaxRetries = 0
	client := NewRateLimitedHTTPClient(cfg, quietLogger())

	for i := 0; i < 2; i++ {
		resp, err := client.Get(context.Background(), server.URL, nil)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.True(t, client.IsOpen())

	_, err := client.Get(context.Background(), server.URL, nil)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

// TestRateLimitedHTTPClientHalfOpen tests that the breaker lets a probe through after the cooldown
func TestRateLimitedHTTPClientHalfOpen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewRateLimitedHTTPClient(fastClientConfig(), quietLogger())
	now := time.Now()
	client.now = func() time.Time { return now }
	client.recordFailure(assert.AnError)
	client.recordFailure(assert.AnError)
	require.True(t, client.IsOpen())

	now = now.Add(2 * time.Hour)
	resp, err := client.Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.False(t, client.IsOpen())
}

// TestNewMarketDataSource tests source selection from configuration
func TestNewMarketDataSource(t *testing.T) {
	cfg := &config.Config{MarketData: config.MarketDataConfig{
		Source: config.MarketSourceHTTP, URL: "https://feed.example.com",
		TimeoutSeconds: 5, RetryAttempts: 1, RequestsPerSecond: 2,
	}}

	src, err := NewMarketDataSource(cfg, nil, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &HTTPMarketDataSource{}, src)

	cfg.MarketData.Source = config.MarketSourcePostgres
	_, err = NewMarketDataSource(cfg, nil, quietLogger())
	assert.Error(t, err)

	cfg.MarketData.Source = "ftp"
	_, err = NewMarketDataSource(cfg, nil, quietLogger())
	assert.Error(t, err)
}
