package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/win-probability/internal/models"
)

const marketFeedSource = "market_feed"

// marketStatsResponse is the wire format of the market statistics endpoint
type marketStatsResponse struct {
	RefreshedAt time.Time `json:"refreshed_at"`
	Agencies    []struct {
		Name              string  `json:"name"`
		AvgCompetitors    float64 `json:"avg_competitors"`
		WinRateVariance   float64 `json:"win_rate_variance"`
		ContractsPerMonth float64 `json:"contracts_per_month"`
	} `json:"agencies"`
	ValueBuckets []struct {
		Bucket            string  `json:"bucket"`
		AvgCompetitors    float64 `json:"avg_competitors"`
		SmallBusinessRate float64 `json:"small_business_rate"`
	} `json:"value_buckets"`
	KeywordCompetition map[string]float64 `json:"keyword_competition"`
	Seasonal           map[string]float64 `json:"seasonal"`
}

// HTTPMarketDataSource fetches market statistics from a JSON HTTP feed
type HTTPMarketDataSource struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	apiKey     string
	logger     *logrus.Entry
}

// NewHTTPMarketDataSource creates a market statistics client
func NewHTTPMarketDataSource(httpClient *RateLimitedHTTPClient, baseURL, apiKey string, log *logrus.Logger) *HTTPMarketDataSource {
	return &HTTPMarketDataSource{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     log.WithField("component", marketFeedSource),
	}
}

// GetSnapshot fetches and normalizes the current market statistics
func (s *HTTPMarketDataSource) GetSnapshot(ctx context.Context) (*models.MarketData, error) {
	headers := map[string]string{"Accept": "application/json"}
	if s.apiKey != "" {
		headers["Authorization"] = "Bearer " + s.apiKey
	}

	resp, err := s.httpClient.Get(ctx, s.baseURL+"/market-statistics", headers)
	if err != nil {
		return nil, NewDataSourceError(marketFeedSource, ErrCodeNetworkError, "failed to fetch market statistics", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, NewDataSourceError(marketFeedSource, ErrCodeAuthenticationFailed, "invalid API key", nil)
	case http.StatusNotFound:
		return nil, NewDataSourceError(marketFeedSource, ErrCodeNotFound, "no market statistics published", models.ErrNotFound)
	case http.StatusTooManyRequests:
		return nil, NewDataSourceError(marketFeedSource, ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, NewDataSourceError(marketFeedSource, ErrCodeServerError,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var payload marketStatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, NewDataSourceError(marketFeedSource, ErrCodeInvalidData, "failed to parse response", err)
	}

	snapshot := s.normalize(&payload)
	s.logger.WithFields(logrus.Fields{
		"agencies": len(snapshot.Agencies),
		"buckets":  len(snapshot.Buckets),
		"keywords": len(snapshot.KeywordScores),
	}).Debug("Fetched market statistics")
	return snapshot, nil
}

// normalize converts the wire payload, dropping entries that cannot be used
func (s *HTTPMarketDataSource) normalize(p *marketStatsResponse) *models.MarketData {
	out := &models.MarketData{
		Agencies:        make(map[string]models.AgencyStats, len(p.Agencies)),
		Buckets:         make(map[string]models.BucketStats, len(p.ValueBuckets)),
		KeywordScores:   make(map[string]float64, len(p.KeywordCompetition)),
		SeasonalByMonth: make(map[int]float64, len(p.Seasonal)),
		RefreshedAt:     p.RefreshedAt,
	}
	if out.RefreshedAt.IsZero() {
		out.RefreshedAt = time.Now().UTC()
	}

	for _, a := range p.Agencies {
		name := strings.TrimSpace(a.Name)
		if name == "" || !finite(a.AvgCompetitors, a.WinRateVariance, a.ContractsPerMonth) {
			s.logger.WithField("agency", a.Name).Warn("Dropping invalid agency statistics")
			continue
		}
		out.Agencies[name] = models.AgencyStats{
			AvgCompetitors:    math.Max(0, a.AvgCompetitors),
			WinRateVariance:   math.Max(0, a.WinRateVariance),
			ContractsPerMonth: math.Max(0, a.ContractsPerMonth),
		}
	}

	for _, b := range p.ValueBuckets {
		name := strings.ToLower(strings.TrimSpace(b.Bucket))
		if name == "" || !finite(b.AvgCompetitors, b.SmallBusinessRate) {
			continue
		}
		out.Buckets[name] = models.BucketStats{
			AvgCompetitors:    math.Max(0, b.AvgCompetitors),
			SmallBusinessRate: clamp01(b.SmallBusinessRate),
		}
	}

	for kw, score := range p.KeywordCompetition {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || !finite(score) {
			continue
		}
		out.KeywordScores[kw] = clamp01(score)
	}

	for key, mult := range p.Seasonal {
		month, err := strconv.Atoi(key)
		if err != nil || month < 1 || month > 12 || !finite(mult) || mult <= 0 {
			continue
		}
		out.SeasonalByMonth[month] = mult
	}

	return out
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
