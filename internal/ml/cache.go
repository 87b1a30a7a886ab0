package ml

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/win-probability/internal/models"
)

// CacheKey represents a unique key for caching predictions. The model version is
// part of the key, so a model swap never serves a stale prediction.
type CacheKey struct {
	OpportunityID string
	BidderID      string
	ModelVersion  string
}

// String returns string representation of cache key
func (k CacheKey) String() string {
	return fmt.Sprintf("%q:%q:%q", k.OpportunityID, k.BidderID, k.ModelVersion)
}

// PredictionCache provides in-memory caching for win predictions
type PredictionCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	hitCount  atomic.Uint64
	missCount atomic.Uint64
}

// NewPredictionCache creates a new prediction cache
func NewPredictionCache(ttl time.Duration, maxSize int) *PredictionCache {
	return &PredictionCache{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a cached prediction
func (pc *PredictionCache) Get(ctx context.Context, key CacheKey) *models.WinPrediction {
	if result, found := pc.cache.Get(key.String()); found {
		if pred, ok := result.(*models.WinPrediction); ok {
			pc.hitCount.Add(1)
			pc.updateMetrics()
			return pred
		}
	}

	pc.missCount.Add(1)
	pc.updateMetrics()
	return nil
}

// Set stores a prediction in cache. When the cache is full and nothing has
// expired the prediction is not cached.
func (pc *PredictionCache) Set(ctx context.Context, key CacheKey, prediction *models.WinPrediction) {
	if pc.maxSize > 0 && pc.cache.ItemCount() >= pc.maxSize {
		pc.cache.DeleteExpired()
		if pc.cache.ItemCount() >= pc.maxSize {
			return
		}
	}

	pc.cache.Set(key.String(), prediction, pc.ttl)
}

// InvalidateVersion removes every entry cached under a model version
func (pc *PredictionCache) InvalidateVersion(ctx context.Context, modelVersion string) int {
	suffix := fmt.Sprintf(":%q", modelVersion)
	removed := 0
	for k := range pc.cache.Items() {
		if strings.HasSuffix(k, suffix) {
			pc.cache.Delete(k)
			removed++
		}
	}
	return removed
}

// Clear flushes the entire cache
func (pc *PredictionCache) Clear() {
	pc.cache.Flush()
	pc.hitCount.Store(0)
	pc.missCount.Store(0)
}

// Stats returns cache statistics
func (pc *PredictionCache) Stats() (hits, misses uint64, ratio float64) {
	hits = pc.hitCount.Load()
	misses = pc.missCount.Load()
	total := hits + misses
	if total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// updateMetrics updates Prometheus metrics
func (pc *PredictionCache) updateMetrics() {
	_, _, ratio := pc.Stats()
	MLCacheHitRatio.Set(ratio)
}

// ItemCount returns the number of items in cache
func (pc *PredictionCache) ItemCount() int {
	return pc.cache.ItemCount()
}
