package ml

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/win-probability/internal/models"
)

// TestCacheKeyString tests cache key string representation
func TestCacheKeyString(t *testing.T) {
	key := CacheKey{OpportunityID: "opp-1", BidderID: "acme", ModelVersion: "v1"}

	keyStr := key.String()
	assert.Contains(t, keyStr, "opp-1")
	assert.Contains(t, keyStr, "acme")
	assert.Contains(t, keyStr, "v1")

	// Separators inside IDs must not produce colliding keys
	a := CacheKey{OpportunityID: "a:b", BidderID: "c", ModelVersion: "v"}
	b := CacheKey{OpportunityID: "a", BidderID: "b:c", ModelVersion: "v"}
	assert.NotEqual(t, a.String(), b.String())
}

// TestPredictionCacheGetSet tests cache Get and Set operations
func TestPredictionCacheGetSet(t *testing.T) {
	cache := NewPredictionCache(time.Hour, 100)
	defer cache.Clear()

	ctx := context.Background()
	key := CacheKey{OpportunityID: "opp-1", BidderID: "acme", ModelVersion: "v1"}

	assert.Nil(t, cache.Get(ctx, key))

	prediction := &models.WinPrediction{OpportunityID: "opp-1", BidderID: "acme", WinProbability: 0.75, ConfidenceScore: 0.85}
	cache.Set(ctx, key, prediction)

	retrieved := cache.Get(ctx, key)
	require.NotNil(t, retrieved)
	assert.Equal(t, prediction.WinProbability, retrieved.WinProbability)
	assert.Equal(t, prediction.ConfidenceScore, retrieved.ConfidenceScore)

	// A different model version is a different entry
	assert.Nil(t, cache.Get(ctx, CacheKey{OpportunityID: "opp-1", BidderID: "acme", ModelVersion: "v2"}))
}

// TestPredictionCacheExpiration tests cache TTL expiration
func TestPredictionCacheExpiration(t *testing.T) {
	cache := NewPredictionCache(100*time.Millisecond, 100)
	defer cache.Clear()

	ctx := context.Background()
	key := CacheKey{OpportunityID: "opp-1", BidderID: "acme", ModelVersion: "v1"}
	cache.Set(ctx, key, &models.WinPrediction{WinProbability: 0.75})

	require.NotNil(t, cache.Get(ctx, key))

	time.Sleep(150 * time.Millisecond)

	assert.Nil(t, cache.Get(ctx, key))
}

// TestPredictionCacheInvalidateVersion tests removal of a superseded model's entries
func TestPredictionCacheInvalidateVersion(t *testing.T) {
	cache := NewPredictionCache(time.Hour, 100)
	defer cache.Clear()

	ctx := context.Background()
	key1 := CacheKey{OpportunityID: "opp-1", BidderID: "acme", ModelVersion: "v1"}
	key2 := CacheKey{OpportunityID: "opp-2", BidderID: "acme", ModelVersion: "v1"}
	key3 := CacheKey{OpportunityID: "opp-1", BidderID: "acme", ModelVersion: "v2"}

	prediction := &models.WinPrediction{WinProbability: 0.5}
	cache.Set(ctx, key1, prediction)
	cache.Set(ctx, key2, prediction)
	cache.Set(ctx, key3, prediction)

	assert.Equal(t, 2, cache.InvalidateVersion(ctx, "v1"))

	assert.Nil(t, cache.Get(ctx, key1))
	assert.Nil(t, cache.Get(ctx, key2))
	assert.NotNil(t, cache.Get(ctx, key3))
}

// TestPredictionCacheStats tests cache statistics tracking
func TestPredictionCacheStats(t *testing.T) {
	cache := NewPredictionCache(time.Hour, 100)
	defer cache.Clear()

	ctx := context.Background()
	key := CacheKey{OpportunityID: "opp-1", BidderID: "acme", ModelVersion: "v1"}

	hits, misses, ratio := cache.Stats()
	assert.Equal(t, uint64(0), hits)
	assert.Equal(t, uint64(0), misses)
	assert.Equal(t, 0.0, ratio)

	_ = cache.Get(ctx, key)
	cache.Set(ctx, key, &models.WinPrediction{WinProbability: 0.75})
	_ = cache.Get(ctx, key)

	hits, misses, ratio = cache.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, 0.5, ratio)
}

// TestPredictionCacheMaxSize tests cache size limit enforcement
func TestPredictionCacheMaxSize(t *testing.T) {
	maxSize := 5
	cache := NewPredictionCache(time.Hour, maxSize)
	defer cache.Clear()

	ctx := context.Background()
	for i := 0; i < maxSize+5; i++ {
		key := CacheKey{OpportunityID: fmt.Sprintf("opp-%d", i), BidderID: "acme", ModelVersion: "v1"}
		cache.Set(ctx, key, &models.WinPrediction{WinProbability: 0.75})
	}

	assert.Equal(t, maxSize, cache.ItemCount())
}
