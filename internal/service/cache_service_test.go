package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKeyIsStable(t *testing.T) {
	a := Key("equipment:list", map[string]int{"page": 1})
	b := Key("equipment:list", map[string]int{"page": 1})
	c := Key("equipment:list", map[string]int{"page": 2})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Regexp(t, `^equipment:list:[0-9a-f]{24}$`, a)
}

func TestCachedLoadsOnce(t *testing.T) {
	repo := newMockCacheRepo()
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, time.Minute, zap.NewNop(), true)
	calls := 0
	load := func() ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Cached(context.Background(), cache, "k:1", load)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, got)
	}
	assert.Equal(t, 1, calls)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(2), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
}

func TestCachedDisabledAlwaysLoads(t *testing.T) {
	cache := NewCacheService(newMockCacheRepo(), nil, 0, nil, false)
	calls := 0
	for i := 0; i < 2; i++ {
		_, err := Cached(context.Background(), cache, "k", func() (int, error) { calls++; return 1, nil })
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)

	var nilCache *CacheService
	_, err := Cached(context.Background(), nilCache, "k", func() (int, error) { return 0, errors.New("boom") })
	assert.EqualError(t, err, "boom")
}
