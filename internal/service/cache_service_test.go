package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/gov-portal-api/pkg/errors"
)

type memoryCacheRepo struct {
	items  map[string][]byte
	getErr error
	ttls   map[string]time.Duration
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	for key := range m.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.items, key)
		}
	}
	return nil
}

func TestCachedLoadMissThenHit(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)
	loads := 0
	load := func(context.Context) ([]string, error) {
		loads++
		return []string{"a", "b"}, nil
	}

	value, hit, err := CachedLoad(context.Background(), cache, "k", 0, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"a", "b"}, value)
	assert.Equal(t, time.Minute, repo.ttls["k"])

	value, hit, err = CachedLoad(context.Background(), cache, "k", 0, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"a", "b"}, value)
	assert.Equal(t, 1, loads)
}

func TestCachedLoadBackendErrorFallsThrough(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.getErr = errors.New("redis: connection refused")
	cache := NewCacheService(repo, nil, time.Minute, nil, true)

	value, hit, err := CachedLoad(context.Background(), cache, "k", 0, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 7, value)
}

func TestCachedLoadPropagatesLoadError(t *testing.T) {
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	boom := errors.New("boom")

	_, _, err := CachedLoad(context.Background(), cache, "k", 0, func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, false)

	cache.Set(context.Background(), "k", 1, 0)
	assert.Empty(t, repo.items)
	var out int
	assert.False(t, cache.Get(context.Background(), "k", &out))
	assert.NoError(t, cache.Invalidate(context.Background(), "k"))

	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
}

func TestCacheServiceInvalidate(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	cache.Set(context.Background(), "dash:console", 1, 0)
	cache.Set(context.Background(), "other", 2, 0)

	require.NoError(t, cache.Invalidate(context.Background(), "dash:*"))
	assert.NotContains(t, repo.items, "dash:console")
	assert.Contains(t, repo.items, "other")
}
