package stac_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacq-io/stacq/pkg/stac"
)

func TestNewCacheFromConfig_Memory(t *testing.T) {
	t.Parallel()

	cache, err := stac.NewCacheFromConfig(&stac.CacheConfig{
		Type:   stac.CacheTypeMemory,
		Memory: &stac.MemoryCacheConfig{MaxSize: 5},
	})
	require.NoError(t, err)
	assert.IsType(t, &stac.MemoryCache{}, cache)
}

func TestNewCacheFromConfig_NilUsesDefaults(t *testing.T) {
	t.Parallel()

	cache, err := stac.NewCacheFromConfig(nil)
	require.NoError(t, err)
	assert.IsType(t, &stac.MemoryCache{}, cache)
}

func TestNewCacheFromConfig_None(t *testing.T) {
	t.Parallel()

	cache, err := stac.NewCacheFromConfig(&stac.CacheConfig{Type: stac.CacheTypeNone})
	require.NoError(t, err)
	assert.IsType(t, &stac.NoOpCache{}, cache)
}

func TestNewCacheFromConfig_NATSRequiresConfig(t *testing.T) {
	t.Parallel()

	_, err := stac.NewCacheFromConfig(&stac.CacheConfig{Type: stac.CacheTypeNATS})
	require.ErrorIs(t, err, stac.ErrNATSConfigRequired)
}

func TestNewCacheFromConfig_UnsupportedType(t *testing.T) {
	t.Parallel()

	_, err := stac.NewCacheFromConfig(&stac.CacheConfig{Type: "redis"})
	require.ErrorIs(t, err, stac.ErrUnsupportedCacheType)
	assert.Contains(t, err.Error(), "redis")
}

func TestNoOpCache(t *testing.T) {
	t.Parallel()

	cache := stac.NewNoOpCache()
	ctx := context.Background()

	entry := &stac.CacheEntry{Data: []byte("data"), ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, cache.Set(ctx, "key", entry))

	_, err := cache.Get(ctx, "key")
	require.ErrorIs(t, err, stac.ErrCacheDisabled)
	assert.False(t, cache.Has(ctx, "key"))

	require.NoError(t, cache.Delete(ctx, "key"))
	require.NoError(t, cache.Clear(ctx))
}

func TestCacheBuilder(t *testing.T) {
	t.Parallel()

	cache, err := stac.NewCacheBuilder().
		WithType(stac.CacheTypeMemory).
		WithMemoryConfig(100, "30s").
		WithOptions(&stac.CacheOptions{TTL: time.Minute, MaxSize: 100}).
		Build()
	require.NoError(t, err)
	assert.IsType(t, &stac.MemoryCache{}, cache)
}

func TestCacheBuilder_None(t *testing.T) {
	t.Parallel()

	cache, err := stac.NewCacheBuilder().WithType(stac.CacheTypeNone).Build()
	require.NoError(t, err)
	assert.IsType(t, &stac.NoOpCache{}, cache)
}

func TestCacheChain_BackfillsEarlierLevels(t *testing.T) {
	t.Parallel()

	l1 := stac.NewMemoryCache(10)
	l2 := stac.NewMemoryCache(10)
	chain := stac.NewCacheChain(l1, l2)
	ctx := context.Background()

	entry := &stac.CacheEntry{Data: []byte("data"), ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, l2.Set(ctx, "key", entry))

	got, err := chain.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, entry.Data, got.Data)

	// The hit in L2 populated L1.
	assert.True(t, l1.Has(ctx, "key"))
}

func TestCacheChain_MissEverywhere(t *testing.T) {
	t.Parallel()

	chain := stac.NewCacheChain(stac.NewMemoryCache(10), stac.NewMemoryCache(10))

	_, err := chain.Get(context.Background(), "absent")
	require.ErrorIs(t, err, stac.ErrKeyNotFoundInAnyCache)
}

func TestCacheChain_SetAndDeleteFanOut(t *testing.T) {
	t.Parallel()

	l1 := stac.NewMemoryCache(10)
	l2 := stac.NewMemoryCache(10)
	chain := stac.NewCacheChain(l1, l2)
	ctx := context.Background()

	entry := &stac.CacheEntry{Data: []byte("data"), ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, chain.Set(ctx, "key", entry))
	assert.True(t, l1.Has(ctx, "key"))
	assert.True(t, l2.Has(ctx, "key"))
	assert.True(t, chain.Has(ctx, "key"))

	require.NoError(t, chain.Delete(ctx, "key"))
	assert.False(t, l1.Has(ctx, "key"))
	assert.False(t, l2.Has(ctx, "key"))
	assert.False(t, chain.Has(ctx, "key"))
}
