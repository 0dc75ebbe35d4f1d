package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mini-ai-studio/studio-api/internal/core/domain"
)

func TestRecentKeys(t *testing.T) {
	assert.Equal(t, "recent:65f0c0ffee", recentKey("65f0c0ffee"))
	assert.Equal(t, "recent:ver:65f0c0ffee", versionKey("65f0c0ffee"))
}

func TestDecodeRecent_EmptyList(t *testing.T) {
	raw, err := encodeRecent(3, []domain.Generation{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":3,"items":[]}`, string(raw))

	version, items, err := decodeRecent(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestDecodeRecent_Corrupt(t *testing.T) {
	_, _, err := decodeRecent([]byte("{not json"))
	assert.Error(t, err)
}

func TestNewRecentCache_VersionOutlivesList(t *testing.T) {
	c := NewRecentCache(nil, 0)
	assert.Equal(t, DefaultRecentTTL, c.ttl)
	assert.Equal(t, minVersionTTL, c.versionTTL)

	long := NewRecentCache(nil, 48*time.Hour)
	assert.Equal(t, 96*time.Hour, long.versionTTL)
}

func connectTestRedis(t *testing.T) *RecentCache {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client, err := Connect(context.Background(), Config{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewRecentCache(client, time.Minute)
}

func TestRecentCache_Redis(t *testing.T) {
	cache := connectTestRedis(t)
	ctx := context.Background()
	user := fmt.Sprintf("test-%d", time.Now().UnixNano())
	t.Cleanup(func() { _ = cache.client.Del(ctx, recentKey(user), versionKey(user)).Err() })

	_, version, ok, err := cache.Get(ctx, user)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(0), version)

	at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	items := []domain.Generation{
		{ID: "b", UserID: user, Prompt: "second", ImagePath: "/uploads/generated/b.png", CreatedAt: at.Add(time.Minute)},
		{ID: "a", UserID: user, Prompt: "first", ImagePath: "/uploads/generated/a.png", CreatedAt: at},
	}
	require.NoError(t, cache.Set(ctx, user, version, items))

	got, _, ok, err := cache.Get(ctx, user)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Prompt)
	assert.True(t, got[1].CreatedAt.Equal(at))

	ttl, err := cache.client.TTL(ctx, recentKey(user)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, cache.Invalidate(ctx, user))
	_, version, ok, err = cache.Get(ctx, user)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), version)
}

func TestRecentCache_Redis_SetUnderOldVersionIsMiss(t *testing.T) {
	cache := connectTestRedis(t)
	ctx := context.Background()
	user := fmt.Sprintf("test-%d", time.Now().UnixNano())
	t.Cleanup(func() { _ = cache.client.Del(ctx, recentKey(user), versionKey(user)).Err() })

	_, before, _, err := cache.Get(ctx, user)
	require.NoError(t, err)

	// A new record lands between the read and the write.
	require.NoError(t, cache.Invalidate(ctx, user))
	require.NoError(t, cache.Set(ctx, user, before, []domain.Generation{}))

	_, current, ok, err := cache.Get(ctx, user)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, before+1, current)
}
