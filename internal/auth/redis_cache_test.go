package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisTokenCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisTokenCache(client, time.Minute), mr
}

func TestRedisTokenCache_SetGet(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	miss, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, miss)

	require.NoError(t, cache.Set(ctx, 1, CachedToken{UserID: 7, Hash: "abc"}))
	got, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, &CachedToken{UserID: 7, Hash: "abc"}, got)

	members, err := mr.Members("auth_user_tokens:7")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, members)

	mr.FastForward(2 * time.Minute)
	expired, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, expired)
}

func TestRedisTokenCache_ForgetUser(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 1, CachedToken{UserID: 7, Hash: "a"}))
	require.NoError(t, cache.Set(ctx, 2, CachedToken{UserID: 7, Hash: "b"}))
	require.NoError(t, cache.Set(ctx, 3, CachedToken{UserID: 8, Hash: "c"}))

	require.NoError(t, cache.ForgetUser(ctx, 7))

	assert.False(t, mr.Exists("auth_token:1"))
	assert.False(t, mr.Exists("auth_token:2"))
	assert.True(t, mr.Exists("auth_token:3"))
	assert.False(t, mr.Exists("auth_user_tokens:7"))

	// No cached tokens is fine too.
	assert.NoError(t, cache.ForgetUser(ctx, 99))
}

func TestRedisTokenCache_CorruptEntry(t *testing.T) {
	cache, mr := newTestCache(t)
	require.NoError(t, mr.Set("auth_token:4", "{not json"))

	_, err := cache.Get(context.Background(), 4)
	assert.Error(t, err)
}

func TestRedisTokenCache_NoClient(t *testing.T) {
	cache := &RedisTokenCache{}
	_, err := cache.Get(context.Background(), 1)
	assert.Error(t, err)
}
