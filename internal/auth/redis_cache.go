package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	tokenKeyPrefix      = "auth_token:"
	userTokensKeyPrefix = "auth_user_tokens:"
)

// RedisTokenCache implements token caching using Redis
type RedisTokenCache struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewRedisTokenCache creates a new Redis token cache
func NewRedisTokenCache(client *redis.Client, ttl time.Duration) *RedisTokenCache {
	return &RedisTokenCache{
		Client: client,
		TTL:    ttl,
	}
}

func tokenKey(id int64) string {
	return tokenKeyPrefix + strconv.FormatInt(id, 10)
}

func userTokensKey(userID int64) string {
	return userTokensKeyPrefix + strconv.FormatInt(userID, 10)
}

// Get retrieves a token from the cache
func (c *RedisTokenCache) Get(ctx context.Context, tokenID int64) (*CachedToken, error) {
	if c.Client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}

	raw, err := c.Client.Get(ctx, tokenKey(tokenID)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get token from Redis: %w", err)
	}

	var token CachedToken
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token cache: %w", err)
	}
	return &token, nil
}

// Set stores a token and indexes it under its user so logout can drop it.
func (c *RedisTokenCache) Set(ctx context.Context, tokenID int64, token CachedToken) error {
	if c.Client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token cache: %w", err)
	}

	userKey := userTokensKey(token.UserID)
	_, err = c.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tokenKey(tokenID), raw, c.TTL)
		pipe.SAdd(ctx, userKey, tokenID)
		pipe.Expire(ctx, userKey, c.TTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store token in Redis: %w", err)
	}
	return nil
}

// ForgetUser removes every cached token of userID.
func (c *RedisTokenCache) ForgetUser(ctx context.Context, userID int64) error {
	if c.Client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	userKey := userTokensKey(userID)
	ids, err := c.Client.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list cached tokens: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, tokenKeyPrefix+id)
	}
	keys = append(keys, userKey)
	if err := c.Client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to drop cached tokens: %w", err)
	}
	return nil
}
