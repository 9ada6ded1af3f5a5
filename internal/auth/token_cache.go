package auth

import (
	"context"
)

// CachedToken is what the cache keeps for a token row. Hash is the stored
// sha256 of the secret, never the secret itself.
type CachedToken struct {
	UserID int64  `json:"user_id"`
	Hash   string `json:"hash"`
}

// TokenCache fronts the token table. Get returns nil, nil on a miss.
type TokenCache interface {
	Get(ctx context.Context, tokenID int64) (*CachedToken, error)
	Set(ctx context.Context, tokenID int64, token CachedToken) error
	ForgetUser(ctx context.Context, userID int64) error
}

type noopCache struct{}

// NoopCache is used when Redis is not configured.
func NoopCache() TokenCache { return noopCache{} }

func (noopCache) Get(context.Context, int64) (*CachedToken, error) { return nil, nil }
func (noopCache) Set(context.Context, int64, CachedToken) error    { return nil }
func (noopCache) ForgetUser(context.Context, int64) error          { return nil }
