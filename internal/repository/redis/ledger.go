package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "identity:consumed-token:"

// TokenLedger implements repository.TokenLedger using Redis.
type TokenLedger struct {
	client *redis.Client
}

// NewTokenLedger creates a new Redis-backed token ledger.
func NewTokenLedger(client *redis.Client) *TokenLedger {
	return &TokenLedger{client: client}
}

// Consume records id with SET NX so concurrent callers race on a single key.
// The key expires with the token, after which the token is rejected anyway.
func (l *TokenLedger) Consume(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Second
	}

	ok, err := l.client.SetNX(ctx, keyPrefix+id, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx consumed token: %w", err)
	}

	return ok, nil
}
