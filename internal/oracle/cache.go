package oracle

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"vledger/internal/domain"
)

// RedisRateCache shares fetched rates across instances.
type RedisRateCache struct {
	client *redis.Client
}

func NewRedisRateCache(client *redis.Client) RateCache {
	return &RedisRateCache{client: client}
}

func (c *RedisRateCache) Get(ctx context.Context, key string) (*domain.ExchangeRate, error) {
	data, err := c.client.Get(ctx, "rate:"+key).Result()
	if err != nil {
		return nil, err
	}

	var rate domain.ExchangeRate
	if err := json.Unmarshal([]byte(data), &rate); err != nil {
		return nil, err
	}
	return &rate, nil
}

func (c *RedisRateCache) Set(ctx context.Context, key string, rate *domain.ExchangeRate, ttl time.Duration) error {
	data, err := json.Marshal(rate)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "rate:"+key, data, ttl).Err()
}
