package broker

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"papertrade/internal/errors"
	"papertrade/internal/models"
)

// RedisConfig configures the Redis quote reader.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string // hash key is KeyPrefix + SYMBOL, e.g. "quote:AAPL"
	Field     string // hash field holding the last traded price
}

type hashGetter interface {
	HGet(ctx context.Context, key, field string) *goredis.StringCmd
}

// RedisQuotes reads last traded prices published by a market data feed into
// Redis hashes.
type RedisQuotes struct {
	client    hashGetter
	pinger    func(ctx context.Context) error
	closer    func() error
	keyPrefix string
	field     string
}

// NewRedisQuotes connects to Redis and pings the server.
func NewRedisQuotes(cfg RedisConfig) (*RedisQuotes, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	q := newRedisQuotes(client, cfg)
	q.pinger = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	q.closer = client.Close
	return q, nil
}

func newRedisQuotes(client hashGetter, cfg RedisConfig) *RedisQuotes {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "quote:"
	}
	field := cfg.Field
	if field == "" {
		field = "ltp"
	}
	return &RedisQuotes{client: client, keyPrefix: prefix, field: field}
}

// Price implements PriceSource.
func (r *RedisQuotes) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = models.NormalizeSymbol(symbol)
	key := r.keyPrefix + symbol

	raw, err := r.client.HGet(ctx, key, r.field).Result()
	if err == goredis.Nil {
		return decimal.Zero, errors.Wrapf(errors.ErrPriceUnavailable, "no quote for %s in redis", symbol)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("redis hget %s: %w", key, err)
	}

	price, err := decimal.NewFromString(raw)
	if err != nil || !price.IsPositive() {
		return decimal.Zero, errors.Wrapf(errors.ErrPriceUnavailable, "bad quote %q for %s", raw, symbol)
	}
	return price, nil
}

// Ping checks the connection to Redis.
func (r *RedisQuotes) Ping(ctx context.Context) error {
	if r.pinger == nil {
		return nil
	}
	return r.pinger(ctx)
}

// Close releases the Redis connection.
func (r *RedisQuotes) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}
