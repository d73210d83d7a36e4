package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RedisPriceCache is the shared tier: a Redis-backed cache visible across
// processes. Read failures degrade to cache misses and write failures are
// logged and dropped; correctness never depends on this tier.
type RedisPriceCache struct {
	client *redis.Client
	logger *zap.Logger
	prefix string
}

// RedisConfig holds connection settings for the shared cache tier.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisPriceCache connects to Redis and verifies the connection.
func NewRedisPriceCache(cfg *RedisConfig, logger *zap.Logger) (*RedisPriceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisPriceCache{
		client: client,
		logger: logger,
		prefix: "krill:",
	}, nil
}

func (c *RedisPriceCache) Get(ctx context.Context, symbol string, date time.Time) (decimal.Decimal, bool) {
	val, err := c.client.Get(ctx, c.prefix+Key(symbol, date)).Result()
	if err == redis.Nil {
		return decimal.Zero, false
	}
	if err != nil {
		c.logger.Debug("redis read failed, treating as miss", zap.String("symbol", symbol), zap.Error(err))
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false
	}
	return price, true
}

func (c *RedisPriceCache) Set(ctx context.Context, symbol string, date time.Time, price decimal.Decimal) {
	// NX keeps the first write: a closed trading day's price never changes.
	if err := c.client.SetNX(ctx, c.prefix+Key(symbol, date), price.String(), 0).Err(); err != nil {
		c.logger.Debug("redis write failed, dropping", zap.String("symbol", symbol), zap.Error(err))
	}
}

// Close releases the Redis connection.
func (c *RedisPriceCache) Close() error {
	return c.client.Close()
}

// Layered chains caches so reads hit the fastest tier first and hits are
// promoted back into the tiers in front of the one that answered.
type Layered struct {
	tiers []PriceCache
}

// NewLayered builds a layered cache from fastest to slowest tier.
func NewLayered(tiers ...PriceCache) *Layered {
	return &Layered{tiers: tiers}
}

func (l *Layered) Get(ctx context.Context, symbol string, date time.Time) (decimal.Decimal, bool) {
	for i, tier := range l.tiers {
		if price, ok := tier.Get(ctx, symbol, date); ok {
			for j := 0; j < i; j++ {
				l.tiers[j].Set(ctx, symbol, date, price)
			}
			return price, true
		}
	}
	return decimal.Zero, false
}

func (l *Layered) Set(ctx context.Context, symbol string, date time.Time, price decimal.Decimal) {
	for _, tier := range l.tiers {
		tier.Set(ctx, symbol, date, price)
	}
}
