package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/olyamironova/trade-execution/internal/domain"
	"github.com/olyamironova/trade-execution/internal/port"
	"github.com/redis/go-redis/v9"
)

var _ port.Publisher = (*RedisPublisher)(nil)

// RedisPublisher announces trades on "<channel>.<market>" and keeps the
// latest trade of each market under a key that expires after ttl.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	ttl     time.Duration
}

func NewRedisPublisher(addr string, password string, db int, channel string, ttl time.Duration) *RedisPublisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		MaxRetries:   1,
	})
	return NewRedisPublisherWithClient(rdb, channel, ttl)
}

func NewRedisPublisherWithClient(client *redis.Client, channel string, ttl time.Duration) *RedisPublisher {
	if channel == "" {
		channel = "trades"
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		ttl:     ttl,
	}
}

func (p *RedisPublisher) Channel(market string) string { return p.channel + "." + market }

func latestKey(market string) string { return "trade:latest:" + market }

func (p *RedisPublisher) PublishTrade(ctx context.Context, payload domain.TradePayload) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode trade %s: %w", payload.TradeID, err)
	}
	pipe := p.client.TxPipeline()
	pipe.Publish(ctx, p.Channel(payload.MarketID), b)
	pipe.Set(ctx, latestKey(payload.MarketID), b, p.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish trade %s: %w", payload.TradeID, err)
	}
	return nil
}

// LatestTrade returns the last announced trade of a market, or nil when
// none is cached.
func (p *RedisPublisher) LatestTrade(ctx context.Context, market string) (*domain.TradePayload, error) {
	b, err := p.client.Get(ctx, latestKey(market)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var payload domain.TradePayload
	if err := json.Unmarshal(b, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
