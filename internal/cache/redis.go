package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Domenick1991/barberbooking/config"
	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache persists the session token and mirrors "my bookings" snapshots.
type RedisCache struct {
	client      *redis.Client
	tokenKey    string
	bookingsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, tokenKey string, bookingsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:      redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		tokenKey:    tokenKey,
		bookingsTTL: bookingsTTL,
	}
}

func (c *RedisCache) LoadToken(ctx context.Context) (string, error) {
	token, err := c.client.Get(ctx, sessionKey(c.tokenKey)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return token, nil
}

// SaveToken overwrites the persisted token. The key carries no TTL: expiry
// is checked from the token's own claims when it is next installed.
func (c *RedisCache) SaveToken(ctx context.Context, token string) error {
	return c.client.Set(ctx, sessionKey(c.tokenKey), token, 0).Err()
}

func (c *RedisCache) DeleteToken(ctx context.Context) error {
	return c.client.Del(ctx, sessionKey(c.tokenKey)).Err()
}

func (c *RedisCache) GetBookings(ctx context.Context, subject string) ([]domain.Booking, error) {
	data, err := c.client.Get(ctx, bookingsKey(subject)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var bookings []domain.Booking
	if err := json.Unmarshal(data, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (c *RedisCache) SetBookings(ctx context.Context, subject string, bookings []domain.Booking) error {
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	payload, err := json.Marshal(bookings)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, bookingsKey(subject), payload, c.bookingsTTL).Err()
}

func (c *RedisCache) InvalidateBookings(ctx context.Context, subject string) error {
	return c.client.Del(ctx, bookingsKey(subject)).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func sessionKey(name string) string {
	return "session:" + name
}

func bookingsKey(subject string) string {
	return "cache:bookings:" + subject
}
