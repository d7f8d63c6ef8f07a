package store

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/logger"
	"github.com/pkg/errors"

	"github.com/Farmer96/LuckGen/internal/config"
	"github.com/Farmer96/LuckGen/internal/models"
)

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "connect redis")
	}
	logger.Infof("Connected to Redis at %s", client.Options().Addr)
	return client, nil
}

// Redis keeps the JSON document under a single key.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis creates a store that uses key on client.
func NewRedis(client *redis.Client, key string) *Redis {
	return &Redis{client: client, key: key}
}

// Load fetches and decodes the document.
func (r *Redis) Load(ctx context.Context) (*models.LotteryConfig, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "redis get %s", r.key)
	}
	return decode(data)
}

// Save overwrites the document without expiry.
func (r *Redis) Save(ctx context.Context, cfg *models.LotteryConfig) error {
	data, err := encode(cfg)
	if err != nil {
		return err
	}
	return errors.Wrapf(r.client.Set(ctx, r.key, string(data), 0).Err(), "redis set %s", r.key)
}

// Delete removes the key.
func (r *Redis) Delete(ctx context.Context) error {
	return errors.Wrapf(r.client.Del(ctx, r.key).Err(), "redis del %s", r.key)
}
