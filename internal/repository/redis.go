package repository

import (
	"context"
	"errors"
	"fmt"

	"autobook/internal/config"
	"autobook/internal/models"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

// RedisIgnoreList keeps the ignore list in a redis set.
type RedisIgnoreList struct {
	ignoreSet
	client *redis.Client
	key    string
}

func NewRedisIgnoreList(client *redis.Client, key string) *RedisIgnoreList {
	if key == "" {
		key = models.RedisIgnoreKey
	}
	return &RedisIgnoreList{ignoreSet: newIgnoreSet(), client: client, key: key}
}

func (r *RedisIgnoreList) Load(ctx context.Context) (map[models.ListingID]struct{}, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	members, err := r.client.SMembers(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load ignore list from redis: %w", err)
	}

	ids := make([]models.ListingID, 0, len(members))
	for _, m := range members {
		ids = append(ids, models.ListingID(m))
	}
	return r.replace(ids), nil
}

func (r *RedisIgnoreList) Add(ctx context.Context, id models.ListingID) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := validateListingID(id); err != nil {
		return err
	}
	if err := r.client.SAdd(ctx, r.key, string(id)).Err(); err != nil {
		return fmt.Errorf("failed to add to ignore list in redis: %w", err)
	}
	r.add(id)
	return nil
}

func (r *RedisIgnoreList) List(ctx context.Context) ([]models.ListingID, error) {
	if _, err := r.Load(ctx); err != nil {
		return nil, err
	}
	return r.sorted(), nil
}

// RedisFlagStore keeps the crash flag in a single redis key without TTL.
type RedisFlagStore struct {
	client *redis.Client
	key    string
}

func NewRedisFlagStore(client *redis.Client, key string) *RedisFlagStore {
	if key == "" {
		key = models.RedisCrashKey
	}
	return &RedisFlagStore{client: client, key: key}
}

func (r *RedisFlagStore) Exists(ctx context.Context) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	n, err := r.client.Exists(ctx, r.key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check crash flag in redis: %w", err)
	}
	return n > 0, nil
}

func (r *RedisFlagStore) Set(ctx context.Context, reason string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.SetNX(ctx, r.key, reason, 0).Err(); err != nil {
		return fmt.Errorf("failed to set crash flag in redis: %w", err)
	}
	return nil
}

func (r *RedisFlagStore) Reason(ctx context.Context) (string, error) {
	if r.client == nil {
		return "", fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read crash flag from redis: %w", err)
	}
	return val, nil
}

func (r *RedisFlagStore) Clear(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to delete crash flag from redis: %w", err)
	}
	return nil
}

// Ping checks the redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
