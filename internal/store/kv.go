package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// KV is the durable string key-value surface the stores sit on: single value
// per key, no transactions. Absent keys read back as the empty string.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, key string) error
}

// RedisKV backs the KV surface with Redis.
type RedisKV struct {
	rdb *redis.Client
}

func NewRedisKV(rdb *redis.Client) *RedisKV {
	return &RedisKV{rdb: rdb}
}

func (k *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := k.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (k *RedisKV) Set(ctx context.Context, key, value string) error {
	// Keys are garbage-collected well past the lazy TTL the stores enforce
	// themselves, so crashed installs do not leave markers behind forever.
	return k.rdb.Set(ctx, key, value, 24*time.Hour).Err()
}

func (k *RedisKV) Del(ctx context.Context, key string) error {
	return k.rdb.Del(ctx, key).Err()
}
