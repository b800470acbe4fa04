package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const redisPrefPrefix = "persist:pref:"

func redisPrefKey(file string) string { return redisPrefPrefix + file }

type redisPreferenceRepo struct {
	client *redis.Client
}

func (r *redisPreferenceRepo) Get(ctx context.Context, file, key string) (string, error) {
	v, err := r.client.HGet(ctx, redisPrefKey(file), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (r *redisPreferenceRepo) Set(ctx context.Context, file, key, value string) error {
	return r.client.HSet(ctx, redisPrefKey(file), key, value).Err()
}

func (r *redisPreferenceRepo) All(ctx context.Context, file string) (map[string]string, error) {
	return r.client.HGetAll(ctx, redisPrefKey(file)).Result()
}

func (r *redisPreferenceRepo) Delete(ctx context.Context, file, key string) error {
	return r.client.HDel(ctx, redisPrefKey(file), key).Err()
}

func (r *redisPreferenceRepo) Clear(ctx context.Context, file string) error {
	return r.client.Del(ctx, redisPrefKey(file)).Err()
}
