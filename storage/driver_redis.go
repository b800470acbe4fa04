package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDriver serves preferences only; Object returns nil.
type RedisDriver struct {
	a    *RedisAdapter
	pref PreferenceRepo
}

func newRedisDriver(adapter Adapter) (Driver, error) {
	a, ok := adapter.(*RedisAdapter)
	if !ok {
		return nil, fmt.Errorf("redis driver expects *RedisAdapter, got %T", adapter)
	}
	return &RedisDriver{a: a}, nil
}

func (d *RedisDriver) Dialect() string { return DialectRedis }

// Migrate has no schema to apply and only checks the server is reachable.
func (d *RedisDriver) Migrate(ctx context.Context) error {
	if d.a == nil || d.a.Client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return d.a.Client.Ping(ctx).Err()
}

func (d *RedisDriver) client() *redis.Client { return d.a.Client }

func (d *RedisDriver) Object() ObjectRepo { return nil }

func (d *RedisDriver) Preference() PreferenceRepo {
	if d.pref == nil {
		d.pref = &redisPreferenceRepo{client: d.client()}
	}
	return d.pref
}
