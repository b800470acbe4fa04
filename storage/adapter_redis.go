package storage

import (
	"github.com/redis/go-redis/v9"
)

type RedisAdapter struct {
	Client *redis.Client
}

func (a *RedisAdapter) Dialect() string { return DialectRedis }
func (a *RedisAdapter) Close() error    { return a.Client.Close() }

func isRedisClient(conn any) bool {
	_, ok := conn.(*redis.Client)
	return ok
}

func newRedisAdapter(conn any) (Adapter, error) {
	return &RedisAdapter{Client: conn.(*redis.Client)}, nil
}
