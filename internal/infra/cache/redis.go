package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const versionKey = "digistore:catalog:version"

// カタログ読み取り用のキャッシュ。
// 無効化は version を上げるだけで、古いキーは TTL で消える。
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) key(ctx context.Context, name string) (string, error) {
	v, err := c.rdb.Get(ctx, versionKey).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf("digistore:catalog:v%d:%s", v, name), nil
}

// 取れなければ false（Redis障害もミス扱い）
func (c *RedisCache) Get(ctx context.Context, name string, dest interface{}) bool {
	k, err := c.key(ctx, name)
	if err != nil {
		return false
	}
	val, err := c.rdb.Get(ctx, k).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(val, dest) == nil
}

func (c *RedisCache) Set(ctx context.Context, name string, value interface{}) error {
	k, err := c.key(ctx, name)
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, k, data, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, versionKey).Err()
}

// REDIS_ADDR 未設定のとき
type Noop struct{}

func (Noop) Get(context.Context, string, interface{}) bool  { return false }
func (Noop) Set(context.Context, string, interface{}) error { return nil }
func (Noop) Invalidate(context.Context) error               { return nil }
