package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redisにトークンを置き、アクセスのたびにTTLを延ばす
type RedisGuestStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGuestStore(rdb *redis.Client, ttl time.Duration) *RedisGuestStore {
	return &RedisGuestStore{rdb: rdb, ttl: ttl}
}

func redisKey(token string) string { return "digistore:guest:" + token }

func (s *RedisGuestStore) TTL() time.Duration { return s.ttl }

func (s *RedisGuestStore) Issue(ctx context.Context) (string, error) {
	token := uuid.NewString()
	if err := s.rdb.Set(ctx, redisKey(token), time.Now().Unix(), s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// 期限切れ・未知のトークンは false
func (s *RedisGuestStore) Valid(ctx context.Context, token string) (bool, error) {
	if _, err := uuid.Parse(token); err != nil {
		return false, nil
	}
	ok, err := s.rdb.Expire(ctx, redisKey(token), s.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (s *RedisGuestStore) Discard(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, redisKey(token)).Err()
}

// Redis無しの構成用。uuid形式なら受け入れる。
type CookieGuestStore struct {
	ttl time.Duration
}

func NewCookieGuestStore(ttl time.Duration) *CookieGuestStore {
	return &CookieGuestStore{ttl: ttl}
}

func (s *CookieGuestStore) TTL() time.Duration { return s.ttl }

func (s *CookieGuestStore) Issue(context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *CookieGuestStore) Valid(_ context.Context, token string) (bool, error) {
	_, err := uuid.Parse(token)
	return err == nil, nil
}

func (s *CookieGuestStore) Discard(context.Context, string) error { return nil }
