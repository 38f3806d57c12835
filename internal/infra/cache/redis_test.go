package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisCache_UnreachableIsMiss(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	c := NewRedisCache(rdb, time.Minute)
	var dest []string

	assert.False(t, c.Get(context.Background(), "categories", &dest))
	assert.Error(t, c.Set(context.Background(), "categories", []string{"a"}))
}

func TestNoop(t *testing.T) {
	var n Noop
	var dest int
	assert.False(t, n.Get(context.Background(), "k", &dest))
	assert.NoError(t, n.Set(context.Background(), "k", 1))
	assert.NoError(t, n.Invalidate(context.Background()))
}
