package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"github.com/fakhrymubarak/skyglow-weather/internal/config"
	"github.com/fakhrymubarak/skyglow-weather/internal/recent"
)

var (
	client *redisv9.Client
	once   sync.Once
)

func GetClient() *redisv9.Client {
	once.Do(func() {
		client = redisv9.NewClient(&redisv9.Options{
			Addr: config.GetRedisAddr(),
		})
	})
	return client
}

// ResetClientForTest resets the Redis client singleton. Use only in tests.
func ResetClientForTest() {
	once = sync.Once{}
	client = nil
}

// Cmdable is the subset of the Redis client the KV needs.
type Cmdable interface {
	Get(ctx context.Context, key string) *redisv9.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redisv9.StatusCmd
}

// KV persists recent searches as a plain Redis string without expiry.
type KV struct {
	client Cmdable
}

// NewKV wraps client. Passing nil uses the shared client from GetClient.
func NewKV(c Cmdable) *KV {
	if c == nil {
		c = GetClient()
	}
	return &KV{client: c}
}

func (k *KV) Get(ctx context.Context, key string) (string, error) {
	val, err := k.client.Get(ctx, key).Result()
	if errors.Is(err, redisv9.Nil) {
		return "", recent.ErrNotFound
	}
	return val, err
}

func (k *KV) Set(ctx context.Context, key, value string) error {
	return k.client.Set(ctx, key, value, 0).Err()
}

var _ recent.KV = (*KV)(nil)
