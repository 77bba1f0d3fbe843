package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrStoreUnavailable 键值存储不可达。调用方必须降级处理，不能让请求失败
var ErrStoreUnavailable = errors.New("kv store unavailable")

// KVStore 限流计数与响应缓存共用的键值存储
type KVStore interface {
	// Incr 原子自增，key 不存在时从 1 开始
	Incr(ctx context.Context, key string) (int64, error)
	// Expire 设置过期时间，key 不存在时无操作
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	KeysMatching(ctx context.Context, pattern string) ([]string, error)
	DeleteMany(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{Client: rdb}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	n, err := s.Client.Incr(ctx, key).Result()
	if err != nil {
		return 0, unavailable("incr", err)
	}
	return n, nil
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.Client.Expire(ctx, key, ttl).Err(); err != nil {
		return unavailable("expire", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.Client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, unavailable("get", err)
	}
	return val, true, nil
}

func (s *RedisStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.Client.Set(ctx, key, value, ttl).Err(); err != nil {
		return unavailable("set", err)
	}
	return nil
}

// KeysMatching 使用 SCAN 遍历，避免 KEYS 阻塞 Redis
func (s *RedisStore) KeysMatching(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.Client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, unavailable("scan", err)
	}
	return keys, nil
}

func (s *RedisStore) DeleteMany(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.Client.Del(ctx, keys...).Err(); err != nil {
		return unavailable("del", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.Client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}
