package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore — хранилище сессии в Redis. Позволяет нескольким процессам
// клиента (например, CI-раннерам) разделять одну сессию.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "quiz:".
func NewRedisStore(ctx context.Context, redisURL, prefix string) (*RedisStore, error) {
	const op = "session.NewRedisStore"

	if prefix == "" {
		prefix = "quiz:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return &RedisStore{rdb: rdb, prefix: prefix}, nil
}

func (s *RedisStore) key(k string) string { return s.prefix + k }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("session.RedisStore.Get: %w", err)
	}

	return v, true, nil
}

// Put хранит запись без TTL: время жизни сессии определяют токены, а не хранилище.
func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.rdb.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("session.RedisStore.Put: %w", err)
	}

	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("session.RedisStore.Delete: %w", err)
	}

	return nil
}

func (s *RedisStore) Close() error { return s.rdb.Close() }
