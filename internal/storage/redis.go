package storage

import (
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/stores/redis"
)

// valueMark prefixes every stored value so an empty value is told apart from a missing key.
const valueMark = "="

// RedisStore keeps values in Redis under a key prefix, so several installs can share one server.
type RedisStore struct {
	rds    *redis.Redis
	prefix string
}

// NewRedisStore connects lazily to the Redis node at addr.
func NewRedisStore(addr, prefix string) *RedisStore {
	return &RedisStore{rds: redis.New(addr), prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *RedisStore) Get(key string) (string, error) {
	v, err := s.rds.Get(s.key(key))
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	// go-zero returns an empty string for a missing key
	if v == "" {
		return "", ErrNotFound
	}
	return strings.TrimPrefix(v, valueMark), nil
}

func (s *RedisStore) Set(key, value string) error {
	if err := s.rds.Set(s.key(key), valueMark+value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// SetWithTTL stores value for ttlSeconds. Used for bridge captures nobody may pick up.
func (s *RedisStore) SetWithTTL(key, value string, ttlSeconds int) error {
	if err := s.rds.Setex(s.key(key), valueMark+value, ttlSeconds); err != nil {
		return fmt.Errorf("failed to setex %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, s.key(k))
	}
	if _, err := s.rds.Del(full...); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}
