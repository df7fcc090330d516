// Package kvstore is the expiring key/value store behind sessions and the
// salon directory cache.  Redis is the only production backend.
package kvstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is an expiring string key/value store.
type Store interface {
	// Set overwrites key unconditionally.  A non-positive ttl keeps the
	// entry until it is deleted.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns found=false when the key is absent or expired.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Delete removes key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// DeleteByPrefix removes every key that literally starts with prefix
	// and reports how many were removed.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
}

// scanBatch is the COUNT hint for SCAN and the UNLINK batch size.
const scanBatch = 500

// RedisStore implements Store over a go-redis client.
type RedisStore struct {
	rdb redis.UniversalClient
}

// NewRedisStore wraps rdb.
func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// DeleteByPrefix walks the keyspace with SCAN and removes matches with
// UNLINK in batches.  SCAN does not block the server the way KEYS does; a
// key written during the walk may survive it.
func (s *RedisStore) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, errors.New("kvstore: empty prefix")
	}
	pattern := escapeGlob(prefix) + "*"
	deleted := 0
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return deleted, err
		}
		for len(keys) > 0 {
			n := min(len(keys), scanBatch)
			removed, err := s.rdb.Unlink(ctx, keys[:n]...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += int(removed)
			keys = keys[n:]
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

// escapeGlob backslash-escapes the characters SCAN MATCH treats specially.
func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
