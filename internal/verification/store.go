package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jonathan/resume-analyzer/internal/config"
)

// RedisStore keeps verification codes in Redis. Each user has at most one
// live code: saving a new one removes the previous.
type RedisStore struct {
	rdb    goredis.UniversalClient
	prefix string
}

// NewRedisStore connects to Redis and checks the connection.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreFromClient(rdb), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(rdb goredis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: "email_verify:"}
}

func (s *RedisStore) codeKey(code string) string { return s.prefix + "code:" + code }
func (s *RedisStore) userKey(id string) string   { return s.prefix + "user:" + id }

// Save stores code for userID with the given lifetime.
func (s *RedisStore) Save(ctx context.Context, code, userID string, ttl time.Duration) error {
	prev, err := s.rdb.Get(ctx, s.userKey(userID)).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("failed to read previous code: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		if prev != "" {
			p.Del(ctx, s.codeKey(prev))
		}
		p.Set(ctx, s.codeKey(code), userID, ttl)
		p.Set(ctx, s.userKey(userID), code, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save verification code: %w", err)
	}
	return nil
}

// Take returns the user id for code and deletes it. It returns "" when the
// code is unknown or expired.
func (s *RedisStore) Take(ctx context.Context, code string) (string, error) {
	userID, err := s.rdb.GetDel(ctx, s.codeKey(code)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read verification code: %w", err)
	}
	if err := s.rdb.Del(ctx, s.userKey(userID)).Err(); err != nil {
		return "", fmt.Errorf("failed to clear verification code: %w", err)
	}
	return userID, nil
}

// Close releases the connection.
func (s *RedisStore) Close() error { return s.rdb.Close() }
