package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultDialTimeout = 5 * time.Second

// NewRedisClient returns a configured go-redis client and validates the connection with PING.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis: addr is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: defaultDialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), defaultDialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// RedisStore keeps session gates in redis so several dashboard replicas share them.
type RedisStore struct {
	client   *redis.Client
	interval time.Duration
	ttl      time.Duration
}

// NewRedisStore returns redis-backed gate store.
func NewRedisStore(client *redis.Client, interval, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, interval: interval, ttl: ttl}
}

func (s *RedisStore) key(sessionID string) string {
	return fmt.Sprintf("traffic:session:%s:last_auto", sessionID)
}

// Check loads the gate under WATCH and advances it atomically when due.
func (s *RedisStore) Check(ctx context.Context, sessionID string, now time.Time) (bool, error) {
	key := s.key(sessionID)

	var due bool
	check := func(tx *redis.Tx) error {
		due = false

		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, now.Format(time.RFC3339Nano), s.ttl)
				return nil
			})
			return err
		}
		if err != nil {
			return err
		}

		last, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return fmt.Errorf("parse gate for session %s: %w", sessionID, err)
		}

		gate := NewGate(last, s.interval)
		if !gate.Due(now) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, gate.Last.Format(time.RFC3339Nano), s.ttl)
			return nil
		})
		if err == nil {
			due = true
		}
		return err
	}

	err := s.client.Watch(ctx, check, key)
	if errors.Is(err, redis.TxFailedErr) {
		// a concurrent check of the same session won the update
		return false, nil
	}
	return due, err
}

// Reset removes the session gate.
func (s *RedisStore) Reset(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
