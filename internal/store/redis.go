package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"telephony-bridge/internal/calls"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix  = "callconfig:"
	defaultRedisTTL = 24 * time.Hour
)

// RedisStore keeps configs as JSON under callconfig:<id> with a TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func redisKey(conversationID string) string { return redisKeyPrefix + conversationID }

func (s *RedisStore) Save(ctx context.Context, conversationID string, cfg *calls.Config) error {
	if err := checkSave(conversationID, cfg); err != nil {
		return err
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, redisKey(conversationID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("store: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, conversationID string) (*calls.Config, error) {
	b, err := s.rdb.Get(ctx, redisKey(conversationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: redis get: %w", err)
	}
	var cfg calls.Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", conversationID, err)
	}
	return &cfg, nil
}
