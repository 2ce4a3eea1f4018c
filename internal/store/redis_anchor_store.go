package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/haitranq/prepline/config"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// anchorTTLGrace keeps an anchor alive past its nominal duration so that a
// submit retry after expiry can still read it.
const anchorTTLGrace = 24 * time.Hour

type redisAnchorStore struct {
	rdb *goredis.Client
}

// NewRedisAnchorStore connects to Redis and verifies the connection with a
// ping before handing the store out.
func NewRedisAnchorStore(cfg *config.Config) (AnchorStore, error) {
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis anchor store connected")
	return &redisAnchorStore{rdb: rdb}, nil
}

func anchorKey(attemptID uint) string {
	return fmt.Sprintf("exam:anchor:%d", attemptID)
}

func (s *redisAnchorStore) Put(ctx context.Context, attemptID uint, anchor Anchor) error {
	payload, err := json.Marshal(anchor)
	if err != nil {
		return fmt.Errorf("marshal anchor: %w", err)
	}
	ttl := time.Duration(anchor.DurationSeconds)*time.Second + anchorTTLGrace
	if err := s.rdb.Set(ctx, anchorKey(attemptID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store anchor for attempt %d: %w", attemptID, err)
	}
	return nil
}

func (s *redisAnchorStore) Get(ctx context.Context, attemptID uint) (Anchor, error) {
	payload, err := s.rdb.Get(ctx, anchorKey(attemptID)).Bytes()
	if err == goredis.Nil {
		return Anchor{}, ErrAnchorNotFound
	}
	if err != nil {
		return Anchor{}, fmt.Errorf("read anchor for attempt %d: %w", attemptID, err)
	}
	var anchor Anchor
	if err := json.Unmarshal(payload, &anchor); err != nil {
		return Anchor{}, fmt.Errorf("decode anchor for attempt %d: %w", attemptID, err)
	}
	return anchor, nil
}

func (s *redisAnchorStore) Clear(ctx context.Context, attemptID uint) error {
	if err := s.rdb.Del(ctx, anchorKey(attemptID)).Err(); err != nil {
		return fmt.Errorf("clear anchor for attempt %d: %w", attemptID, err)
	}
	return nil
}
