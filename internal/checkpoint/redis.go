// Package checkpoint persists conversation state between messages. One
// snapshot is kept per identity and overwritten on every pause, so a
// conversation survives restarts and arbitrary gaps between replies.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fieldops.app/incidentbot/internal/convo"
)

const keyPrefix = "convo:state:"

// RedisStore keeps checkpoints in Redis with a sliding TTL. A checkpoint
// that goes untouched past the TTL expires and the next message starts a
// fresh conversation.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, identity string) (*convo.State, error) {
	raw, err := s.client.Get(ctx, keyPrefix+identity).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}

	st, err := convo.UnmarshalState(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding checkpoint: %w", err)
	}
	return st, nil
}

func (s *RedisStore) Save(ctx context.Context, identity string, state *convo.State) error {
	raw, err := state.Marshal()
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+identity, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, identity string) error {
	if err := s.client.Del(ctx, keyPrefix+identity).Err(); err != nil {
		return fmt.Errorf("deleting checkpoint: %w", err)
	}
	return nil
}
