package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"jobchat/internal/model"
)

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)

// RedisStore keeps session history in a Redis list per session, trimmed to a
// turn limit and expired after a TTL. Idle eviction comes for free from the
// key TTL, so the cron sweep only applies to the memory store.
type RedisStore struct {
	client *redis.Client
	limit  int
	ttl    time.Duration
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// NewRedisStore creates a Redis-backed store keeping at most limit turns per
// session, each session expiring ttl after its last write.
func NewRedisStore(client *redis.Client, limit int, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, limit: limit, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return "chat:session:" + sessionID
}

// History implements Store.
func (s *RedisStore) History(ctx context.Context, sessionID string) ([]model.Turn, error) {
	raw, err := s.client.LRange(ctx, sessionKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session history: %w", err)
	}

	turns := make([]model.Turn, 0, len(raw))
	for _, item := range raw {
		var turn model.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("corrupt session turn: %w", err)
		}
		turns = append(turns, turn)
	}

	return turns, nil
}

// Append implements Store.
func (s *RedisStore) Append(ctx context.Context, sessionID string, turns ...model.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	key := sessionKey(sessionID)
	values := make([]interface{}, 0, len(turns))
	for _, turn := range turns {
		data, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("failed to marshal turn: %w", err)
		}
		values = append(values, data)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	if s.limit > 0 {
		pipe.LTrim(ctx, key, int64(-s.limit), -1)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append session turns: %w", err)
	}

	return nil
}
