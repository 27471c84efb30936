package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/veazyhq/visaflow/internal/models"
)

const redisSessionKeyPrefix = "visaflow:session:"

// RedisStore keeps each session as a JSON blob under a prefixed key. Useful
// when several webhook workers share state without a relational database.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store. The DSN option must hold a
// redis URL, e.g. redis://localhost:6379/0.
func NewRedisStore(opts ...Option) (*RedisStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("RedisStore.NewRedisStore: creating Redis store", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("RedisStore DSN not set")
		return nil, fmt.Errorf("redis DSN not set")
	}

	redisOpts, err := redis.ParseURL(cfg.DSN)
	if err != nil {
		slog.Error("Failed to parse Redis DSN", "error", err)
		return nil, fmt.Errorf("failed to parse redis DSN: %w", err)
	}

	client := redis.NewClient(redisOpts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		slog.Error("Redis ping failed", "error", err)
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) GetSession(sessionID string) (*models.SessionState, error) {
	data, err := s.client.Get(context.Background(), redisSessionKeyPrefix+sessionID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		slog.Error("RedisStore GetSession failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	var session models.SessionState
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", sessionID, err)
	}
	if session.StateData == nil {
		session.StateData = make(map[string]string)
	}
	return &session, nil
}

func (s *RedisStore) SaveSession(session models.SessionState) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.SessionID, err)
	}
	if err := s.client.Set(context.Background(), redisSessionKeyPrefix+session.SessionID, data, 0).Err(); err != nil {
		slog.Error("RedisStore SaveSession failed", "error", err, "sessionID", session.SessionID)
		return fmt.Errorf("failed to save session %s: %w", session.SessionID, err)
	}
	slog.Debug("RedisStore SaveSession succeeded", "sessionID", session.SessionID, "state", session.CurrentState)
	return nil
}

func (s *RedisStore) DeleteSession(sessionID string) error {
	if err := s.client.Del(context.Background(), redisSessionKeyPrefix+sessionID).Err(); err != nil {
		slog.Error("RedisStore DeleteSession failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
