package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"babelbeam/pipeline"
)

const sessionKeyPrefix = "babelbeam:session:"

// RedisConfig connection settings of RedisStore
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore keeps sessions in Redis so that several server instances share
// them. Every read or write slides the expiry.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig, ttl time.Duration, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connected",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
	)

	return NewRedisStoreWithClient(client, ttl, logger), nil
}

// NewRedisStoreWithClient wraps an existing client without pinging it.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = SessionTimeout
	}
	return &RedisStore{client: client, ttl: ttl, logger: logger}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (s *RedisStore) Load(ctx context.Context, id string) (pipeline.State, bool, error) {
	value, err := s.client.GetEx(ctx, sessionKey(id), s.ttl).Result()
	if errors.Is(err, redis.Nil) {
		return pipeline.State{}, false, nil
	}
	if err != nil {
		s.logger.Error("Session get failed", zap.Error(err))
		return pipeline.State{}, false, err
	}

	var st pipeline.State
	if err := json.Unmarshal([]byte(value), &st); err != nil {
		// A corrupt entry is treated as a missing session.
		s.logger.Warn("Session unmarshal failed", zap.Error(err))
		return pipeline.State{}, false, nil
	}
	return st, true, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, st pipeline.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(id), data, s.ttl).Err(); err != nil {
		s.logger.Error("Session set failed", zap.Error(err))
		return err
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		s.logger.Error("Session delete failed", zap.Error(err))
		return err
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
