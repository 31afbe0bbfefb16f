package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/heraldhq/herald/pkg/observability"
)

const redisLogKeyPrefix = "herald:deliveries:"

// RedisLogStore keeps per-guild delivery history in Redis lists, one list
// per guild, trimmed to the retention ceiling on every write. It is the
// backend of choice when multiple herald instances share one delivery log.
type RedisLogStore struct {
	client  *redis.Client
	limit   int
	ttl     time.Duration
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewRedisLogStore creates a Redis-backed delivery log. The client must
// already be connected; ownership stays with the caller except for Close.
func NewRedisLogStore(client *redis.Client, limit int, ttl time.Duration, logger *observability.Logger, metrics *observability.Metrics) *RedisLogStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &RedisLogStore{
		client:  client,
		limit:   limit,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

// NewRedisClient connects to Redis from a URL, with sane timeouts. The
// password, db, and pool size arguments override the URL when non-zero.
func NewRedisClient(redisURL, password string, db, poolSize int) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second
	if password != "" {
		opts.Password = password
	}
	if db > 0 {
		opts.DB = db
	}
	if poolSize > 0 {
		opts.PoolSize = poolSize
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

func (s *RedisLogStore) key(guildID string) string {
	return redisLogKeyPrefix + guildID
}

// Record pushes the attempt onto the guild's list and trims it to the
// retention ceiling in one pipeline.
func (s *RedisLogStore) Record(ctx context.Context, attempt DeliveryAttempt) error {
	start := time.Now()

	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery attempt: %w", err)
	}

	key := s.key(attempt.GuildID)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, int64(s.limit-1))
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, err = pipe.Exec(ctx)

	s.metrics.ObserveLogStoreOp("record", "redis", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to record delivery attempt: %w", err)
	}
	return nil
}

// List returns the guild's attempts, newest first
func (s *RedisLogStore) List(ctx context.Context, guildID string, limit int) ([]DeliveryAttempt, error) {
	start := time.Now()
	limit = clampLimit(limit, s.limit)

	raw, err := s.client.LRange(ctx, s.key(guildID), 0, int64(limit-1)).Result()
	s.metrics.ObserveLogStoreOp("list", "redis", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery attempts: %w", err)
	}

	attempts := make([]DeliveryAttempt, 0, len(raw))
	for _, item := range raw {
		var attempt DeliveryAttempt
		if err := json.Unmarshal([]byte(item), &attempt); err != nil {
			s.logger.WithError(err).WithField("guild_id", guildID).Warn("skipping corrupt delivery log entry")
			continue
		}
		attempts = append(attempts, attempt)
	}
	return attempts, nil
}

// Close closes the underlying Redis client
func (s *RedisLogStore) Close() error {
	return s.client.Close()
}

var _ DeliveryLogStore = (*RedisLogStore)(nil)
