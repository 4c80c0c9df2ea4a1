package mining

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultStream is the Redis stream miners read cycle events from.
const DefaultStream = "colony:mining:cycles"

// streamWriter is the part of *redis.Client the scheduler uses.
type streamWriter interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisScheduler publishes cycle events onto a Redis stream.
type RedisScheduler struct {
	client streamWriter
	stream string
	maxLen int64
	clock  func() time.Time
}

// NewRedisScheduler creates a scheduler backed by Redis.
func NewRedisScheduler(addr, password string, db int, stream string) *RedisScheduler {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return newRedisScheduler(rdb, stream)
}

func newRedisScheduler(client streamWriter, stream string) *RedisScheduler {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisScheduler{client: client, stream: stream, maxLen: 10000, clock: time.Now}
}

// Stream returns the stream name events are written to.
func (s *RedisScheduler) Stream() string {
	return s.stream
}

func (s *RedisScheduler) InitialiseCycle(ctx context.Context, cycle uint64) error {
	return s.publish(ctx, EventInitialised, cycle)
}

func (s *RedisScheduler) AdvanceCycle(ctx context.Context, cycle uint64) error {
	return s.publish(ctx, EventAdvanced, cycle)
}

func (s *RedisScheduler) publish(ctx context.Context, kind EventKind, cycle uint64) error {
	_, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"kind":  string(kind),
			"cycle": strconv.FormatUint(cycle, 10),
			"at":    s.clock().UTC().Format(time.RFC3339Nano),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("redis mining signal %s cycle %d: %w", kind, cycle, err)
	}
	return nil
}
