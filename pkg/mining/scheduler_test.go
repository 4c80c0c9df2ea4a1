package mining

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	calls []*redis.XAddArgs
	err   error
}

func (f *fakeStream) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.calls = append(f.calls, a)
	return redis.NewStringResult("1-0", f.err)
}

func fixedClock() time.Time {
	return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
}

func TestMemorySchedulerRecordsEvents(t *testing.T) {
	s := NewMemoryScheduler().WithClock(fixedClock)
	ctx := context.Background()

	require.NoError(t, s.InitialiseCycle(ctx, 1))
	require.NoError(t, s.AdvanceCycle(ctx, 2))

	assert.Equal(t, []Event{
		{Kind: EventInitialised, Cycle: 1, At: fixedClock()},
		{Kind: EventAdvanced, Cycle: 2, At: fixedClock()},
	}, s.Events())
}

func TestRedisSchedulerPublishes(t *testing.T) {
	fake := &fakeStream{}
	s := newRedisScheduler(fake, "")
	s.clock = fixedClock

	require.NoError(t, s.InitialiseCycle(context.Background(), 1))
	require.NoError(t, s.AdvanceCycle(context.Background(), 2))

	require.Len(t, fake.calls, 2)
	assert.Equal(t, DefaultStream, fake.calls[0].Stream)
	assert.Equal(t, "INITIALISED", fake.calls[0].Values.(map[string]interface{})["kind"])
	assert.Equal(t, "2", fake.calls[1].Values.(map[string]interface{})["cycle"])
	assert.Equal(t, "2026-01-02T03:04:05Z", fake.calls[1].Values.(map[string]interface{})["at"])
}

func TestRedisSchedulerWrapsErrors(t *testing.T) {
	cause := errors.New("connection refused")
	s := newRedisScheduler(&fakeStream{err: cause}, "custom")

	err := s.AdvanceCycle(context.Background(), 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "custom", s.Stream())
}

// TestRedisScheduler_Integration requires a running Redis.
// We skip if connection fails.
func TestRedisScheduler_Integration(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		t.Skip("Skipping Redis integration test: redis not available")
	}
	stream := "colony:mining:test:" + time.Now().Format("150405.000000")
	defer client.Del(ctx, stream)

	s := newRedisScheduler(client, stream)
	require.NoError(t, s.InitialiseCycle(ctx, 1))

	msgs, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "1", msgs[0].Values["cycle"])
}
