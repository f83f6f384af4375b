package redis

import (
	"context"
	"testing"
	"time"

	"github.com/localbites/kiosk-backend/pkg/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	values   map[string]string
	counters map[string]int64
	expires  map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		values:   map[string]string{},
		counters: map[string]int64{},
		expires:  map[string]time.Duration{},
	}
}

func (f *fakeStore) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.values[key] = toString(value)
	f.expires[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeStore) Get(_ context.Context, key string) *redis.StringCmd {
	if val, ok := f.values[key]; ok {
		return redis.NewStringResult(val, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	if _, exists := f.values[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = toString(value)
	f.expires[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeStore) Incr(_ context.Context, key string) *redis.IntCmd {
	f.counters[key]++
	return redis.NewIntResult(f.counters[key], nil)
}

func (f *fakeStore) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.expires[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func toString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return "1"
}

func TestKeyBuilders(t *testing.T) {
	c := &Client{}
	assert.Equal(t, "kiosk:idempotency:alerts:evt-1", c.IdempotencyKey("alerts", "evt-1"))
	assert.Equal(t, "kiosk:webhook:square:evt-2", c.WebhookGuardKey("square", "evt-2"))
	assert.Equal(t, "kiosk:lock:cron", c.LockKey("cron"))
	assert.Equal(t, "kiosk:counter:sweeps", c.CounterKey("sweeps"))
}

func TestKeyBuilderSkipsEmptyParts(t *testing.T) {
	c := &Client{}
	assert.Equal(t, "kiosk:idempotency:evt", c.IdempotencyKey("", "evt"))
}

func TestSetNXFirstWriteWins(t *testing.T) {
	c := &Client{store: newFakeStore()}
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "k", "owner-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "k", "owner-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	val, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "owner-a", val)
}

func TestUninitializedClientErrors(t *testing.T) {
	c := &Client{}
	_, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, c.Ping(context.Background()))
}

func TestOptionsFromConfigRequiresEndpoint(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	assert.Error(t, err)
}

func TestOptionsFromConfigParsesURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2"})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
}
