package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockscope/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	client, err := New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)

	assert.False(t, client.Enabled())
	assert.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
}

func TestCache_Disabled(t *testing.T) {
	client, _ := New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	cache := NewCache(client, "test")
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", "value", time.Minute))

	var dest string
	found, err := cache.Get(ctx, "key", &dest)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Delete(ctx, "key"))
}

func TestSummaryKey(t *testing.T) {
	assert.Equal(t, "summary:largecap", SummaryKey("largecap"))
	assert.Equal(t, "test:cache:summary:all", NewCache(&Client{}, "test").key(SummaryKey("all")))
}

func TestCache_RoundTrip(t *testing.T) {
	if os.Getenv("REDIS_HOST") == "" {
		t.Skip("REDIS_HOST not set, skipping integration test")
	}

	client, err := New(&config.Config{Redis: config.RedisConfig{
		Host:    os.Getenv("REDIS_HOST"),
		Port:    "6379",
		Enabled: true,
	}})
	require.NoError(t, err)
	defer client.Close()

	cache := NewCache(client, "stockscope-test")
	ctx := context.Background()

	type payload struct {
		Total float64 `json:"total"`
	}
	require.NoError(t, cache.Set(ctx, "k", payload{Total: 42}, time.Minute))

	var got payload
	found, err := cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 42.0, got.Total)
	require.NoError(t, cache.Delete(ctx, "k"))
}
