//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-rag/pkg/config"
)

func TestRedisReserver_Integration(t *testing.T) {
	pool, err := dockertest.NewPool("")
	require.NoError(t, err)
	pool.MaxWait = 60 * time.Second

	resource, err := pool.Run("redis", "7-alpine", nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pool.Purge(resource)
	})

	cfg := &config.RedisConfig{
		Enabled: true,
		Host:    "localhost",
		Port:    resource.GetPort("6379/tcp"),
	}

	ctx := context.Background()
	var reserver *RedisReserver
	require.NoError(t, pool.Retry(func() error {
		client, err := NewRedisClient(ctx, cfg)
		if err != nil {
			return err
		}
		reserver = NewRedisReserver(client)
		return nil
	}))

	ok, err := reserver.Reserve(ctx, "meeting_a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reserver.Reserve(ctx, "meeting_a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, reserver.Release(ctx, "meeting_a"))
	ok, err = reserver.Reserve(ctx, "meeting_a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
