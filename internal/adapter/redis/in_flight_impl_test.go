package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/clone-service/internal/repository"
)

// testClient connects to REDIS_TEST_ADDR and skips when it is unset.
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestInFlightReleaseOnlyByHolder(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	repo := NewInFlightRepo(client, time.Minute)
	url := "https://acme.test/" + uuid.NewString()
	t.Cleanup(func() { client.Del(ctx, repo.generateKey(url)) })

	require.NoError(t, repo.Acquire(ctx, url, "newer"))
	assert.ErrorIs(t, repo.Acquire(ctx, url, "other"), repository.ErrCloneInFlight)

	// A stale clone whose mark expired must not clear the current holder.
	require.NoError(t, repo.Release(ctx, url, "stale"))
	holder, err := client.Get(ctx, repo.generateKey(url)).Result()
	require.NoError(t, err)
	assert.Equal(t, "newer", holder)

	require.NoError(t, repo.Release(ctx, url, "newer"))
	assert.NoError(t, repo.Acquire(ctx, url, "next"))
}
