package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/attendantbot/attendant/internal/redis"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTest(t *testing.T) (*redis.CooldownTracker, *miniredis.Miniredis, func()) {
	t.Helper()

	// Start miniredis server
	mr, err := miniredis.Run()
	require.NoError(t, err)

	// Create Redis client
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)

	tracker := redis.NewCooldownTrackerWithClient(client)

	cleanup := func() {
		client.Close()
		mr.Close()
	}
	return tracker, mr, cleanup
}

func TestCooldownTryArmsOnce(t *testing.T) {
	tracker, _, cleanup := setupTest(t)
	defer cleanup()

	ctx := context.Background()
	key := redis.MemberKey("exp", 1, 2)

	ok, err := tracker.Try(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tracker.Try(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "a running cooldown rejects further attempts")
}

func TestCooldownExpires(t *testing.T) {
	tracker, mr, cleanup := setupTest(t)
	defer cleanup()

	ctx := context.Background()
	key := redis.MemberKey("exp", 1, 2)

	ok, err := tracker.Try(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = tracker.Try(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "an expired cooldown can be armed again")
}

func TestCooldownClear(t *testing.T) {
	tracker, _, cleanup := setupTest(t)
	defer cleanup()

	ctx := context.Background()
	key := redis.MemberKey("counting", 5, 6)

	ok, err := tracker.Try(ctx, key, time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, tracker.Clear(ctx, key))

	ok, err = tracker.Try(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCooldownKeysAreScoped(t *testing.T) {
	tracker, _, cleanup := setupTest(t)
	defer cleanup()

	ctx := context.Background()

	ok, err := tracker.Try(ctx, redis.MemberKey("exp", 1, 2), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = tracker.Try(ctx, redis.MemberKey("exp", 1, 3), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "different members cool down independently")
}
