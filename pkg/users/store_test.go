package users

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis connects to a local Redis and skips the test when none is running.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewStore should panic with nil redis client")
		}
	}()
	NewStore(nil, "")
}

func TestRegister_Validation(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:1"})
	defer client.Close()
	store := NewStore(client, "test")

	for _, name := range []string{"", "ab", "  a  ", "éé", " ÄÖ "} {
		_, err := store.Register(context.Background(), name)
		assert.True(t, errors.Is(err, ErrInvalidUsername), "username %q", name)
	}

	_, err := store.ConfirmDeposit(context.Background(), "   ")
	assert.True(t, errors.Is(err, ErrInvalidUsername))

	// Three characters pass validation and reach the (unreachable) server.
	_, err = store.Register(context.Background(), "éèê")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidUsername))
}

func runStoreSuite(t *testing.T, client *redis.Client) {
	ctx := context.Background()
	store := NewStore(client, "test")
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	t.Run("register", func(t *testing.T) {
		user, err := store.Register(ctx, "  Player_One ")
		require.NoError(t, err)
		assert.Equal(t, "player_one", user.Username)
		assert.False(t, user.HasDeposited)
		assert.Equal(t, fixed, user.CreatedAt)
		assert.NotEmpty(t, user.ID)
	})

	t.Run("register is idempotent", func(t *testing.T) {
		first, err := store.Status(ctx, "player_one")
		require.NoError(t, err)

		again, err := store.Register(ctx, "PLAYER_ONE")
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
	})

	t.Run("status unknown", func(t *testing.T) {
		_, err := store.Status(ctx, "nobody")
		assert.True(t, errors.Is(err, ErrUserNotFound))
	})

	t.Run("deposit unknown", func(t *testing.T) {
		_, err := store.ConfirmDeposit(ctx, "nobody")
		assert.True(t, errors.Is(err, ErrUserNotFound))
	})

	t.Run("deposit", func(t *testing.T) {
		user, err := store.ConfirmDeposit(ctx, "Player_One")
		require.NoError(t, err)
		assert.True(t, user.HasDeposited)
		assert.Equal(t, fixed, user.DepositedAt)

		status, err := store.Status(ctx, "player_one")
		require.NoError(t, err)
		assert.True(t, status.HasDeposited)
		assert.Equal(t, user.ID, status.ID)
	})

	t.Run("register after deposit keeps deposit", func(t *testing.T) {
		user, err := store.Register(ctx, "player_one")
		require.NoError(t, err)
		assert.True(t, user.HasDeposited)
	})

	t.Run("concurrent register", func(t *testing.T) {
		var wg sync.WaitGroup
		ids := make([]string, 8)
		errs := make([]error, len(ids))
		for i := range ids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				user, err := store.Register(ctx, "racer")
				errs[i] = err
				if err == nil {
					ids[i] = user.ID
				}
			}(i)
		}
		wg.Wait()

		for _, err := range errs {
			require.NoError(t, err)
		}
		require.NotEmpty(t, ids[0])
		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}
	})

	t.Run("deposit while others register", func(t *testing.T) {
		_, err := store.Register(ctx, "depositor")
		require.NoError(t, err)

		var wg sync.WaitGroup
		depositErrs := make([]error, 4)
		registerErrs := make([]error, 16)
		for i := range registerErrs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, registerErrs[i] = store.Register(ctx, fmt.Sprintf("bystander_%02d", i))
			}(i)
		}
		for i := range depositErrs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, depositErrs[i] = store.ConfirmDeposit(ctx, "depositor")
			}(i)
		}
		wg.Wait()

		for _, err := range registerErrs {
			require.NoError(t, err)
		}
		for _, err := range depositErrs {
			require.NoError(t, err)
		}

		status, err := store.Status(ctx, "depositor")
		require.NoError(t, err)
		assert.True(t, status.HasDeposited)

		count, err := client.HLen(ctx, store.keys.Users()).Result()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, count, int64(len(registerErrs)+1))
	})

	t.Run("corrupt record", func(t *testing.T) {
		require.NoError(t, client.HSet(ctx, store.keys.Users(), "broken", "{not json").Err())
		_, err := store.Status(ctx, "broken")
		assert.True(t, errors.Is(err, ErrInvalidRecord))
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}

func TestStore_LocalRedis(t *testing.T) {
	runStoreSuite(t, setupTestRedis(t))
}
