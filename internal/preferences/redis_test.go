package preferences_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/davidbz/ember/internal/preferences"
)

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	prefix := "ember:test:" + uuid.NewString() + ":"
	store, err := preferences.NewRedisStore(client, prefix)
	require.NoError(t, err)
	t.Cleanup(func() {
		client.Del(ctx, prefix+preferences.KeyCredential, prefix+preferences.KeyModel)
	})

	_, err = store.Get(ctx, preferences.KeyModel)
	require.ErrorIs(t, err, preferences.ErrNotFound)

	prefs := preferences.New(store, "")
	require.NoError(t, store.Set(ctx, preferences.KeyModel, "cerebras/llama-3.3-70b"))

	model, err := prefs.Model(ctx)
	require.NoError(t, err)
	require.Equal(t, "llama-3.3-70b", model)

	stored, err := client.Get(ctx, prefix+preferences.KeyModel).Result()
	require.NoError(t, err)
	require.Equal(t, "llama-3.3-70b", stored)
}

func TestNewRedisStore_NilClient(t *testing.T) {
	_, err := preferences.NewRedisStore(nil, preferences.DefaultRedisPrefix)

	require.Error(t, err)
}
