package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCache(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()

	alice := NewTokenCache(client, "alice")
	bob := NewTokenCache(client, "bob")

	t.Run("missing token is empty", func(t *testing.T) {
		tok, err := alice.Get(ctx, "https://p.example")
		require.NoError(t, err)
		assert.Empty(t, tok)
	})

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, alice.Set(ctx, "https://p.example", "cashuAalice", time.Hour))

		tok, err := alice.Get(ctx, "https://p.example")
		require.NoError(t, err)
		assert.Equal(t, "cashuAalice", tok)
		assert.True(t, mr.Exists("alloc:alice:https://p.example"))
	})

	t.Run("owners are isolated", func(t *testing.T) {
		tok, err := bob.Get(ctx, "https://p.example")
		require.NoError(t, err)
		assert.Empty(t, tok)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, alice.Delete(ctx, "https://p.example"))
		tok, err := alice.Get(ctx, "https://p.example")
		require.NoError(t, err)
		assert.Empty(t, tok)
	})

	t.Run("expires after ttl", func(t *testing.T) {
		require.NoError(t, alice.Set(ctx, "https://q.example", "cashuAq", time.Minute))
		mr.FastForward(2 * time.Minute)

		tok, err := alice.Get(ctx, "https://q.example")
		require.NoError(t, err)
		assert.Empty(t, tok)
	})
}

func TestTokenCache_ConnectionError(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewTokenCache(client, "alice")
	mr.Close()

	_, err := cache.Get(context.Background(), "https://p.example")
	assert.Error(t, err)
	assert.Error(t, cache.Set(context.Background(), "https://p.example", "t", time.Minute))
}
