package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/carefolio/core"
)

// 需要本地 Redis：CAREFOLIO_TEST_REDIS_ADDR=127.0.0.1:6379 go test ./store/...
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("CAREFOLIO_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CAREFOLIO_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	s, err := NewRedisStore(ctx, RedisConfig{Addr: addr, DB: 15})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set(ctx, "carefolio:test:k", []byte("v")))
	got, err := s.Get(ctx, "carefolio:test:k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, s.BatchSet(ctx, map[string][]byte{"carefolio:test:a": []byte("1")}, 60))
	batch, err := s.BatchGet(ctx, []string{"carefolio:test:a", "carefolio:test:none"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"carefolio:test:a": []byte("1")}, batch)

	require.NoError(t, s.Delete(ctx, "carefolio:test:k"))
	_, err = s.Get(ctx, "carefolio:test:k")
	assert.True(t, core.IsStoreNotFound(err))
}
