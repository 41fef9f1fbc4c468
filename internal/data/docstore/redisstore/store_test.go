package redisstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/fleet-backend/internal/data/docstore"
	"github.com/yungbote/fleet-backend/internal/data/docstore/storetest"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

// setupTestStore creates a store connected to a fresh miniredis instance
func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	s := New(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), "test", logger.NewNop())
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store {
		s, _ := setupTestStore(t)
		return s
	})
}

func TestRedisStoreKeyLayout(t *testing.T) {
	s, mr := setupTestStore(t)
	ctx := context.Background()

	k, err := s.Save(ctx, "Boats", []byte(`{"name":"Skiff"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), k.ID)

	assert.True(t, mr.Exists("test:Boats:doc:1"))
	got, err := mr.Get("test:Boats:seq")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
	members, err := mr.ZMembers("test:Boats:ids")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, members)

	require.NoError(t, s.Delete(ctx, k))
	assert.False(t, mr.Exists("test:Boats:doc:1"))
	assert.False(t, mr.Exists("test:Boats:ids"))
}

func TestRedisStoreQuerySkipsVanishedDocs(t *testing.T) {
	s, mr := setupTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.Save(ctx, "Loads", []byte(`{}`))
		require.NoError(t, err)
	}
	mr.Del("test:Loads:doc:2")

	page, err := s.Query(ctx, "Loads", 3, "")
	require.NoError(t, err)
	require.Len(t, page.Entities, 2)
	assert.Equal(t, int64(1), page.Entities[0].Key.ID)
	assert.Equal(t, int64(3), page.Entities[1].Key.ID)
}

func TestOpenRejectsMissingAddr(t *testing.T) {
	_, err := Open(context.Background(), Config{}, logger.NewNop())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing REDIS_ADDR")
}

func TestOpenPings(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	s, err := Open(context.Background(), Config{Addr: mr.Addr(), Prefix: "fleet"}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	assert.NoError(t, s.Ping(context.Background()))
}
