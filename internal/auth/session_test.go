package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisTest(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return rdb, mr
}

func TestSessionStoreRoundTrip(t *testing.T) {
	rdb, _ := newRedisTest(t)
	store := &SessionStore{Redis: rdb}
	ctx := context.Background()

	snapshot := SessionSnapshot{ID: "u-1", Name: "Alice", Email: "alice@example.com", Role: RoleUser}
	require.NoError(t, store.Create(ctx, snapshot, time.Hour))

	got, err := store.Get(ctx, "u-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, snapshot, *got)
}

func TestSessionStoreMissReturnsNil(t *testing.T) {
	rdb, _ := newRedisTest(t)
	store := &SessionStore{Redis: rdb}

	got, err := store.Get(context.Background(), "nobody")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestSessionStoreExpiry(t *testing.T) {
	rdb, mr := newRedisTest(t)
	store := &SessionStore{Redis: rdb}
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, SessionSnapshot{ID: "u-1"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	got, err := store.Get(ctx, "u-1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestSessionStoreDeleteIsIdempotent(t *testing.T) {
	rdb, _ := newRedisTest(t)
	store := &SessionStore{Redis: rdb}
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, SessionSnapshot{ID: "u-1"}, time.Hour))
	require.NoError(t, store.Delete(ctx, "u-1"))
	require.NoError(t, store.Delete(ctx, "u-1"))

	got, err := store.Get(ctx, "u-1")
	require.NoError(t, err)
	require.Nil(t, got)
}
