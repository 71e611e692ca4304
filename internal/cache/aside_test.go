package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedUser struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestAsideFetchesOnceThenServesFromCache(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()
	calls := 0
	fetch := func(dest *cachedUser) func() error {
		return func() error {
			calls++
			*dest = cachedUser{ID: 7, Name: "ada"}
			return nil
		}
	}

	var first cachedUser
	require.NoError(t, Aside(ctx, UserKey(7), &first, UserTTL, fetch(&first)))
	var second cachedUser
	require.NoError(t, Aside(ctx, UserKey(7), &second, UserTTL, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "ada", second.Name)
	assert.True(t, mr.Exists("user:7"))
	assert.True(t, mr.TTL("user:7") > 0)
}

func TestAsideDoesNotCacheFetchErrors(t *testing.T) {
	mr := withMiniredis(t)
	boom := errors.New("boom")

	var dest cachedUser
	err := Aside(context.Background(), UserKey(1), &dest, UserTTL, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("user:1"))
}

func TestAsideWithoutRedisCallsFetch(t *testing.T) {
	SetClient(nil)
	calls := 0
	var dest cachedUser
	for i := 0; i < 2; i++ {
		require.NoError(t, Aside(context.Background(), UserKey(3), &dest, time.Minute, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}

func TestAsideTreatsCorruptEntryAsMiss(t *testing.T) {
	mr := withMiniredis(t)
	require.NoError(t, mr.Set("user:9", "{not json"))

	var dest cachedUser
	err := Aside(context.Background(), UserKey(9), &dest, UserTTL, func() error {
		dest = cachedUser{ID: 9, Name: "fresh"}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", dest.Name)
}

func TestInvalidateUserRemovesKey(t *testing.T) {
	mr := withMiniredis(t)
	require.NoError(t, mr.Set("user:4", "{}"))
	require.NoError(t, mr.Set(TagListKey, "[]"))

	InvalidateUser(context.Background(), 4)
	InvalidateTags(context.Background())

	assert.False(t, mr.Exists("user:4"))
	assert.False(t, mr.Exists(TagListKey))
}
