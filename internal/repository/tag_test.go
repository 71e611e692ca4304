package repository

import (
	"context"
	"testing"

	"nodeback/internal/cache"
	"nodeback/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagRepository_GetOrCreateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewTagRepository(db)
	ctx := context.Background()

	first, err := repo.GetOrCreate(ctx, []string{"go", "rust"})
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := repo.GetOrCreate(ctx, []string{"rust", "zig", "go"})
	require.NoError(t, err)
	require.Len(t, second, 3)
	assert.Equal(t, "rust", second[0].Name)
	assert.Equal(t, first[1].ID, second[0].ID)

	var count int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestTagRepository_FindByNamesReportsMissing(t *testing.T) {
	db := newTestDB(t)
	repo := NewTagRepository(db)
	ctx := context.Background()

	_, err := repo.GetOrCreate(ctx, []string{"go"})
	require.NoError(t, err)

	found, missing, err := repo.FindByNames(ctx, []string{"go", "haskell", "ocaml"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "go", found[0].Name)
	assert.Equal(t, []string{"haskell", "ocaml"}, missing)
}

func TestTagRepository_ListIsCachedAndInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	db := newTestDB(t)
	repo := NewTagRepository(db)
	ctx := context.Background()

	_, err := repo.GetOrCreate(ctx, []string{"go"})
	require.NoError(t, err)

	tags, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.True(t, mr.Exists(cache.TagListKey))

	// A new tag drops the cached list.
	_, err = repo.GetOrCreate(ctx, []string{"rust"})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.TagListKey))

	tags, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 2)
}
