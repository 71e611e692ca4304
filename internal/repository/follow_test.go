package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowRepository_InsertDeleteAreSetOperations(t *testing.T) {
	db := newTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	a := createUser(t, db, "a")
	b := createUser(t, db, "b")

	inserted, err := repo.Insert(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Insert(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, inserted)

	exists, err := repo.Exists(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.Exists(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, exists, "edges are directed")

	removed, err := repo.Delete(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repo.Delete(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestFollowRepository_GraphQueries(t *testing.T) {
	db := newTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	a := createUser(t, db, "a")
	b := createUser(t, db, "b")
	c := createUser(t, db, "c")
	d := createUser(t, db, "d")

	for _, edge := range [][2]uint{{a.ID, b.ID}, {c.ID, a.ID}, {b.ID, a.ID}} {
		_, err := repo.Insert(ctx, edge[0], edge[1])
		require.NoError(t, err)
	}

	followers, err := repo.Followers(ctx, a.ID, Page{})
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID, c.ID}, userIDs(followers))

	following, err := repo.Following(ctx, a.ID, Page{})
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID}, userIDs(following))

	network, err := repo.Network(ctx, a.ID, Page{})
	require.NoError(t, err)
	assert.Equal(t, []uint{c.ID, d.ID}, userIDs(network))

	contacts, err := repo.Contacts(ctx, a.ID, Page{})
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID, c.ID}, userIDs(contacts), "mutual follow listed once")

	ids, err := repo.FollowerIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID, c.ID}, ids)

	empty, err := repo.Followers(ctx, d.ID, Page{})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
