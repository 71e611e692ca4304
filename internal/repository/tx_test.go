package repository

import (
	"context"
	"errors"
	"testing"

	"nodeback/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	uow := NewUnitOfWork(db)
	ctx := context.Background()

	a := createUser(t, db, "a")
	b := createUser(t, db, "b")

	boom := errors.New("boom")
	err := uow.Do(ctx, func(tx *Repositories) error {
		if _, err := tx.Follows.Insert(ctx, a.ID, b.ID); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	exists, err := NewFollowRepository(db).Exists(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSavepoint_KeepsOuterWrite(t *testing.T) {
	db := newTestDB(t)
	uow := NewUnitOfWork(db)
	ctx := context.Background()

	a := createUser(t, db, "a")
	b := createUser(t, db, "b")

	var inner error
	err := uow.Do(ctx, func(tx *Repositories) error {
		if _, err := tx.Follows.Insert(ctx, a.ID, b.ID); err != nil {
			return err
		}
		inner = tx.Savepoint(ctx, func(sp *Repositories) error {
			if err := sp.Notifications.CreateBatch(ctx, []*models.Notification{models.NewFollowNotification(a.ID, b.ID)}); err != nil {
				return err
			}
			return errors.New("fan-out failed")
		})
		return nil
	})
	require.NoError(t, err)
	assert.Error(t, inner)

	exists, err := NewFollowRepository(db).Exists(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, exists, "outer write commits")

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count, "savepoint writes are rolled back")
}

func TestSavepoint_WithoutConnectionCallsThrough(t *testing.T) {
	called := false
	err := (&Repositories{}).Savepoint(context.Background(), func(*Repositories) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}
