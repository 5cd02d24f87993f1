package repositories

import (
	"testing"

	"github.com/opuslog/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSubscriptionToggle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresSubscriptionRepository(db)

	follower := createTestUser(t, db, "follower")
	followed := createTestUser(t, db, "followed")
	actor := models.UserActor(follower)

	created, err := repo.SetSubscription(actor, models.ActorUser, followed.ID, true)
	require.NoError(t, err)
	assert.True(t, created)

	// Unsubscribe flips the flag on the same row.
	created, err = repo.SetSubscription(actor, models.ActorUser, followed.ID, false)
	require.NoError(t, err)
	assert.False(t, created)

	sub, err := repo.GetSubscription(actor, models.ActorUser, followed.ID)
	require.NoError(t, err)
	assert.False(t, sub.Subscribed)

	// Resubscribing reuses the row.
	created, err = repo.SetSubscription(actor, models.ActorUser, followed.ID, true)
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	require.NoError(t, db.Model(&models.Subscriber{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGetSubscribersOfFiltersUnsubscribed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresSubscriptionRepository(db)

	followed := createTestUser(t, db, "followed")
	a := createTestUser(t, db, "a")
	b := createTestUser(t, db, "b")

	_, err := repo.SetSubscription(models.UserActor(a), models.ActorUser, followed.ID, true)
	require.NoError(t, err)
	_, err = repo.SetSubscription(models.UserActor(b), models.ActorUser, followed.ID, true)
	require.NoError(t, err)
	_, err = repo.SetSubscription(models.UserActor(b), models.ActorUser, followed.ID, false)
	require.NoError(t, err)

	subs, err := repo.GetSubscribersOf(models.ActorUser, followed.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, a.ID, subs[0].ActorID)
}
