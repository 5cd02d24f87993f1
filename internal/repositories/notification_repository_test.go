package repositories

import (
	"errors"
	"testing"

	"github.com/opuslog/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func TestFindUndeliveredScopesToOpenRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresNotificationRepository(db)
	user := createTestUser(t, db, "reader")

	n := &models.Notification{
		UserID:     user.ID,
		Kind:       models.KindComment,
		TargetType: "write_up",
		TargetID:   7,
		Data:       datatypes.JSONMap{"actor_handler": "ada"},
		Verbose:    "'ada' commented on your Write Up",
	}
	require.NoError(t, repo.CreateNotification(n))

	found, err := repo.FindUndelivered(user.ID, "write_up", 7, models.KindComment)
	require.NoError(t, err)
	assert.Equal(t, n.ID, found.ID)

	// Different kind for the same target is a separate aggregation key.
	_, err = repo.FindUndelivered(user.ID, "write_up", 7, models.KindUpVoteWriteUp)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	// Acknowledging closes the window, so the next lookup starts fresh.
	require.NoError(t, repo.MarkAsRead(n.ID, user.ID))
	_, err = repo.FindUndelivered(user.ID, "write_up", 7, models.KindComment)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestMarkAsReadIsScopedToRecipient(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresNotificationRepository(db)
	owner := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "other")

	n := &models.Notification{UserID: owner.ID, Kind: models.KindNewThread, TargetType: "thread", TargetID: 1}
	require.NoError(t, repo.CreateNotification(n))

	// Someone else's id must not acknowledge the row.
	require.NoError(t, repo.MarkAsRead(n.ID, other.ID))
	count, err := repo.GetUnreadCount(owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, repo.MarkAsRead(n.ID, owner.ID))
	count, err = repo.GetUnreadCount(owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestMarkAllAsRead(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresNotificationRepository(db)
	user := createTestUser(t, db, "busy")

	for i := uint(1); i <= 3; i++ {
		require.NoError(t, repo.CreateNotification(&models.Notification{
			UserID: user.ID, Kind: models.KindNewMessage, TargetType: "thread", TargetID: i,
		}))
	}
	require.NoError(t, repo.MarkAllAsRead(user.ID))

	unread, err := repo.GetUnread(user.ID)
	require.NoError(t, err)
	assert.Empty(t, unread)

	all, err := repo.GetAll(user.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestShouldDeliverDefaultsToTrue(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresNotificationRepository(db)
	user := createTestUser(t, db, "quiet")

	ok, err := repo.ShouldDeliver(user.ID, models.KindComment, nil)
	require.NoError(t, err)
	assert.True(t, ok, "no settings row means deliver")
}

func TestShouldDeliverHonorsOptOut(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresNotificationRepository(db)
	user := createTestUser(t, db, "muted")

	require.NoError(t, db.Create(&models.NotificationSetting{
		UserID: user.ID, Kind: models.KindComment, Receive: false,
	}).Error)

	ok, err := repo.ShouldDeliver(user.ID, models.KindComment, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	// The opt-out is keyed per kind.
	ok, err = repo.ShouldDeliver(user.ID, models.KindNewThread, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestShouldDeliverPerPublicationSetting(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresNotificationRepository(db)
	user := createTestUser(t, db, "contributor")

	pubID := uint(42)
	require.NoError(t, db.Create(&models.NotificationSetting{
		UserID: user.ID, PublicationID: &pubID, Kind: models.KindComment, Receive: false,
	}).Error)

	// Muted only inside that publication.
	ok, err := repo.ShouldDeliver(user.ID, models.KindComment, &pubID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.ShouldDeliver(user.ID, models.KindComment, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}
