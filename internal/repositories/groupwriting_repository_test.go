package repositories

import (
	"testing"
	"time"

	"github.com/opuslog/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testXWindow = 5*time.Minute + 30*time.Second
	testYWindow = 20*time.Minute + 30*time.Second
)

func createTestArticle(t *testing.T, db *gorm.DB) *models.GroupWriting {
	t.Helper()
	owner := createTestUser(t, db, "gw-owner")
	writeUp := &models.WriteUp{
		UUID:      "uuid-gw",
		Title:     "Group Story",
		Kind:      models.WriteUpGroupWriting,
		OwnerType: models.ActorUser,
		OwnerID:   owner.ID,
	}
	require.NoError(t, db.Create(writeUp).Error)
	gw := &models.GroupWriting{WriteUpID: writeUp.ID, Active: true}
	require.NoError(t, db.Create(gw).Error)
	return gw
}

func TestAcquireLockIsExclusive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresGroupWritingRepository(db)
	gw := createTestArticle(t, db)

	now := time.Now()
	history, err := repo.AcquireLock(gw.ID, 1, now)
	require.NoError(t, err)
	assert.Equal(t, models.LockActive, history.Status)

	_, err = repo.AcquireLock(gw.ID, 2, now)
	assert.ErrorIs(t, err, ErrArticleLocked)

	// Completing frees the article for the next writer.
	require.NoError(t, repo.CompleteLock(gw.ID, 1))
	_, err = repo.AcquireLock(gw.ID, 2, now)
	require.NoError(t, err)
}

func TestRefreshRequiresActiveHolder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresGroupWritingRepository(db)
	gw := createTestArticle(t, db)

	now := time.Now()
	_, err := repo.AcquireLock(gw.ID, 1, now)
	require.NoError(t, err)

	require.NoError(t, repo.RefreshX(gw.ID, 1, now.Add(time.Minute)))
	require.NoError(t, repo.RefreshY(gw.ID, 1, now.Add(time.Minute)))

	// Someone who does not hold the session cannot refresh it.
	assert.ErrorIs(t, repo.RefreshX(gw.ID, 2, now), ErrNoActiveLock)
}

func TestSweepExpiredVoidsStaleXHeartbeat(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresGroupWritingRepository(db)
	gw := createTestArticle(t, db)

	start := time.Now().Add(-10 * time.Minute)
	_, err := repo.AcquireLock(gw.ID, 1, start)
	require.NoError(t, err)

	// Y is fresh, X is stale: the session is voided on the X window alone.
	require.NoError(t, repo.RefreshY(gw.ID, 1, time.Now()))

	voided, err := repo.SweepExpired(time.Now(), testXWindow, testYWindow)
	require.NoError(t, err)
	assert.EqualValues(t, 1, voided)

	var history models.GroupWritingLockHistory
	require.NoError(t, db.First(&history, "article_id = ?", gw.ID).Error)
	assert.Equal(t, models.LockVoid, history.Status)

	var article models.GroupWriting
	require.NoError(t, db.First(&article, gw.ID).Error)
	assert.False(t, article.Lock)
}

func TestSweepExpiredVoidsStaleYChallenge(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresGroupWritingRepository(db)
	gw := createTestArticle(t, db)

	start := time.Now().Add(-30 * time.Minute)
	_, err := repo.AcquireLock(gw.ID, 1, start)
	require.NoError(t, err)

	// X kept alive but the Y challenge never refreshed.
	require.NoError(t, repo.RefreshX(gw.ID, 1, time.Now()))

	voided, err := repo.SweepExpired(time.Now(), testXWindow, testYWindow)
	require.NoError(t, err)
	assert.EqualValues(t, 1, voided)
}

func TestSweepExpiredLeavesFreshSessions(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresGroupWritingRepository(db)
	gw := createTestArticle(t, db)

	_, err := repo.AcquireLock(gw.ID, 1, time.Now())
	require.NoError(t, err)

	voided, err := repo.SweepExpired(time.Now(), testXWindow, testYWindow)
	require.NoError(t, err)
	assert.EqualValues(t, 0, voided)

	active, err := repo.GetActiveLock(gw.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LockActive, active.Status)
}

func TestAppendTextSequences(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresGroupWritingRepository(db)
	gw := createTestArticle(t, db)

	first, err := repo.AppendText(gw.ID, 1, "Once upon a time")
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.Sequence)

	second, err := repo.AppendText(gw.ID, 2, "there was a writer")
	require.NoError(t, err)
	assert.EqualValues(t, 2, second.Sequence)
}
