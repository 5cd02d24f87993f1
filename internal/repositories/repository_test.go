package repositories

import (
	"testing"

	"github.com/opuslog/backend/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a fresh in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Publication{},
		&models.Permission{},
		&models.ContributorList{},
		&models.WriteUp{},
		&models.WriteUpContributor{},
		&models.Comment{},
		&models.VoteWriteUp{},
		&models.VoteComment{},
		&models.Subscriber{},
		&models.Notification{},
		&models.NotificationSetting{},
		&models.RequestLog{},
		&models.Thread{},
		&models.ThreadMember{},
		&models.Message{},
		&models.GroupWriting{},
		&models.GroupWritingText{},
		&models.GroupWritingLockHistory{},
	))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, handler string) *models.User {
	t.Helper()
	user := &models.User{Name: handler, Handler: handler, Email: handler + "@example.com"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestWriteUp(t *testing.T, db *gorm.DB, owner *models.User, title string) *models.WriteUp {
	t.Helper()
	writeUp := &models.WriteUp{
		UUID:      "uuid-" + title,
		Title:     title,
		Kind:      models.WriteUpArticle,
		OwnerType: models.ActorUser,
		OwnerID:   owner.ID,
	}
	require.NoError(t, db.Create(writeUp).Error)
	return writeUp
}

func boolPtr(v bool) *bool { return &v }
