package repositories

import (
	"errors"

	"github.com/opuslog/backend/internal/models"
	"gorm.io/gorm"
)

// NotificationRepository defines the interface for notification storage. The
// aggregation rule (increment instead of duplicate) lives in the dispatcher;
// these are the raw store operations it relies on.
type NotificationRepository interface {
	CreateNotification(notification *models.Notification) error
	SaveNotification(notification *models.Notification) error
	FindUndelivered(userID uint, targetType string, targetID uint, kind string) (*models.Notification, error)
	GetUnread(userID uint) ([]models.Notification, error)
	GetAll(userID uint) ([]models.Notification, error)
	GetByID(id, userID uint) (*models.Notification, error)
	MarkAsRead(id, userID uint) error
	MarkAllAsRead(userID uint) error
	GetUnreadCount(userID uint) (int64, error)
	ShouldDeliver(userID uint, kind string, publicationID *uint) (bool, error)
}

// PostgresNotificationRepository implements NotificationRepository for PostgreSQL
type PostgresNotificationRepository struct {
	db *gorm.DB
}

// NewPostgresNotificationRepository creates a new PostgresNotificationRepository
func NewPostgresNotificationRepository(db *gorm.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

// CreateNotification persists a freshly rendered notification row
func (r *PostgresNotificationRepository) CreateNotification(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

// SaveNotification persists in-place updates (aggregation counter, re-render)
func (r *PostgresNotificationRepository) SaveNotification(notification *models.Notification) error {
	return r.db.Save(notification).Error
}

// FindUndelivered locates the open aggregation row for (recipient, target,
// kind), if any.
func (r *PostgresNotificationRepository) FindUndelivered(userID uint, targetType string, targetID uint, kind string) (*models.Notification, error) {
	var n models.Notification
	err := r.db.Where("user_id = ? AND target_type = ? AND target_id = ? AND kind = ? AND notified = ?",
		userID, targetType, targetID, kind, false).First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// GetUnread returns the not-yet-acknowledged notifications, newest first
func (r *PostgresNotificationRepository) GetUnread(userID uint) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.Where("user_id = ? AND notified = ?", userID, false).
		Order("updated_at DESC").
		Find(&notifications).Error
	return notifications, err
}

// GetAll returns every notification of a user ordered by last update
func (r *PostgresNotificationRepository) GetAll(userID uint) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&notifications).Error
	return notifications, err
}

// GetByID retrieves one notification scoped to its recipient
func (r *PostgresNotificationRepository) GetByID(id, userID uint) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkAsRead acknowledges one notification. A later event for the same key
// starts a fresh aggregation row.
func (r *PostgresNotificationRepository) MarkAsRead(id, userID uint) error {
	return r.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("notified", true).Error
}

// MarkAllAsRead acknowledges everything pending for a user
func (r *PostgresNotificationRepository) MarkAllAsRead(userID uint) error {
	return r.db.Model(&models.Notification{}).
		Where("user_id = ? AND notified = ?", userID, false).
		Update("notified", true).Error
}

// GetUnreadCount returns the pending notification count
func (r *PostgresNotificationRepository) GetUnreadCount(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("user_id = ? AND notified = ?", userID, false).
		Count(&count).Error
	return count, err
}

// ShouldDeliver consults the per-user notification settings. Absence of a
// settings row means deliver.
func (r *PostgresNotificationRepository) ShouldDeliver(userID uint, kind string, publicationID *uint) (bool, error) {
	var setting models.NotificationSetting
	query := r.db.Where("user_id = ? AND kind = ?", userID, kind)
	if publicationID != nil {
		query = query.Where("publication_id = ?", *publicationID)
	} else {
		query = query.Where("publication_id IS NULL")
	}
	err := query.First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return setting.Receive, nil
}
