package repositories

import (
	"errors"
	"time"

	"github.com/opuslog/backend/internal/models"
	"gorm.io/gorm"
)

// ErrArticleLocked is returned when a lock acquisition finds another active
// session on the article.
var ErrArticleLocked = errors.New("article is locked by another writer")

// ErrNoActiveLock is returned when a refresh or completion finds no active
// session held by the caller.
var ErrNoActiveLock = errors.New("no active lock held on this article")

// GroupWritingRepository defines the interface for group-writing events and
// their advisory lease bookkeeping.
type GroupWritingRepository interface {
	CreateGroupWriting(gw *models.GroupWriting) error
	GetByWriteUpID(writeUpID uint) (*models.GroupWriting, error)
	AcquireLock(articleID, holderID uint, now time.Time) (*models.GroupWritingLockHistory, error)
	RefreshX(articleID, holderID uint, now time.Time) error
	RefreshY(articleID, holderID uint, now time.Time) error
	CompleteLock(articleID, holderID uint) error
	AppendText(articleID, writerID uint, text string) (*models.GroupWritingText, error)
	GetActiveLock(articleID uint) (*models.GroupWritingLockHistory, error)
	SweepExpired(now time.Time, xWindow, yWindow time.Duration) (int64, error)
}

// PostgresGroupWritingRepository implements GroupWritingRepository for PostgreSQL
type PostgresGroupWritingRepository struct {
	db *gorm.DB
}

// NewPostgresGroupWritingRepository creates a new PostgresGroupWritingRepository
func NewPostgresGroupWritingRepository(db *gorm.DB) *PostgresGroupWritingRepository {
	return &PostgresGroupWritingRepository{db: db}
}

// CreateGroupWriting creates a group-writing event for a write-up
func (r *PostgresGroupWritingRepository) CreateGroupWriting(gw *models.GroupWriting) error {
	return r.db.Create(gw).Error
}

// GetByWriteUpID retrieves the group-writing event of a write-up
func (r *PostgresGroupWritingRepository) GetByWriteUpID(writeUpID uint) (*models.GroupWriting, error) {
	var gw models.GroupWriting
	if err := r.db.Where("write_up_id = ?", writeUpID).First(&gw).Error; err != nil {
		return nil, err
	}
	return &gw, nil
}

// AcquireLock opens a lease on the article: sets the lock flag and creates an
// active history row with both heartbeat timestamps at now. The single-active
// invariant is a transactional check; the lock stays advisory.
func (r *PostgresGroupWritingRepository) AcquireLock(articleID, holderID uint, now time.Time) (*models.GroupWritingLockHistory, error) {
	var history *models.GroupWritingLockHistory
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.GroupWritingLockHistory{}).
			Where("article_id = ? AND status = ?", articleID, models.LockActive).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrArticleLocked
		}
		if err := tx.Model(&models.GroupWriting{}).Where("id = ?", articleID).
			Update("lock", true).Error; err != nil {
			return err
		}
		history = &models.GroupWritingLockHistory{
			ArticleID:     articleID,
			LockHolderID:  holderID,
			LockStartTime: now,
			LastXRequest:  now,
			LastYRequest:  now,
			Status:        models.LockActive,
		}
		return tx.Create(history).Error
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}

func (r *PostgresGroupWritingRepository) refresh(articleID, holderID uint, column string, now time.Time) error {
	res := r.db.Model(&models.GroupWritingLockHistory{}).
		Where("article_id = ? AND lock_holder_id = ? AND status = ?", articleID, holderID, models.LockActive).
		UpdateColumn(column, now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoActiveLock
	}
	return nil
}

// RefreshX records the frequent keep-alive heartbeat from the writing client
func (r *PostgresGroupWritingRepository) RefreshX(articleID, holderID uint, now time.Time) error {
	return r.refresh(articleID, holderID, "last_x_request", now)
}

// RefreshY records the slower human-challenge (captcha) refresh
func (r *PostgresGroupWritingRepository) RefreshY(articleID, holderID uint, now time.Time) error {
	return r.refresh(articleID, holderID, "last_y_request", now)
}

// CompleteLock closes the holder's session normally and releases the article
func (r *PostgresGroupWritingRepository) CompleteLock(articleID, holderID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.GroupWritingLockHistory{}).
			Where("article_id = ? AND lock_holder_id = ? AND status = ?", articleID, holderID, models.LockActive).
			Update("status", models.LockComplete)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoActiveLock
		}
		return tx.Model(&models.GroupWriting{}).Where("id = ?", articleID).
			Update("lock", false).Error
	})
}

// AppendText adds the next sequenced contribution to the article
func (r *PostgresGroupWritingRepository) AppendText(articleID, writerID uint, text string) (*models.GroupWritingText, error) {
	var entry *models.GroupWritingText
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var last models.GroupWritingText
		var next uint = 1
		err := tx.Where("article_id = ?", articleID).Order("sequence DESC").First(&last).Error
		if err == nil {
			next = last.Sequence + 1
		} else if err != gorm.ErrRecordNotFound {
			return err
		}
		entry = &models.GroupWritingText{
			ArticleID: articleID,
			Sequence:  next,
			WriterID:  writerID,
			Text:      text,
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetActiveLock retrieves the active session of an article, if any
func (r *PostgresGroupWritingRepository) GetActiveLock(articleID uint) (*models.GroupWritingLockHistory, error) {
	var history models.GroupWritingLockHistory
	err := r.db.Where("article_id = ? AND status = ?", articleID, models.LockActive).First(&history).Error
	if err != nil {
		return nil, err
	}
	return &history, nil
}

// SweepExpired voids every active session whose X heartbeat is older than
// xWindow OR whose Y challenge is older than yWindow, clearing the lock flag
// of the affected articles in the same transaction. Returns the number of
// sessions voided.
func (r *PostgresGroupWritingRepository) SweepExpired(now time.Time, xWindow, yWindow time.Duration) (int64, error) {
	targetX := now.Add(-xWindow)
	targetY := now.Add(-yWindow)

	var voided int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var expired []models.GroupWritingLockHistory
		err := tx.Where("status = ? AND (last_x_request < ? OR last_y_request < ?)",
			models.LockActive, targetX, targetY).
			Find(&expired).Error
		if err != nil {
			return err
		}
		if len(expired) == 0 {
			return nil
		}

		articleIDs := make([]uint, 0, len(expired))
		for _, h := range expired {
			articleIDs = append(articleIDs, h.ArticleID)
		}
		if err := tx.Model(&models.GroupWriting{}).Where("id IN ?", articleIDs).
			Update("lock", false).Error; err != nil {
			return err
		}

		res := tx.Model(&models.GroupWritingLockHistory{}).
			Where("status = ? AND (last_x_request < ? OR last_y_request < ?)",
				models.LockActive, targetX, targetY).
			Update("status", models.LockVoid)
		if res.Error != nil {
			return res.Error
		}
		voided = res.RowsAffected
		return nil
	})
	return voided, err
}
