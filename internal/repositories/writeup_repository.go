package repositories

import (
	"github.com/opuslog/backend/internal/models"
	"gorm.io/gorm"
)

// WriteUpRepository defines the interface for write-up data operations
type WriteUpRepository interface {
	CreateWriteUp(writeUp *models.WriteUp) error
	GetWriteUpByUUID(uuid string) (*models.WriteUp, error)
	GetWriteUpByID(id uint) (*models.WriteUp, error)
	AdjustVoteCounts(writeUpID uint, upDelta, downDelta int) error
	AddWriteUpContributor(wc *models.WriteUpContributor, codes []string) error
	GetWriteUpContributor(writeUpID, userID uint) (*models.WriteUpContributor, error)
}

// PostgresWriteUpRepository implements WriteUpRepository for PostgreSQL
type PostgresWriteUpRepository struct {
	db *gorm.DB
}

// NewPostgresWriteUpRepository creates a new PostgresWriteUpRepository
func NewPostgresWriteUpRepository(db *gorm.DB) *PostgresWriteUpRepository {
	return &PostgresWriteUpRepository{db: db}
}

// CreateWriteUp creates a new write-up
func (r *PostgresWriteUpRepository) CreateWriteUp(writeUp *models.WriteUp) error {
	return r.db.Create(writeUp).Error
}

// GetWriteUpByUUID retrieves a write-up by its public UUID
func (r *PostgresWriteUpRepository) GetWriteUpByUUID(uuid string) (*models.WriteUp, error) {
	var writeUp models.WriteUp
	if err := r.db.Where("uuid = ?", uuid).First(&writeUp).Error; err != nil {
		return nil, err
	}
	return &writeUp, nil
}

// GetWriteUpByID retrieves a write-up by primary key
func (r *PostgresWriteUpRepository) GetWriteUpByID(id uint) (*models.WriteUp, error) {
	var writeUp models.WriteUp
	if err := r.db.First(&writeUp, id).Error; err != nil {
		return nil, err
	}
	return &writeUp, nil
}

// AdjustVoteCounts applies atomic deltas to the denormalized vote counters.
// Deltas may be negative when a vote flips or is retracted.
func (r *PostgresWriteUpRepository) AdjustVoteCounts(writeUpID uint, upDelta, downDelta int) error {
	updates := map[string]interface{}{}
	if upDelta != 0 {
		updates["up_votes"] = gorm.Expr("up_votes + ?", upDelta)
	}
	if downDelta != 0 {
		updates["down_votes"] = gorm.Expr("down_votes + ?", downDelta)
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.WriteUp{}).Where("id = ?", writeUpID).UpdateColumns(updates).Error
}

// AddWriteUpContributor creates a write-up contributor row with the given
// permission codes attached, in one transaction.
func (r *PostgresWriteUpRepository) AddWriteUpContributor(wc *models.WriteUpContributor, codes []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(wc).Error; err != nil {
			return err
		}
		if len(codes) == 0 {
			return nil
		}
		var perms []models.Permission
		if err := tx.Where("code_name IN ?", codes).Find(&perms).Error; err != nil {
			return err
		}
		return tx.Model(wc).Association("Permissions").Append(&perms)
	})
}

// GetWriteUpContributor retrieves the write-up scoped contributor row for a user
func (r *PostgresWriteUpRepository) GetWriteUpContributor(writeUpID, userID uint) (*models.WriteUpContributor, error) {
	var wc models.WriteUpContributor
	err := r.db.Preload("Permissions").
		Where("write_up_id = ? AND contributor_id = ?", writeUpID, userID).
		First(&wc).Error
	if err != nil {
		return nil, err
	}
	return &wc, nil
}
