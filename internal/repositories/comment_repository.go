package repositories

import (
	"github.com/opuslog/backend/internal/models"
	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(comment *models.Comment) error
	GetCommentByID(id uint) (*models.Comment, error)
	GetFirstLevelComments(writeUpID uint) ([]models.Comment, error)
	GetReplies(commentID uint) ([]models.Comment, error)
	SoftDeleteComment(id uint) error
	IncrementReplies(commentID uint) error
	AdjustVoteCounts(commentID uint, upDelta, downDelta int) error
}

// PostgresCommentRepository implements CommentRepository for PostgreSQL
type PostgresCommentRepository struct {
	db *gorm.DB
}

// NewPostgresCommentRepository creates a new PostgresCommentRepository
func NewPostgresCommentRepository(db *gorm.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

// CreateComment creates a new comment
func (r *PostgresCommentRepository) CreateComment(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

// GetCommentByID retrieves a comment by ID
func (r *PostgresCommentRepository) GetCommentByID(id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// GetFirstLevelComments retrieves the top-level comments of a write-up
func (r *PostgresCommentRepository) GetFirstLevelComments(writeUpID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.Where("write_up_id = ? AND reply_to_id IS NULL", writeUpID).
		Order("created_at DESC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// GetReplies retrieves the replies of a comment
func (r *PostgresCommentRepository) GetReplies(commentID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.Where("reply_to_id = ?", commentID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// SoftDeleteComment flags a comment as deleted. The row and its reply linkage
// stay; rendering substitutes the placeholder text.
func (r *PostgresCommentRepository) SoftDeleteComment(id uint) error {
	return r.db.Model(&models.Comment{}).Where("id = ?", id).Update("deleted", true).Error
}

// IncrementReplies atomically bumps the denormalized reply counter
func (r *PostgresCommentRepository) IncrementReplies(commentID uint) error {
	return r.db.Model(&models.Comment{}).Where("id = ?", commentID).
		UpdateColumn("replies", gorm.Expr("replies + ?", 1)).Error
}

// AdjustVoteCounts applies atomic deltas to the denormalized vote counters
func (r *PostgresCommentRepository) AdjustVoteCounts(commentID uint, upDelta, downDelta int) error {
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
	return r.db.Model(&models.Comment{}).Where("id = ?", commentID).UpdateColumns(updates).Error
}
