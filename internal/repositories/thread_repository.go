package repositories

import (
	"github.com/opuslog/backend/internal/models"
	"gorm.io/gorm"
)

// ThreadRepository defines the interface for thread and message data operations
type ThreadRepository interface {
	CreateThreadWithMember(thread *models.Thread, actor models.Actor) error
	GetThreadForActor(threadID uint, actor models.Actor) (*models.Thread, error)
	GetThreadsForActor(actor models.Actor) ([]models.Thread, error)
	UpdateSubject(thread *models.Thread, subject string) error
	GetActiveMembers(threadID uint) ([]models.ThreadMember, error)
	AddMember(threadID uint, memberType string, memberID uint) error
	RemoveMember(threadID uint, memberType string, memberID uint) error
	GetMessages(threadID uint) ([]models.Message, error)
	CreateMessage(message *models.Message) error
}

// PostgresThreadRepository implements ThreadRepository for PostgreSQL
type PostgresThreadRepository struct {
	db *gorm.DB
}

// NewPostgresThreadRepository creates a new PostgresThreadRepository
func NewPostgresThreadRepository(db *gorm.DB) *PostgresThreadRepository {
	return &PostgresThreadRepository{db: db}
}

// CreateThreadWithMember creates a thread and enrolls the creating actor as
// its first member in one transaction.
func (r *PostgresThreadRepository) CreateThreadWithMember(thread *models.Thread, actor models.Actor) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(thread).Error; err != nil {
			return err
		}
		member := &models.ThreadMember{
			ThreadID:   thread.ID,
			MemberType: actor.Type(),
			MemberID:   actor.ID(),
		}
		return tx.Create(member).Error
	})
}

// GetThreadForActor retrieves a thread only if the actor is an active member
func (r *PostgresThreadRepository) GetThreadForActor(threadID uint, actor models.Actor) (*models.Thread, error) {
	var thread models.Thread
	err := r.db.Preload("CreatedBy").
		Joins("JOIN thread_members ON thread_members.thread_id = threads.id").
		Where("threads.id = ? AND thread_members.member_type = ? AND thread_members.member_id = ? AND thread_members.removed = ?",
			threadID, actor.Type(), actor.ID(), false).
		First(&thread).Error
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// GetThreadsForActor lists the threads an actor is an active member of
func (r *PostgresThreadRepository) GetThreadsForActor(actor models.Actor) ([]models.Thread, error) {
	var threads []models.Thread
	err := r.db.Preload("CreatedBy").
		Joins("JOIN thread_members ON thread_members.thread_id = threads.id").
		Where("thread_members.member_type = ? AND thread_members.member_id = ? AND thread_members.removed = ?",
			actor.Type(), actor.ID(), false).
		Order("threads.updated_at DESC").
		Find(&threads).Error
	return threads, err
}

// UpdateSubject renames a thread
func (r *PostgresThreadRepository) UpdateSubject(thread *models.Thread, subject string) error {
	return r.db.Model(thread).Update("subject", subject).Error
}

// GetActiveMembers lists the not-removed members of a thread
func (r *PostgresThreadRepository) GetActiveMembers(threadID uint) ([]models.ThreadMember, error) {
	var members []models.ThreadMember
	err := r.db.Where("thread_id = ? AND removed = ?", threadID, false).Find(&members).Error
	return members, err
}

// AddMember enrolls an actor pair into a thread. A previously removed member
// rejoining reuses the unique row.
func (r *PostgresThreadRepository) AddMember(threadID uint, memberType string, memberID uint) error {
	var member models.ThreadMember
	err := r.db.Where("thread_id = ? AND member_type = ? AND member_id = ?",
		threadID, memberType, memberID).First(&member).Error
	if err == nil {
		return r.db.Model(&member).Update("removed", false).Error
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	return r.db.Create(&models.ThreadMember{
		ThreadID:   threadID,
		MemberType: memberType,
		MemberID:   memberID,
	}).Error
}

// RemoveMember flips the removed flag, keeping the membership history
func (r *PostgresThreadRepository) RemoveMember(threadID uint, memberType string, memberID uint) error {
	res := r.db.Model(&models.ThreadMember{}).
		Where("thread_id = ? AND member_type = ? AND member_id = ? AND removed = ?",
			threadID, memberType, memberID, false).
		Update("removed", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetMessages lists a thread's messages oldest first
func (r *PostgresThreadRepository) GetMessages(threadID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Preload("Sender").
		Where("thread_id = ?", threadID).
		Order("sent_at ASC").
		Find(&messages).Error
	return messages, err
}

// CreateMessage appends a message to a thread
func (r *PostgresThreadRepository) CreateMessage(message *models.Message) error {
	return r.db.Create(message).Error
}
