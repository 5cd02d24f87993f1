package repositories

import (
	"errors"

	"github.com/opuslog/backend/internal/models"
	"gorm.io/gorm"
)

// VoteRepository defines the interface for vote data operations. Votes are
// upserts against the unique (actor, target) row: setting the same value twice
// is a no-op, nil retracts while keeping the row.
type VoteRepository interface {
	UpsertWriteUpVote(actor models.Actor, writeUpID uint, voteType *bool) (VoteChange, error)
	UpsertCommentVote(actor models.Actor, commentID uint, voteType *bool) (VoteChange, error)
	GetWriteUpVote(actor models.Actor, writeUpID uint) (*models.VoteWriteUp, error)
}

// VoteChange reports what an upsert did: whether the stored value changed and
// what it was before. Handlers use it to decide on notification and counter
// maintenance.
type VoteChange struct {
	Changed  bool
	Created  bool
	Previous *bool
}

// PostgresVoteRepository implements VoteRepository for PostgreSQL
type PostgresVoteRepository struct {
	db *gorm.DB
}

// NewPostgresVoteRepository creates a new PostgresVoteRepository
func NewPostgresVoteRepository(db *gorm.DB) *PostgresVoteRepository {
	return &PostgresVoteRepository{db: db}
}

func actingUserID(actor models.Actor) *uint {
	if actor.IsPublication() {
		id := actor.Contributor.ContributorID
		return &id
	}
	return nil
}

// UpsertWriteUpVote records, changes or retracts a vote on a write-up.
// Concurrent first votes for the same (actor, write-up) serialize through the
// unique index: the loser of the race re-reads the winner's row.
func (r *PostgresVoteRepository) UpsertWriteUpVote(actor models.Actor, writeUpID uint, voteType *bool) (VoteChange, error) {
	var change VoteChange
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var vote models.VoteWriteUp
		err := tx.Where("actor_type = ? AND actor_id = ? AND write_up_id = ?",
			actor.Type(), actor.ID(), writeUpID).First(&vote).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			vote = models.VoteWriteUp{
				ActorType:         actor.Type(),
				ActorID:           actor.ID(),
				PublicationUserID: actingUserID(actor),
				WriteUpID:         writeUpID,
				VoteType:          voteType,
			}
			if createErr := tx.Create(&vote).Error; createErr != nil {
				// lost a get-or-create race; fall through to the update path
				if readErr := tx.Where("actor_type = ? AND actor_id = ? AND write_up_id = ?",
					actor.Type(), actor.ID(), writeUpID).First(&vote).Error; readErr != nil {
					return createErr
				}
			} else {
				change = VoteChange{Changed: voteType != nil, Created: true}
				return nil
			}
		} else if err != nil {
			return err
		}

		change.Previous = vote.VoteType
		if boolPtrEqual(vote.VoteType, voteType) {
			return nil
		}
		change.Changed = true
		return tx.Model(&vote).Update("vote_type", voteType).Error
	})
	return change, err
}

// UpsertCommentVote records, changes or retracts a vote on a comment.
func (r *PostgresVoteRepository) UpsertCommentVote(actor models.Actor, commentID uint, voteType *bool) (VoteChange, error) {
	var change VoteChange
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var vote models.VoteComment
		err := tx.Where("actor_type = ? AND actor_id = ? AND comment_id = ?",
			actor.Type(), actor.ID(), commentID).First(&vote).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			vote = models.VoteComment{
				ActorType:         actor.Type(),
				ActorID:           actor.ID(),
				PublicationUserID: actingUserID(actor),
				CommentID:         commentID,
				VoteType:          voteType,
			}
			if createErr := tx.Create(&vote).Error; createErr != nil {
				if readErr := tx.Where("actor_type = ? AND actor_id = ? AND comment_id = ?",
					actor.Type(), actor.ID(), commentID).First(&vote).Error; readErr != nil {
					return createErr
				}
			} else {
				change = VoteChange{Changed: voteType != nil, Created: true}
				return nil
			}
		} else if err != nil {
			return err
		}

		change.Previous = vote.VoteType
		if boolPtrEqual(vote.VoteType, voteType) {
			return nil
		}
		change.Changed = true
		return tx.Model(&vote).Update("vote_type", voteType).Error
	})
	return change, err
}

// GetWriteUpVote retrieves the vote row for an actor on a write-up
func (r *PostgresVoteRepository) GetWriteUpVote(actor models.Actor, writeUpID uint) (*models.VoteWriteUp, error) {
	var vote models.VoteWriteUp
	err := r.db.Where("actor_type = ? AND actor_id = ? AND write_up_id = ?",
		actor.Type(), actor.ID(), writeUpID).First(&vote).Error
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func boolPtrEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
