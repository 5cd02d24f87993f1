package models

import "time"

// DeletedCommentPlaceholder is substituted for the body of soft-deleted
// comments at render time; the stored text is never removed.
const DeletedCommentPlaceholder = "[deleted]"

// VoteWriteUp logs votes on write-ups. One row per (actor, write-up); a
// retracted vote keeps the row with VoteType nil so history and uniqueness
// survive the retraction.
type VoteWriteUp struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	ActorType         string    `json:"actor_type" gorm:"size:15;uniqueIndex:idx_vote_write_up_actor"`
	ActorID           uint      `json:"actor_id" gorm:"uniqueIndex:idx_vote_write_up_actor"`
	PublicationUserID *uint     `json:"publication_user_id,omitempty"` // acting user when the vote came via a publication
	WriteUpID         uint      `json:"write_up_id" gorm:"index;uniqueIndex:idx_vote_write_up_actor"`
	VoteType          *bool     `json:"vote_type"` // true up, false down, nil retracted
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// VoteComment logs votes on comments, same shape as VoteWriteUp.
type VoteComment struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	ActorType         string    `json:"actor_type" gorm:"size:15;uniqueIndex:idx_vote_comment_actor"`
	ActorID           uint      `json:"actor_id" gorm:"uniqueIndex:idx_vote_comment_actor"`
	PublicationUserID *uint     `json:"publication_user_id,omitempty"`
	CommentID         uint      `json:"comment_id" gorm:"index;uniqueIndex:idx_vote_comment_actor"`
	VoteType          *bool     `json:"vote_type"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Comment on a write-up. Replies nest exactly one level; the column permits
// deeper chains but handlers reject replies to replies. The counters are
// denormalized and maintained by the post_process_comment task with atomic
// increments.
type Comment struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	WriteUpID         uint      `json:"write_up_id" gorm:"index"`
	ActorType         string    `json:"actor_type" gorm:"size:15;index:idx_comment_actor"`
	ActorID           uint      `json:"actor_id" gorm:"index:idx_comment_actor"`
	PublicationUserID *uint     `json:"publication_user_id,omitempty"`
	Body              string    `json:"body" gorm:"type:text"`
	ReplyToID         *uint     `json:"reply_to_id,omitempty" gorm:"index"`
	Deleted           bool      `json:"deleted" gorm:"default:false"`
	UpVotes           int64     `json:"up_votes" gorm:"default:0"`
	DownVotes         int64     `json:"down_votes" gorm:"default:0"`
	Replies           int64     `json:"replies" gorm:"default:0"`
	CreatedAt         time.Time `json:"created_at"`
}

// DisplayBody hides the text of soft-deleted comments.
func (c *Comment) DisplayBody() string {
	if c.Deleted {
		return DeletedCommentPlaceholder
	}
	return c.Body
}

// Subscriber links a subscribing actor to a subscribed entity (user or
// publication). Toggling reuses the unique row instead of deleting it.
type Subscriber struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	ActorType         string    `json:"actor_type" gorm:"size:15;uniqueIndex:idx_subscriber_pair"`
	ActorID           uint      `json:"actor_id" gorm:"uniqueIndex:idx_subscriber_pair"`
	PublicationUserID *uint     `json:"publication_user_id,omitempty"`
	SubscribedType    string    `json:"subscribed_type" gorm:"size:15;uniqueIndex:idx_subscriber_pair"`
	SubscribedID      uint      `json:"subscribed_id" gorm:"uniqueIndex:idx_subscriber_pair"`
	Subscribed        bool      `json:"subscribed" gorm:"default:true"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type CreateCommentRequest struct {
	Body string `json:"body" validate:"required,min=1,max=5000"`
}

type VoteRequest struct {
	// nil retracts, true up votes, false down votes
	VoteType *bool `json:"vote_type"`
}

type SubscribeRequest struct {
	SubscribedType string `json:"subscribed_type" validate:"required,oneof=user publication"`
	Handler        string `json:"handler" validate:"required"`
}

// CommentResponse is the serialized comment with the deletion placeholder
// applied and the acting entity resolved to a handle.
type CommentResponse struct {
	ID           uint      `json:"id"`
	WriteUpUUID  string    `json:"write_up_uuid"`
	ActorHandler string    `json:"actor_handler"`
	Body         string    `json:"body"`
	ReplyToID    *uint     `json:"reply_to_id,omitempty"`
	Deleted      bool      `json:"deleted"`
	UpVotes      int64     `json:"up_votes"`
	DownVotes    int64     `json:"down_votes"`
	Replies      int64     `json:"replies"`
	CreatedAt    time.Time `json:"created_at"`
}
