package models

import "time"

// Thread is a private conversation between members (users or publications).
type Thread struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Subject     string    `json:"subject" gorm:"size:125"`
	CreatedByID uint      `json:"created_by_id" gorm:"index"`
	CreatedBy   *User     `json:"created_by,omitempty" gorm:"foreignKey:CreatedByID"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Message is one post inside a thread.
type Message struct {
	ID       uint       `json:"id" gorm:"primaryKey"`
	ThreadID uint       `json:"thread_id" gorm:"index"`
	SenderID uint       `json:"sender_id" gorm:"index"`
	Sender   *User      `json:"sender,omitempty" gorm:"foreignKey:SenderID"`
	Body     string     `json:"body" gorm:"type:text"`
	SentAt   time.Time  `json:"sent_at" gorm:"autoCreateTime"`
	ReadAt   *time.Time `json:"read_at,omitempty"`
}

// ThreadMember joins a thread to an actor pair. Removal flips the flag so the
// membership history stays queryable.
type ThreadMember struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	ThreadID   uint      `json:"thread_id" gorm:"index;uniqueIndex:idx_thread_member"`
	MemberType string    `json:"member_type" gorm:"size:15;uniqueIndex:idx_thread_member"`
	MemberID   uint      `json:"member_id" gorm:"uniqueIndex:idx_thread_member"`
	Removed    bool      `json:"removed" gorm:"default:false"`
	CreatedAt  time.Time `json:"created_at"`
}

type CreateThreadRequest struct {
	Subject string `json:"subject" validate:"required,min=1,max=125"`
}

type UpdateThreadRequest struct {
	Subject string `json:"subject" validate:"required,min=1,max=125"`
}

type CreateMessageRequest struct {
	Body string `json:"body" validate:"required,min=1,max=10000"`
}

type MemberRequest struct {
	MemberType string `json:"member_type" validate:"required,oneof=user publication"`
	Handler    string `json:"handler" validate:"required"`
}
