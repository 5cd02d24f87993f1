package models

import "time"

// Lock history statuses.
const (
	LockActive   = "A"
	LockVoid     = "V"
	LockComplete = "C"
)

// GroupWriting is a collaborative write-up event where users sequentially
// extend a single article. Concurrent development is avoided with an advisory
// lock: the writing client refreshes an X heartbeat frequently and a slower Y
// (captcha) timer; the periodic sweep voids the session when either lapses.
type GroupWriting struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	WriteUpID   uint      `json:"write_up_id" gorm:"uniqueIndex"`
	ClosedGroup bool      `json:"closed_group" gorm:"default:false"`
	Active      bool      `json:"active" gorm:"default:true"`
	Lock        bool      `json:"lock" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GroupWritingText stores each sequenced contribution. Once written, text is
// immutable unless it is the latest and the lock is open.
type GroupWritingText struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ArticleID uint      `json:"article_id" gorm:"index;uniqueIndex:idx_group_writing_seq"`
	Sequence  uint      `json:"sequence" gorm:"uniqueIndex:idx_group_writing_seq"`
	WriterID  uint      `json:"writer_id" gorm:"index"`
	Text      string    `json:"text" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupWritingLockHistory is the lease bookkeeping for one locking session.
// At most one row per article should be Active at a time; the sweep enforces
// expiry, not the store.
type GroupWritingLockHistory struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	ArticleID     uint      `json:"article_id" gorm:"index"`
	LockHolderID  uint      `json:"lock_holder_id" gorm:"index"`
	LockStartTime time.Time `json:"lock_start_time"`
	LastXRequest  time.Time `json:"last_x_request"`
	LastYRequest  time.Time `json:"last_y_request"`
	Status        string    `json:"status" gorm:"size:1;default:'A';index"`
}

type ExtendGroupWritingRequest struct {
	Text string `json:"text" validate:"required,min=1"`
}
