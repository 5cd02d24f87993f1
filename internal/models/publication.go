package models

import (
	"time"

	"gorm.io/gorm"
)

// Publication is a multi-contributor publishing entity. The creator is its
// sole owner; every other activity of a publication is attached through
// ContributorList rows, never to the publication row itself.
type Publication struct {
	gorm.Model `json:"-"`
	ID         uint   `json:"id" gorm:"primaryKey"`
	CreatorID  uint   `json:"creator_id" gorm:"index"`
	Name       string `json:"name"`
	Handler    string `json:"handler" gorm:"uniqueIndex;size:50"`
	XP         int64  `json:"xp" gorm:"default:0"`
	Money      int64  `json:"money" gorm:"default:0"`
}

// Contributor levels. Owner implicitly satisfies every permission code.
const (
	LevelOwner         = "O"
	LevelAdministrator = "A"
	LevelEditor        = "E"
	LevelNoob          = "N"
)

// ContributorList joins a user to a publication with a permission code set.
// All publication-scoped authorization reduces to an existence query against
// this table narrowed by each required code.
type ContributorList struct {
	ID            uint         `json:"id" gorm:"primaryKey"`
	PublicationID uint         `json:"publication_id" gorm:"index;uniqueIndex:idx_publication_contributor"`
	ContributorID uint         `json:"contributor_id" gorm:"index;uniqueIndex:idx_publication_contributor"`
	Level         string       `json:"level" gorm:"size:1"`
	ShareXP       float64      `json:"share_xp" gorm:"default:0"`
	ShareMoney    float64      `json:"share_money" gorm:"default:0"`
	Publication   *Publication `json:"publication,omitempty" gorm:"foreignKey:PublicationID"`
	Contributor   *User        `json:"contributor,omitempty" gorm:"foreignKey:ContributorID"`
	Permissions   []Permission `json:"permissions,omitempty" gorm:"many2many:contributor_permissions;"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Permission scopes.
const (
	PermissionForWriteUp     = "W"
	PermissionForPublication = "P"
	PermissionForBoth        = "B"
)

// Permission code names seeded by cmd/initsite and referenced by the
// per-route permission tables.
const (
	PermReceiveNotification = "receive_notification"
	PermReadThreads         = "read_threads"
	PermCreateThreads       = "create_threads"
	PermUpdateThreads       = "update_threads"
	PermCreateThreadMember  = "create_thread_member"
	PermDeleteThreadMember  = "delete_thread_member"
	PermReadMessages        = "read_messages"
	PermCreateMessages      = "create_messages"
	PermComment             = "comment"
	PermVote                = "vote"
	PermSubscribe           = "subscribe"
	PermCanEdit             = "can_edit"
)

// Permission defines a grantable capability for a contributor over a
// publication or a write-up.
type Permission struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Name          string    `json:"name" gorm:"size:100"`
	CodeName      string    `json:"code_name" gorm:"uniqueIndex;size:30"`
	HelpText      string    `json:"help_text,omitempty" gorm:"size:250"`
	PermissionFor string    `json:"permission_for" gorm:"size:1"`
	CreatedAt     time.Time `json:"created_at"`
}

type CreatePublicationRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=150"`
	Handler string `json:"handler" validate:"required,min=3,max=50,alphanum"`
}

type AddContributorRequest struct {
	Handler     string   `json:"handler" validate:"required"`
	Level       string   `json:"level" validate:"required,oneof=A E N"`
	Permissions []string `json:"permissions" validate:"required,min=1"`
}
