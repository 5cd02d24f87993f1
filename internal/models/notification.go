package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification kinds, synchronized with the frontend.
const (
	KindComment         = "CO"
	KindCommentReply    = "CR"
	KindCommentTagged   = "CT"
	KindUpVoteComment   = "UC"
	KindDownVoteComment = "DC"
	KindSubscribe       = "SU"
	KindUnsubscribe     = "US"
	KindUpVoteWriteUp   = "UW"
	KindDownVoteWriteUp = "DW"
	KindNewThread       = "NT"
	KindUpdateThread    = "UT"
	KindRemoveMember    = "DM"
	KindNewMessage      = "NM"
	KindRequest         = "RL"
)

// Template keys used by the dispatcher when rendering Verbose.
const (
	TemplateSingle              = "single"
	TemplateMany                = "many"
	TemplateInternalPublication = "internal_publication"
	TemplateDirectedTo          = "directed_to"
	TemplateAddThreadMember     = "add_thread_member"
	TemplateAddThreadMemberPub  = "add_thread_member_internal_publication"
)

// Notification is one delivered-or-pending feed row for a user. Publication
// notifications fan out to one row per eligible contributor. While a row is
// undelivered, repeat events with the same (user, target, kind) increment
// AddOnActorCount in place and re-render Verbose with the "many" template
// variant; delivered rows never aggregate further.
//
// Data is the free-form payload whose keys are referenced positionally by each
// kind's template argument list, e.g.
//
//	{"actor_handler": "ada", "contributor": "grace", "acted_on": "My Essay"}
//
// Context carries display hints (image, level, redirect-url).
type Notification struct {
	ID              uint              `json:"id" gorm:"primaryKey"`
	UserID          uint              `json:"user_id" gorm:"index:idx_notification_agg"`
	Kind            string            `json:"kind" gorm:"size:3;index:idx_notification_agg"`
	TargetType      string            `json:"target_type" gorm:"size:30;index:idx_notification_agg"`
	TargetID        uint              `json:"target_id" gorm:"index:idx_notification_agg"`
	Data            datatypes.JSONMap `json:"data"`
	Context         datatypes.JSONMap `json:"context"`
	AddOnActorCount int               `json:"add_on_actor_count" gorm:"default:0"`
	Notified        bool              `json:"notified" gorm:"default:false;index:idx_notification_agg"`
	Verbose         string            `json:"verbose" gorm:"size:250"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// NotificationSetting stores, per user and optionally per publication
// contribution, whether a notification kind should be delivered at all.
// Absence of a row means deliver.
type NotificationSetting struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	UserID        uint      `json:"user_id" gorm:"uniqueIndex:idx_notification_setting"`
	PublicationID *uint     `json:"publication_id,omitempty" gorm:"uniqueIndex:idx_notification_setting"`
	Kind          string    `json:"kind" gorm:"size:3;uniqueIndex:idx_notification_setting"`
	Receive       bool      `json:"receive" gorm:"default:true"`
	UpdatedAt     time.Time `json:"updated_at"`
}
