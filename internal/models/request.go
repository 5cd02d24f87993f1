package models

import (
	"time"

	"gorm.io/datatypes"
)

// RequestLog statuses.
const (
	RequestPending  = "P"
	RequestAccepted = "A"
	RequestRejected = "R"
)

// Actions a pending request can resolve into. The set is closed: each action
// has a typed handler registered in the request handler's dispatch table, so a
// row never stores a code path.
const (
	ActionAddThreadMember       = "add_thread_member"
	ActionAddPublicationContrib = "add_publication_contributor"
	ActionAddWriteUpContributor = "add_write_up_contributor"
)

// RequestLog is the generic "A asks B for something on C" record behind every
// approval flow: thread membership invites, contribution requests for
// publications and write-ups. The unique index over (for, to, status) blocks
// a second pending request for the same pair; resolved rows keep the history.
type RequestLog struct {
	ID              uint              `json:"id" gorm:"primaryKey"`
	RequestForType  string            `json:"request_for_type" gorm:"size:30;uniqueIndex:idx_request_pair"`
	RequestForID    uint              `json:"request_for_id" gorm:"uniqueIndex:idx_request_pair"`
	RequestFromType string            `json:"request_from_type" gorm:"size:15"`
	RequestFromID   uint              `json:"request_from_id"`
	RequestToType   string            `json:"request_to_type" gorm:"size:15;uniqueIndex:idx_request_pair"`
	RequestToID     uint              `json:"request_to_id" gorm:"uniqueIndex:idx_request_pair"`
	Status          string            `json:"status" gorm:"size:1;default:'P';uniqueIndex:idx_request_pair"`
	Action          string            `json:"action" gorm:"size:40"`
	Params          datatypes.JSONMap `json:"params"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

type ResolveRequestRequest struct {
	Answer string `json:"answer" validate:"required,oneof=A R"`
}
