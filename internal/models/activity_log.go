package models

import "time"

// Activity log levels.
const (
	LogInfo     = "I"
	LogError    = "E"
	LogCritical = "C"
	LogDebug    = "D"
	LogWarning  = "W"
)

// ActivityLog is the free-form postmortem record persisted to MongoDB. Actor
// is empty for anonymous or system-level entries. MetaInfo carries the view
// name, call arguments, message and any extra context the call site attaches;
// clients never see this detail, only an opaque failure response.
type ActivityLog struct {
	Level      string                 `bson:"level" json:"level"`
	Actor      string                 `bson:"actor,omitempty" json:"actor,omitempty"`
	Entity     string                 `bson:"entity,omitempty" json:"entity,omitempty"`
	ActType    string                 `bson:"act_type" json:"act_type"`
	MetaInfo   map[string]interface{} `bson:"meta_info,omitempty" json:"meta_info,omitempty"`
	CreateTime time.Time              `bson:"create_time" json:"create_time"`
}
