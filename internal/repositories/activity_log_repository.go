package repositories

import (
	"context"
	"log"
	"time"

	"github.com/opuslog/backend/internal/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// ActivityLogRepository records free-form actor/entity activity and internal
// failures for postmortem inspection. Callers treat it as fire-and-forget: a
// logging failure must never break the request that tried to log.
type ActivityLogRepository interface {
	Log(level, actor, entity, actType string, metaInfo map[string]interface{})
}

// MongoActivityLogRepository implements ActivityLogRepository on MongoDB
type MongoActivityLogRepository struct {
	collection *mongo.Collection
}

// NewMongoActivityLogRepository creates a new MongoActivityLogRepository
func NewMongoActivityLogRepository(db *mongo.Database) *MongoActivityLogRepository {
	return &MongoActivityLogRepository{collection: db.Collection("activity_logs")}
}

// Log inserts one activity entry. Errors are printed and swallowed.
func (r *MongoActivityLogRepository) Log(level, actor, entity, actType string, metaInfo map[string]interface{}) {
	entry := models.ActivityLog{
		Level:      level,
		Actor:      actor,
		Entity:     entity,
		ActType:    actType,
		MetaInfo:   metaInfo,
		CreateTime: time.Now(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		log.Printf("activity log insert failed: %v", err)
	}
}

// NoopActivityLogRepository discards entries. Used in tests and when Mongo is
// not configured.
type NoopActivityLogRepository struct{}

func NewNoopActivityLogRepository() *NoopActivityLogRepository {
	return &NoopActivityLogRepository{}
}

func (r *NoopActivityLogRepository) Log(level, actor, entity, actType string, metaInfo map[string]interface{}) {
}
