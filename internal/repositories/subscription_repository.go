package repositories

import (
	"errors"

	"github.com/opuslog/backend/internal/models"
	"gorm.io/gorm"
)

// SubscriptionRepository defines the interface for subscription data
// operations. Subscribe and unsubscribe toggle the boolean on the unique
// (actor, subscribed) row; rows are never deleted.
type SubscriptionRepository interface {
	SetSubscription(actor models.Actor, subscribedType string, subscribedID uint, on bool) (created bool, err error)
	GetSubscription(actor models.Actor, subscribedType string, subscribedID uint) (*models.Subscriber, error)
	GetSubscribersOf(subscribedType string, subscribedID uint) ([]models.Subscriber, error)
}

// PostgresSubscriptionRepository implements SubscriptionRepository for PostgreSQL
type PostgresSubscriptionRepository struct {
	db *gorm.DB
}

// NewPostgresSubscriptionRepository creates a new PostgresSubscriptionRepository
func NewPostgresSubscriptionRepository(db *gorm.DB) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{db: db}
}

// SetSubscription upserts the subscription row with the given state. Reports
// whether a new row was created (first ever subscribe), which drives the
// notification decision.
func (r *PostgresSubscriptionRepository) SetSubscription(actor models.Actor, subscribedType string, subscribedID uint, on bool) (bool, error) {
	var created bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var sub models.Subscriber
		err := tx.Where("actor_type = ? AND actor_id = ? AND subscribed_type = ? AND subscribed_id = ?",
			actor.Type(), actor.ID(), subscribedType, subscribedID).First(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sub = models.Subscriber{
				ActorType:         actor.Type(),
				ActorID:           actor.ID(),
				PublicationUserID: actingUserID(actor),
				SubscribedType:    subscribedType,
				SubscribedID:      subscribedID,
				Subscribed:        on,
			}
			if createErr := tx.Create(&sub).Error; createErr != nil {
				if readErr := tx.Where("actor_type = ? AND actor_id = ? AND subscribed_type = ? AND subscribed_id = ?",
					actor.Type(), actor.ID(), subscribedType, subscribedID).First(&sub).Error; readErr != nil {
					return createErr
				}
			} else {
				created = true
				return nil
			}
		} else if err != nil {
			return err
		}
		return tx.Model(&sub).Update("subscribed", on).Error
	})
	return created, err
}

// GetSubscription retrieves the subscription row for an actor on a target
func (r *PostgresSubscriptionRepository) GetSubscription(actor models.Actor, subscribedType string, subscribedID uint) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := r.db.Where("actor_type = ? AND actor_id = ? AND subscribed_type = ? AND subscribed_id = ?",
		actor.Type(), actor.ID(), subscribedType, subscribedID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetSubscribersOf lists the active subscribers of an entity
func (r *PostgresSubscriptionRepository) GetSubscribersOf(subscribedType string, subscribedID uint) ([]models.Subscriber, error) {
	var subs []models.Subscriber
	err := r.db.Where("subscribed_type = ? AND subscribed_id = ? AND subscribed = ?",
		subscribedType, subscribedID, true).Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}
