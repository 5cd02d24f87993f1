package notify

import (
	"testing"

	"github.com/opuslog/backend/internal/models"
	"github.com/opuslog/backend/internal/repositories"
	"github.com/opuslog/backend/internal/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupDispatcher wires a Dispatcher onto an inline queue and an in-memory
// SQLite database so every Notify* call runs to completion before returning.
func setupDispatcher(t *testing.T) (*gorm.DB, *Dispatcher) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Publication{},
		&models.Permission{},
		&models.ContributorList{},
		&models.Thread{},
		&models.ThreadMember{},
		&models.Notification{},
		&models.NotificationSetting{},
	))

	activity := repositories.NewNoopActivityLogRepository()
	queue := tasks.NewInlineQueue(activity)
	dispatcher := NewDispatcher(
		repositories.NewPostgresNotificationRepository(db),
		repositories.NewPostgresPublicationRepository(db),
		repositories.NewPostgresUserRepository(db),
		repositories.NewPostgresThreadRepository(db),
		activity,
		queue,
	)
	return db, dispatcher
}

func createUser(t *testing.T, db *gorm.DB, handler string) *models.User {
	t.Helper()
	user := &models.User{Name: handler, Handler: handler, Email: handler + "@example.com"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func notificationsFor(t *testing.T, db *gorm.DB, userID uint) []models.Notification {
	t.Helper()
	var rows []models.Notification
	require.NoError(t, db.Where("user_id = ?", userID).Order("id").Find(&rows).Error)
	return rows
}

func TestNotifySingleRendersAndPersists(t *testing.T) {
	db, dispatcher := setupDispatcher(t)
	owner := createUser(t, db, "owner")

	dispatcher.NotifySingle(Ref{Type: models.ActorUser, ID: owner.ID}, Event{
		Kind:         models.KindComment,
		Target:       Ref{Type: "write_up", ID: 9},
		Data:         map[string]interface{}{"acted_on": "First Light"},
		ActorHandler: "ada",
		RedirectURL:  "/writeup/abc",
	})

	rows := notificationsFor(t, db, owner.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, models.KindComment, rows[0].Kind)
	assert.Equal(t, "write_up", rows[0].TargetType)
	assert.Equal(t, uint(9), rows[0].TargetID)
	assert.Equal(t, "ada commented on your creation First Light", rows[0].Verbose)
	assert.Equal(t, "ada", rows[0].Data["actor_handler"])
	assert.Equal(t, "/writeup/abc", rows[0].Context["redirect-url"])
	assert.False(t, rows[0].Notified)
}

func TestRepeatEventAggregatesIntoOpenRow(t *testing.T) {
	db, dispatcher := setupDispatcher(t)
	owner := createUser(t, db, "owner")

	recipient := Ref{Type: models.ActorUser, ID: owner.ID}
	event := Event{
		Kind:   models.KindComment,
		Target: Ref{Type: "write_up", ID: 9},
		Data:   map[string]interface{}{"acted_on": "First Light"},
	}

	event.ActorHandler = "ada"
	dispatcher.NotifySingle(recipient, event)
	event.ActorHandler = "bob"
	dispatcher.NotifySingle(recipient, event)
	event.ActorHandler = "eve"
	dispatcher.NotifySingle(recipient, event)

	rows := notificationsFor(t, db, owner.ID)
	require.Len(t, rows, 1, "repeat events for the same target and kind share one row")
	assert.Equal(t, 2, rows[0].AddOnActorCount)
	assert.Equal(t, "ada and 2 others commented on your creation First Light", rows[0].Verbose)
}

func TestAcknowledgedRowStartsFreshAggregation(t *testing.T) {
	db, dispatcher := setupDispatcher(t)
	owner := createUser(t, db, "owner")

	recipient := Ref{Type: models.ActorUser, ID: owner.ID}
	event := Event{
		Kind:         models.KindComment,
		Target:       Ref{Type: "write_up", ID: 9},
		Data:         map[string]interface{}{"acted_on": "First Light"},
		ActorHandler: "ada",
	}
	dispatcher.NotifySingle(recipient, event)

	require.NoError(t, db.Model(&models.Notification{}).
		Where("user_id = ?", owner.ID).Update("notified", true).Error)

	event.ActorHandler = "bob"
	dispatcher.NotifySingle(recipient, event)

	rows := notificationsFor(t, db, owner.ID)
	require.Len(t, rows, 2)
	assert.Equal(t, 0, rows[1].AddOnActorCount)
	assert.Equal(t, "bob commented on your creation First Light", rows[1].Verbose)
}

func TestNoSelfNotification(t *testing.T) {
	db, dispatcher := setupDispatcher(t)
	owner := createUser(t, db, "owner")

	dispatcher.NotifySingle(Ref{Type: models.ActorUser, ID: owner.ID}, Event{
		Kind:         models.KindComment,
		Target:       Ref{Type: "write_up", ID: 9},
		Data:         map[string]interface{}{"acted_on": "First Light"},
		ActorHandler: owner.Handler,
	})

	assert.Empty(t, notificationsFor(t, db, owner.ID))
}

func TestSettingsSuppressDelivery(t *testing.T) {
	db, dispatcher := setupDispatcher(t)
	owner := createUser(t, db, "owner")

	require.NoError(t, db.Create(&models.NotificationSetting{
		UserID: owner.ID, Kind: models.KindComment, Receive: false,
	}).Error)

	dispatcher.NotifySingle(Ref{Type: models.ActorUser, ID: owner.ID}, Event{
		Kind:         models.KindComment,
		Target:       Ref{Type: "write_up", ID: 9},
		Data:         map[string]interface{}{"acted_on": "First Light"},
		ActorHandler: "ada",
	})

	assert.Empty(t, notificationsFor(t, db, owner.ID))
}

func TestPublicationFanOutSkipsActingContributor(t *testing.T) {
	db, dispatcher := setupDispatcher(t)
	pubRepo := repositories.NewPostgresPublicationRepository(db)

	creator := createUser(t, db, "creator")
	editor := createUser(t, db, "editor")
	lurker := createUser(t, db, "lurker")

	pub := &models.Publication{Name: "The Gazette", Handler: "gazette", CreatorID: creator.ID}
	require.NoError(t, pubRepo.CreatePublication(pub, creator))

	require.NoError(t, db.Create(&models.Permission{
		Name: "Receive notification", CodeName: models.PermReceiveNotification,
		PermissionFor: models.PermissionForPublication,
	}).Error)
	require.NoError(t, pubRepo.AddContributor(&models.ContributorList{
		PublicationID: pub.ID, ContributorID: editor.ID, Level: models.LevelEditor,
	}, []string{models.PermReceiveNotification}))
	// No receive_notification, never notified through the publication.
	require.NoError(t, pubRepo.AddContributor(&models.ContributorList{
		PublicationID: pub.ID, ContributorID: lurker.ID, Level: models.LevelNoob,
	}, nil))

	dispatcher.NotifySingle(Ref{Type: models.ActorPublication, ID: pub.ID}, Event{
		Kind:         models.KindComment,
		Target:       Ref{Type: "write_up", ID: 3},
		Data:         map[string]interface{}{"acted_on": "Dispatch"},
		ActorHandler: "ada",
		Contributor:  creator.Handler,
		RedirectURL:  "/writeup/xyz",
	})

	assert.Empty(t, notificationsFor(t, db, creator.ID), "acting contributor is skipped")
	assert.Empty(t, notificationsFor(t, db, lurker.ID))

	rows := notificationsFor(t, db, editor.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, "gazette", rows[0].Data["publication"])
	assert.Equal(t, "/pub/gazette/writeup/xyz", rows[0].Context["redirect-url"])
}

func TestNotifySelfUsesInternalPublicationTemplate(t *testing.T) {
	db, dispatcher := setupDispatcher(t)
	pubRepo := repositories.NewPostgresPublicationRepository(db)

	creator := createUser(t, db, "creator")
	coOwner := createUser(t, db, "coowner")

	pub := &models.Publication{Name: "The Gazette", Handler: "gazette", CreatorID: creator.ID}
	require.NoError(t, pubRepo.CreatePublication(pub, creator))
	require.NoError(t, pubRepo.AddContributor(&models.ContributorList{
		PublicationID: pub.ID, ContributorID: coOwner.ID, Level: models.LevelOwner,
	}, nil))

	dispatcher.NotifySelf(pub.ID, Event{
		Kind:         models.KindComment,
		Target:       Ref{Type: "write_up", ID: 3},
		Data:         map[string]interface{}{"acted_on": "Dispatch"},
		ActorHandler: "gazette",
		Contributor:  creator.Handler,
	})

	rows := notificationsFor(t, db, coOwner.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, "'creator' of Publication 'gazette' commented on creation 'Dispatch'", rows[0].Verbose)
}

func TestNotifyThreadMembersSkipsRemoved(t *testing.T) {
	db, dispatcher := setupDispatcher(t)
	threadRepo := repositories.NewPostgresThreadRepository(db)

	creator := createUser(t, db, "creator")
	member := createUser(t, db, "member")
	gone := createUser(t, db, "gone")

	thread := &models.Thread{Subject: "Planning", CreatedByID: creator.ID}
	require.NoError(t, threadRepo.CreateThreadWithMember(thread, models.UserActor(creator)))
	require.NoError(t, threadRepo.AddMember(thread.ID, models.ActorUser, member.ID))
	require.NoError(t, threadRepo.AddMember(thread.ID, models.ActorUser, gone.ID))
	require.NoError(t, threadRepo.RemoveMember(thread.ID, models.ActorUser, gone.ID))

	dispatcher.NotifyThreadMembers(thread.ID, Event{
		Kind:         models.KindNewMessage,
		Target:       Ref{Type: "thread", ID: thread.ID},
		Data:         map[string]interface{}{"acted_on": "Planning"},
		ActorHandler: creator.Handler,
	})

	assert.Empty(t, notificationsFor(t, db, creator.ID), "sender is suppressed by handler")
	assert.Empty(t, notificationsFor(t, db, gone.ID))

	rows := notificationsFor(t, db, member.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, "'creator' sent a message on thread 'Planning'", rows[0].Verbose)
}

func TestExplicitVerboseBypassesTemplatesAndAggregation(t *testing.T) {
	db, dispatcher := setupDispatcher(t)
	owner := createUser(t, db, "owner")

	event := Event{
		Kind:         models.KindRequest,
		Target:       Ref{Type: "thread", ID: 4},
		ActorHandler: "ada",
		Verbose:      "custom wording",
	}
	dispatcher.NotifySingle(Ref{Type: models.ActorUser, ID: owner.ID}, event)
	dispatcher.NotifySingle(Ref{Type: models.ActorUser, ID: owner.ID}, event)

	rows := notificationsFor(t, db, owner.ID)
	require.Len(t, rows, 2)
	assert.Equal(t, "custom wording", rows[0].Verbose)
	assert.Equal(t, 0, rows[1].AddOnActorCount)
}
