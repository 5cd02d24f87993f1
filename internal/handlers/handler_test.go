package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/opuslog/backend/internal/middleware"
	"github.com/opuslog/backend/internal/models"
	"github.com/opuslog/backend/internal/notify"
	"github.com/opuslog/backend/internal/repositories"
	"github.com/opuslog/backend/internal/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type handlerEnv struct {
	db          *gorm.DB
	e           *echo.Echo
	userRepo    repositories.UserRepository
	pubRepo     repositories.PublicationRepository
	threadRepo  repositories.ThreadRepository
	commentRepo repositories.CommentRepository
	writeUpRepo repositories.WriteUpRepository
}

// testAuth replaces the JWT middleware: the acting user comes from a header.
func testAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.ParseUint(c.Request().Header.Get("X-User-ID"), 10, 32)
		if err == nil {
			c.Set("userID", uint(id))
		}
		return next(c)
	}
}

// setupHandlerEnv wires the engagement routes against in-memory SQLite and an
// inline queue, mirroring the production route layout.
func setupHandlerEnv(t *testing.T) *handlerEnv {
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
		&models.WriteUp{},
		&models.WriteUpContributor{},
		&models.Comment{},
		&models.Thread{},
		&models.ThreadMember{},
		&models.Message{},
		&models.Notification{},
		&models.NotificationSetting{},
	))

	userRepo := repositories.NewPostgresUserRepository(db)
	pubRepo := repositories.NewPostgresPublicationRepository(db)
	threadRepo := repositories.NewPostgresThreadRepository(db)
	commentRepo := repositories.NewPostgresCommentRepository(db)
	writeUpRepo := repositories.NewPostgresWriteUpRepository(db)
	notificationRepo := repositories.NewPostgresNotificationRepository(db)
	activity := repositories.NewNoopActivityLogRepository()

	queue := tasks.NewInlineQueue(activity)
	dispatcher := notify.NewDispatcher(notificationRepo, pubRepo, userRepo, threadRepo, activity, queue)
	notify.NewCommentProcessor(commentRepo, writeUpRepo, userRepo, dispatcher, queue)

	commentHandler := NewCommentHandler(commentRepo, writeUpRepo, userRepo, pubRepo, dispatcher, queue)
	threadHandler := NewThreadHandler(threadRepo, dispatcher)

	e := echo.New()
	api := e.Group("/api", testAuth)

	userActor := api.Group("", middleware.ResolveUserActor(userRepo))
	commentHandler.RegisterCommentRoutes(userActor)

	pubActor := api.Group("/pub/:pub_handler", middleware.ResolvePublicationActor(userRepo, pubRepo))
	threads := pubActor.Group("", middleware.RequirePermissions(middleware.PermissionTable{
		http.MethodGet:  {models.PermReadThreads},
		http.MethodPost: {models.PermCreateThreads},
	}))
	threadHandler.RegisterThreadRoutes(threads)

	return &handlerEnv{
		db:          db,
		e:           e,
		userRepo:    userRepo,
		pubRepo:     pubRepo,
		threadRepo:  threadRepo,
		commentRepo: commentRepo,
		writeUpRepo: writeUpRepo,
	}
}

func (env *handlerEnv) do(t *testing.T, method, path string, userID uint, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set("X-User-ID", strconv.FormatUint(uint64(userID), 10))
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *handlerEnv) createUser(t *testing.T, handler string) *models.User {
	t.Helper()
	user := &models.User{Name: handler, Handler: handler, Email: handler + "@example.com"}
	require.NoError(t, env.db.Create(user).Error)
	return user
}

func (env *handlerEnv) createWriteUp(t *testing.T, owner *models.User, title, uuid string) *models.WriteUp {
	t.Helper()
	writeUp := &models.WriteUp{
		UUID:      uuid,
		Title:     title,
		Kind:      models.WriteUpArticle,
		OwnerType: models.ActorUser,
		OwnerID:   owner.ID,
	}
	require.NoError(t, env.db.Create(writeUp).Error)
	return writeUp
}

func (env *handlerEnv) notificationsFor(t *testing.T, userID uint) []models.Notification {
	t.Helper()
	var rows []models.Notification
	require.NoError(t, env.db.Where("user_id = ?", userID).Order("id").Find(&rows).Error)
	return rows
}

func TestPublicationThreadRoutesAreGated(t *testing.T) {
	env := setupHandlerEnv(t)

	owner := env.createUser(t, "owner")
	editor := env.createUser(t, "editor")
	outsider := env.createUser(t, "outsider")

	pub := &models.Publication{Name: "The Gazette", Handler: "gazette", CreatorID: owner.ID}
	require.NoError(t, env.pubRepo.CreatePublication(pub, owner))

	require.NoError(t, env.db.Create(&models.Permission{
		Name: "Create threads", CodeName: models.PermCreateThreads,
		PermissionFor: models.PermissionForPublication,
	}).Error)
	require.NoError(t, env.pubRepo.AddContributor(&models.ContributorList{
		PublicationID: pub.ID, ContributorID: editor.ID, Level: models.LevelEditor,
	}, []string{models.PermCreateThreads}))
	// No create_threads grant.
	require.NoError(t, env.pubRepo.AddContributor(&models.ContributorList{
		PublicationID: pub.ID, ContributorID: outsider.ID, Level: models.LevelNoob,
	}, nil))

	payload := map[string]string{"subject": "Editorial agenda"}

	rec := env.do(t, http.MethodPost, "/api/pub/gazette/threads", outsider.ID, payload)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var count int64
	require.NoError(t, env.db.Model(&models.Thread{}).Count(&count).Error)
	assert.Equal(t, int64(0), count, "denied request must not create the thread")

	rec = env.do(t, http.MethodPost, "/api/pub/gazette/threads", editor.ID, payload)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// The owner level passes every gate without explicit grants.
	rec = env.do(t, http.MethodPost, "/api/pub/gazette/threads", owner.ID, payload)
	assert.Equal(t, http.StatusCreated, rec.Code)

	require.NoError(t, env.db.Model(&models.Thread{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestGateDeniesUnconfiguredMethod(t *testing.T) {
	env := setupHandlerEnv(t)

	owner := env.createUser(t, "owner")
	pub := &models.Publication{Name: "The Gazette", Handler: "gazette", CreatorID: owner.ID}
	require.NoError(t, env.pubRepo.CreatePublication(pub, owner))

	rec := env.do(t, http.MethodPost, "/api/pub/gazette/threads", owner.ID, map[string]string{"subject": "Agenda"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var thread models.Thread
	require.NoError(t, env.db.First(&thread).Error)

	// PATCH carries no permission table entry, so even the owner is refused.
	rec = env.do(t, http.MethodPatch, "/api/pub/gazette/threads/"+strconv.FormatUint(uint64(thread.ID), 10),
		owner.ID, map[string]string{"subject": "Renamed"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	require.NoError(t, env.db.First(&thread, thread.ID).Error)
	assert.Equal(t, "Agenda", thread.Subject)
}

func TestCommentAndReplyNotificationFlow(t *testing.T) {
	env := setupHandlerEnv(t)

	author := env.createUser(t, "author")
	commenter := env.createUser(t, "commenter")
	env.createWriteUp(t, author, "Essay", "uuid-essay")

	rec := env.do(t, http.MethodPost, "/api/writeups/uuid-essay/comments", commenter.ID,
		map[string]string{"body": "Lovely pacing"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var comment models.CommentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comment))
	assert.Equal(t, "commenter", comment.ActorHandler)

	authorRows := env.notificationsFor(t, author.ID)
	require.Len(t, authorRows, 1)
	assert.Equal(t, models.KindComment, authorRows[0].Kind)
	assert.Equal(t, "commenter commented on your creation Essay", authorRows[0].Verbose)

	commentID := strconv.FormatUint(uint64(comment.ID), 10)
	rec = env.do(t, http.MethodPost, "/api/comments/"+commentID+"/replies", author.ID,
		map[string]string{"body": "Thanks for reading"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var reply models.CommentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))

	commenterRows := env.notificationsFor(t, commenter.ID)
	require.Len(t, commenterRows, 1)
	assert.Equal(t, models.KindCommentReply, commenterRows[0].Kind)
	assert.Equal(t, "author replied to your comment on Essay", commenterRows[0].Verbose)

	// The inline queue ran post-processing before the response returned.
	parent, err := env.commentRepo.GetCommentByID(comment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), parent.Replies)

	replyID := strconv.FormatUint(uint64(reply.ID), 10)
	rec = env.do(t, http.MethodPost, "/api/comments/"+replyID+"/replies", commenter.ID,
		map[string]string{"body": "And thanks for writing"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMentionInCommentNotifiesTaggedUser(t *testing.T) {
	env := setupHandlerEnv(t)

	author := env.createUser(t, "author")
	commenter := env.createUser(t, "commenter")
	friend := env.createUser(t, "friend")
	env.createWriteUp(t, author, "Essay", "uuid-essay")

	rec := env.do(t, http.MethodPost, "/api/writeups/uuid-essay/comments", commenter.ID,
		map[string]string{"body": "you should read this @friend"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rows := env.notificationsFor(t, friend.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, models.KindCommentTagged, rows[0].Kind)
	assert.Equal(t, "commenter tagged you in a comment on Essay", rows[0].Verbose)
}

func TestDeleteCommentRequiresOwningActor(t *testing.T) {
	env := setupHandlerEnv(t)

	author := env.createUser(t, "author")
	commenter := env.createUser(t, "commenter")
	env.createWriteUp(t, author, "Essay", "uuid-essay")

	rec := env.do(t, http.MethodPost, "/api/writeups/uuid-essay/comments", commenter.ID,
		map[string]string{"body": "Lovely pacing"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var comment models.CommentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comment))

	commentID := strconv.FormatUint(uint64(comment.ID), 10)
	rec = env.do(t, http.MethodDelete, "/api/comments/"+commentID, author.ID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/comments/"+commentID, commenter.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	stored, err := env.commentRepo.GetCommentByID(comment.ID)
	require.NoError(t, err)
	assert.True(t, stored.Deleted)
	assert.Equal(t, models.DeletedCommentPlaceholder, stored.DisplayBody())
}
