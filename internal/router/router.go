package router

import (
	"log"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/opuslog/backend/internal/handlers"
	"github.com/opuslog/backend/internal/middleware"
	"github.com/opuslog/backend/internal/models"
	"github.com/opuslog/backend/internal/notify"
	"github.com/opuslog/backend/internal/repositories"
	"github.com/opuslog/backend/internal/tasks"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes, injects dependencies and
// starts the background machinery (task queue and lock sweep). It returns the
// queue and scheduler so the caller can stop them on shutdown.
func SetupRoutes(e *echo.Echo, pgdb *gorm.DB, mgClient *mongo.Client, firebaseAuthClient *auth.Client) (*tasks.Queue, *tasks.Scheduler) {
	// AutoMigrate PostgreSQL models
	err := pgdb.AutoMigrate(
		&models.User{},
		&models.Publication{},
		&models.Permission{},
		&models.ContributorList{},
		&models.Tag{},
		&models.WriteUp{},
		&models.WriteUpContributor{},
		&models.Comment{},
		&models.VoteWriteUp{},
		&models.VoteComment{},
		&models.Subscriber{},
		&models.Notification{},
		&models.NotificationSetting{},
		&models.RequestLog{},
		&models.Thread{},
		&models.ThreadMember{},
		&models.Message{},
		&models.GroupWriting{},
		&models.GroupWritingText{},
		&models.GroupWritingLockHistory{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed for all models.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(pgdb)
	publicationRepo := repositories.NewPostgresPublicationRepository(pgdb)
	writeUpRepo := repositories.NewPostgresWriteUpRepository(pgdb)
	commentRepo := repositories.NewPostgresCommentRepository(pgdb)
	voteRepo := repositories.NewPostgresVoteRepository(pgdb)
	subscriptionRepo := repositories.NewPostgresSubscriptionRepository(pgdb)
	notificationRepo := repositories.NewPostgresNotificationRepository(pgdb)
	requestRepo := repositories.NewPostgresRequestRepository(pgdb)
	threadRepo := repositories.NewPostgresThreadRepository(pgdb)
	groupWritingRepo := repositories.NewPostgresGroupWritingRepository(pgdb)
	activityRepo := repositories.NewMongoActivityLogRepository(mgClient.Database("opuslog"))

	// --- Background machinery ---
	queue := tasks.NewQueue(4, 256, activityRepo)
	dispatcher := notify.NewDispatcher(notificationRepo, publicationRepo, userRepo, threadRepo, activityRepo, queue)
	notify.NewCommentProcessor(commentRepo, writeUpRepo, userRepo, dispatcher, queue)
	queue.Start()
	log.Println("Task queue started.")

	scheduler := tasks.NewScheduler()
	if err := scheduler.RegisterLockSweep(groupWritingRepo, activityRepo); err != nil {
		log.Fatalf("Failed to register lock sweep: %v", err)
	}
	scheduler.Start()
	log.Println("Lock sweep scheduled.")

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(userRepo, firebaseAuthClient)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// --- Protected routes (session JWT or Firebase ID token) ---
	api := e.Group("/api/v1")
	api.Use(middleware.Authenticate(firebaseAuthClient, userRepo))

	// --- Handlers ---
	userHandler := handlers.NewUserHandler(userRepo)
	publicationHandler := handlers.NewPublicationHandler(publicationRepo, userRepo, requestRepo, dispatcher)
	writeUpHandler := handlers.NewWriteUpHandler(writeUpRepo, groupWritingRepo, requestRepo, userRepo, dispatcher)
	commentHandler := handlers.NewCommentHandler(commentRepo, writeUpRepo, userRepo, publicationRepo, dispatcher, queue)
	voteHandler := handlers.NewVoteHandler(voteRepo, writeUpRepo, commentRepo, dispatcher)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionRepo, userRepo, publicationRepo, dispatcher)
	threadHandler := handlers.NewThreadHandler(threadRepo, dispatcher)
	memberHandler := handlers.NewMemberHandler(threadRepo, requestRepo, userRepo, publicationRepo, dispatcher)
	messageHandler := handlers.NewMessageHandler(threadRepo, dispatcher)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo)
	requestHandler := handlers.NewRequestHandler(requestRepo, notificationRepo, threadRepo, publicationRepo, writeUpRepo, userRepo)
	groupWritingHandler := handlers.NewGroupWritingHandler(groupWritingRepo, writeUpRepo)

	// User profile, notification feed and request resolution act as the
	// authenticated user, never as a publication.
	userHandler.RegisterProfileRoutes(api)
	api.GET("/users/search", userHandler.SearchUsers)
	publicationHandler.RegisterPublicationRoutes(api)
	notificationHandler.RegisterNotificationRoutes(api)
	requestHandler.RegisterRequestRoutes(api)

	// Everything engagement-shaped runs twice: once with a user actor, once
	// under /pub/:pub_handler with a publication actor behind the permission
	// gate.
	userActor := api.Group("", middleware.ResolveUserActor(userRepo))
	registerEngagementRoutes(userActor, writeUpHandler, commentHandler, voteHandler, subscriptionHandler,
		threadHandler, memberHandler, messageHandler, groupWritingHandler)

	pubActor := api.Group("/pub/:pub_handler", middleware.ResolvePublicationActor(userRepo, publicationRepo))
	registerPublicationActorRoutes(pubActor, writeUpHandler, commentHandler, voteHandler, subscriptionHandler,
		threadHandler, memberHandler, messageHandler, publicationHandler)

	log.Println("All routes configured.")
	return queue, scheduler
}

// registerEngagementRoutes wires the polymorphic-actor routes on a group
// whose middleware has already resolved the actor.
func registerEngagementRoutes(
	g *echo.Group,
	writeUpHandler *handlers.WriteUpHandler,
	commentHandler *handlers.CommentHandler,
	voteHandler *handlers.VoteHandler,
	subscriptionHandler *handlers.SubscriptionHandler,
	threadHandler *handlers.ThreadHandler,
	memberHandler *handlers.MemberHandler,
	messageHandler *handlers.MessageHandler,
	groupWritingHandler *handlers.GroupWritingHandler,
) {
	writeUpHandler.RegisterWriteUpRoutes(g)
	commentHandler.RegisterCommentRoutes(g)
	voteHandler.RegisterVoteRoutes(g)
	subscriptionHandler.RegisterSubscriptionRoutes(g)
	threadHandler.RegisterThreadRoutes(g)
	memberHandler.RegisterMemberRoutes(g)
	messageHandler.RegisterMessageRoutes(g)
	groupWritingHandler.RegisterGroupWritingRoutes(g)
}

// registerPublicationActorRoutes places each engagement surface behind its
// permission table. A method with no entry denies.
func registerPublicationActorRoutes(
	g *echo.Group,
	writeUpHandler *handlers.WriteUpHandler,
	commentHandler *handlers.CommentHandler,
	voteHandler *handlers.VoteHandler,
	subscriptionHandler *handlers.SubscriptionHandler,
	threadHandler *handlers.ThreadHandler,
	memberHandler *handlers.MemberHandler,
	messageHandler *handlers.MessageHandler,
	publicationHandler *handlers.PublicationHandler,
) {
	writeUps := g.Group("", middleware.RequirePermissions(middleware.PermissionTable{
		"GET":  {},
		"POST": {models.PermCanEdit},
	}))
	writeUpHandler.RegisterWriteUpRoutes(writeUps)

	comments := g.Group("", middleware.RequirePermissions(middleware.PermissionTable{
		"GET":    {},
		"POST":   {models.PermComment},
		"DELETE": {models.PermComment},
	}))
	commentHandler.RegisterCommentRoutes(comments)

	votes := g.Group("", middleware.RequirePermissions(middleware.PermissionTable{
		"POST":   {models.PermVote},
		"DELETE": {models.PermVote},
	}))
	voteHandler.RegisterVoteRoutes(votes)

	subscriptions := g.Group("", middleware.RequirePermissions(middleware.PermissionTable{
		"POST":   {models.PermSubscribe},
		"DELETE": {models.PermSubscribe},
	}))
	subscriptionHandler.RegisterSubscriptionRoutes(subscriptions)

	threads := g.Group("", middleware.RequirePermissions(middleware.PermissionTable{
		"GET":   {models.PermReadThreads},
		"POST":  {models.PermCreateThreads},
		"PATCH": {models.PermUpdateThreads},
	}))
	threadHandler.RegisterThreadRoutes(threads)

	members := g.Group("", middleware.RequirePermissions(middleware.PermissionTable{
		"POST":   {models.PermCreateThreadMember},
		"DELETE": {models.PermDeleteThreadMember},
	}))
	memberHandler.RegisterMemberRoutes(members)

	messages := g.Group("", middleware.RequirePermissions(middleware.PermissionTable{
		"GET":  {models.PermReadMessages},
		"POST": {models.PermCreateMessages},
	}))
	messageHandler.RegisterMessageRoutes(messages)

	roster := g.Group("", middleware.RequirePermissions(middleware.PermissionTable{
		"POST": {models.PermCanEdit},
	}))
	publicationHandler.RegisterContributorRoutes(roster)
}
