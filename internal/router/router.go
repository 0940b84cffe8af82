package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/anonto42/threadline/backend/internal/handlers"
	"github.com/anonto42/threadline/backend/internal/lock"
	"github.com/anonto42/threadline/backend/internal/middleware"
	"github.com/anonto42/threadline/backend/internal/notify"
	"github.com/anonto42/threadline/backend/internal/repositories"
	"github.com/anonto42/threadline/backend/internal/services"
	"github.com/anonto42/threadline/backend/internal/session"
)

// Dependencies are the wired infrastructure the routes are built on
type Dependencies struct {
	Postgres *gorm.DB
	Mongo    *mongo.Database
	Sessions session.Provider
	// Firebase enables the token exchange route when set
	Firebase *session.FirebaseProvider
	Tokens   *session.JWTProvider
	// Sink receives notifications in addition to the notification table
	Sink     notify.Sink
	Locker   lock.Locker
	Observer services.ToggleObserver
	Failures notify.FailureCounter
	Health   map[string]handlers.Pinger
	// ToggleRate and ToggleBurst bound toggles per actor, 0 disables
	ToggleRate  float64
	ToggleBurst int
	Log         *zap.Logger
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	log := deps.Log

	e.HTTPErrorHandler = handlers.ErrorHandler(log)
	e.GET("/health", handlers.NewHealthHandler("engagement-api", deps.Health).HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(deps.Postgres)
	postRepo := repositories.NewMongoPostRepository(deps.Mongo)
	commentRepo := repositories.NewPostgresCommentRepository(deps.Postgres)
	notificationRepo := repositories.NewPostgresNotificationRepository(deps.Postgres)
	engagementRepo := repositories.NewPostgresEngagementRepository(deps.Postgres,
		repositories.WithIsolation(sql.LevelSerializable))

	sink := notify.NewFanOut(log, deps.Failures).Add("store", notify.NewStoreSink(notificationRepo))
	if deps.Sink != nil {
		sink.Add("kafka", deps.Sink)
	}

	// --- Services ---
	var opts []services.EngagementOption
	if deps.Locker != nil {
		opts = append(opts, services.WithLocker(deps.Locker))
	}
	if deps.Observer != nil {
		opts = append(opts, services.WithObserver(deps.Observer))
	}
	engagementSvc := services.NewEngagementService(engagementRepo, services.NewDirectories(postRepo, userRepo), sink, log, opts...)
	feedSvc := services.NewFeedService(postRepo, userRepo, engagementRepo, commentRepo, log)
	profileSvc := services.NewProfileService(userRepo, postRepo, engagementRepo, log)
	commentSvc := services.NewCommentService(commentRepo, postRepo, userRepo, sink, log)
	notificationSvc := services.NewNotificationService(notificationRepo, userRepo)

	// --- Unprotected routes for authentication ---
	if deps.Firebase != nil {
		authHandler := handlers.NewAuthHandler(deps.Firebase, profileSvc, deps.Tokens)
		authHandler.RegisterAuthRoutes(e.Group("/api/v1/auth"))
		log.Info("auth routes configured")
	}

	// Every other route resolves the session; services decide what needs one
	api := e.Group("/api/v1", middleware.Session(deps.Sessions, log))

	handlers.NewEngagementHandler(engagementSvc).RegisterEngagementRoutes(api,
		middleware.ToggleRateLimit(deps.ToggleRate, deps.ToggleBurst))
	handlers.NewFeedHandler(feedSvc).RegisterFeedRoutes(api)
	handlers.NewPostHandler(feedSvc).RegisterPostRoutes(api)
	handlers.NewUserHandler(profileSvc).RegisterProfileRoutes(api)
	handlers.NewCommentHandler(commentSvc).RegisterCommentRoutes(api)
	handlers.NewNotificationHandler(notificationSvc).RegisterNotificationRoutes(api)

	log.Info("all routes configured", zap.Int("routes", len(e.Routes())))
}
