package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anonto42/threadline/backend/internal/handlers"
	"github.com/anonto42/threadline/backend/internal/lock"
	"github.com/anonto42/threadline/backend/internal/notify"
	"github.com/anonto42/threadline/backend/internal/router"
	"github.com/anonto42/threadline/backend/internal/session"
	"github.com/anonto42/threadline/backend/pkg/config"
	"github.com/anonto42/threadline/backend/pkg/firebase"
	"github.com/anonto42/threadline/backend/pkg/logger"
	"github.com/anonto42/threadline/backend/pkg/metrics"
	"github.com/anonto42/threadline/backend/validators"
)

func main() {
	cfg := config.Load()
	log := logger.Must(cfg.Env)
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize databases", zap.Error(err))
	}
	defer db.CloseDB()

	if err := db.Migrate(); err != nil {
		log.Fatal("failed to auto migrate models", zap.Error(err))
	}

	m := metrics.New("threadline")
	tokens := session.NewJWTProvider(cfg.JWTSecret, cfg.TokenTTL)
	deps := router.Dependencies{
		Postgres: db.Postgres,
		Mongo:    db.Mongo.Database(cfg.MongoDatabase),
		Sessions: tokens,
		Tokens:   tokens,
		Observer: m,
		Failures: m,
		Health: map[string]handlers.Pinger{
			"postgres": db.PingPostgres,
			"mongo":    db.PingMongo,
		},
		ToggleRate:  cfg.ToggleRate,
		ToggleBurst: cfg.ToggleBurst,
		Log:         log,
	}

	fbApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	switch {
	case err == nil:
		deps.Firebase = session.NewFirebaseProvider(fbApp.AuthClient)
		if cfg.AuthProvider == "firebase" {
			deps.Sessions = deps.Firebase
		}
	case errors.Is(err, firebase.ErrNoCredentials) && cfg.AuthProvider != "firebase":
		log.Warn("firebase login disabled", zap.Error(err))
	default:
		log.Fatal("failed to initialize Firebase", zap.Error(err))
	}

	if db.Redis != nil {
		deps.Locker = lock.NewRedisLocker(db.Redis, cfg.ToggleLockTTL)
		deps.Health["redis"] = db.PingRedis
	}

	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink := notify.NewKafkaSink(notify.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		defer func() { _ = kafkaSink.Close() }()
		deps.Sink = kafkaSink
		log.Info("publishing notifications to kafka", zap.String("topic", cfg.KafkaTopic))
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e, log)
	router.SetupRoutes(e, deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return m.Serve(gctx, ":"+cfg.MetricsPort, log)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", zap.Error(err))
	}
}
