package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pagepulse/pagepulse/internal/app"
	"github.com/pagepulse/pagepulse/internal/config"
	"github.com/pagepulse/pagepulse/internal/crypto"
	"github.com/pagepulse/pagepulse/internal/database"
	"github.com/pagepulse/pagepulse/internal/logging"
	"github.com/pagepulse/pagepulse/internal/meta"
	"github.com/pagepulse/pagepulse/internal/redis"
	"github.com/pagepulse/pagepulse/internal/server"
	"github.com/pagepulse/pagepulse/internal/webhook"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *database.DB {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := db.RunMigrations(ctx); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return db
}

func setupRedis(cfg *config.Config) *redis.Client {
	client, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		slog.Error("Failed to ping Redis", "error", err)
		os.Exit(1)
	}

	return client
}

func runGracefulShutdown(srv *server.Server) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	db := setupDB(cfg)
	defer db.Close()

	redisClient := setupRedis(cfg)
	defer func() { _ = redisClient.Close() }()

	var cryptoSvc crypto.Service = crypto.NoopService{}
	if cfg.TokenEncryptionKey != "" {
		var err error
		cryptoSvc, err = crypto.NewAesGcmCryptoService(cfg.TokenEncryptionKey)
		if err != nil {
			slog.Error("Failed to create crypto service", "error", err)
			os.Exit(1)
		}
	}

	userRepo := database.NewUserRepo(db, cryptoSvc)
	pageRepo := database.NewPageRepo(db, cryptoSvc)
	postRepo := database.NewPostRepo(db)
	reviewRepo := database.NewReviewRepo(db)
	notificationRepo := database.NewNotificationRepo(db)
	analyticsRepo := database.NewAnalyticsRepo(db)

	metaClient := meta.NewClient(cfg.MetaClientID, cfg.MetaClientSecret, cfg.MetaGraphVersion)
	pubsub := redis.NewPubSub(redisClient)
	dedup := redis.NewDedupStore(redisClient)

	appSvc := app.NewService(app.Deps{
		Users:         userRepo,
		Pages:         pageRepo,
		Posts:         postRepo,
		Reviews:       reviewRepo,
		Notifications: notificationRepo,
		Meta:          metaClient,
		PubSub:        pubsub,
		Clock:         clock,
		PostLimit:     cfg.SyncPostLimit,
		ReviewLimit:   cfg.SyncReviewLimit,
	})

	normalizer := webhook.NewNormalizer(pageRepo, userRepo)
	webhookHandler := webhook.NewHandler(normalizer, appSvc, dedup, cfg.WebhookVerifyToken, cfg.WebhookSecret)

	srv := server.NewServer(cfg, appSvc, server.Repos{
		Users:         userRepo,
		Pages:         pageRepo,
		Posts:         postRepo,
		Reviews:       reviewRepo,
		Notifications: notificationRepo,
		Analytics:     analyticsRepo,
	}, metaClient, webhookHandler, pubsub, db, redisClient)

	done := runGracefulShutdown(srv)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
