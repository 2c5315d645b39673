package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/honeynil/AccountService/internal/api"
	"github.com/honeynil/AccountService/internal/config"
	"github.com/honeynil/AccountService/internal/handler"
	"github.com/honeynil/AccountService/internal/infrastructure/auth"
	"github.com/honeynil/AccountService/internal/infrastructure/kafka"
	"github.com/honeynil/AccountService/internal/infrastructure/redis"
	"github.com/honeynil/AccountService/internal/migrations"
	"github.com/honeynil/AccountService/internal/models"
	"github.com/honeynil/AccountService/internal/observability"
	core "github.com/honeynil/AccountService/internal/repository/postgres"
	service "github.com/honeynil/AccountService/internal/services"
	_ "github.com/lib/pq"
)

const serviceName = "account-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Логи, метрики, трейсы
	shutdownObservability := observability.Setup(serviceName, observability.Options{
		MetricsAddr:  cfg.MetricsAddr,
		OTLPEndpoint: cfg.OTLPEndpoint,
	})

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to open Postgres: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(startCtx); err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	if err := migrations.Run(startCtx, db); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	redisClient, err := redis.NewClient(startCtx, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	producer := kafka.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize token service: %v", err)
	}

	userRepo := core.NewPostgresUserRepository(db)
	svc := service.NewAccountService(userRepo, hasher, tokens, redisClient, producer, cfg.ProfileCacheTTL)

	// Прогрев кэша профилей по событиям регистрации
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	consumer := kafka.NewConsumer(cfg.KafkaBrokers, models.TopicUsers, serviceName+"-profile-cache", redisClient, cfg.ProfileCacheTTL)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		consumer.Consume(consumerCtx)
	}()

	router := api.SetupRouter(handler.NewHandler(svc), tokens, cfg.CORSOrigins)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("starting server", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	stopConsumer()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	svc.Wait()
	<-consumerDone
	if err := consumer.Close(); err != nil {
		slog.Error("failed to close kafka consumer", "error", err)
	}
	if err := shutdownObservability(ctx); err != nil {
		slog.Error("observability shutdown failed", "error", err)
	}
	slog.Info("server stopped")
}
