package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"support-chat/internal/config"
	"support-chat/internal/db"
	apihttp "support-chat/internal/http"
	"support-chat/internal/repository"
	"support-chat/internal/service"
	"support-chat/internal/ws"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	sessionRepo := repository.NewPgSessionRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)

	presence := service.NewMemoryPresenceStore()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory presence", zap.Error(err))
		} else {
			presence = service.NewRedisPresenceStore(redisClient)
		}
		cancel()
	}

	registry := ws.NewRegistry()
	rooms := ws.NewRoomRouter()

	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.AuthTimeout())
	sessionSvc := service.NewSessionService(logger, sessionRepo, rooms, registry)
	messageSvc := service.NewMessageService(logger, messageRepo, sessionRepo, sessionSvc, rooms, registry, cfg.MaxMessageLength)

	sweeper := service.NewSweeper(logger, sessionRepo, sessionSvc, cfg.SweepInterval(), cfg.IdleTimeout())
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go sweeper.Run(sweepCtx)

	wsHandler := ws.NewHandler(logger, authSvc, registry, rooms, presence, sessionSvc, messageSvc)
	sessionHandler := apihttp.NewSessionHandler(logger, sessionSvc, messageSvc, presence)
	router := apihttp.NewRouter(logger, authSvc, wsHandler, sessionHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.Duration("idle_timeout", cfg.IdleTimeout()),
		zap.Duration("sweep_interval", cfg.SweepInterval()),
	)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
