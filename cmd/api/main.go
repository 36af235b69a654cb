package main

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"reelforge/internal/httpapi"
	"reelforge/internal/pkg/logger"
	"reelforge/internal/pkg/shutdown"
	"reelforge/internal/storage"
	"reelforge/internal/worker/util"
)

func main() {
	_ = godotenv.Load()

	log := logger.New(logger.Config{
		Level:       util.Env("LOG_LEVEL", "info"),
		Format:      util.Env("LOG_FORMAT", "json"),
		ServiceName: "reelforge-api",
		AddSource:   util.BoolEnv("LOG_SOURCE", false),
	})

	log.Info("starting reelforge API",
		"version", "0.1.0",
	)

	httpPort := util.Env("HTTP_PORT", "8080")
	dbURL := util.MustEnv("DATABASE_URL")
	redisAddr := util.MustEnv("REDIS_ADDR")
	queueName := util.Env("VIDEO_QUEUE_NAME", "reelforge:videos")

	ctx := context.Background()

	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	log.Info("connecting to PostgreSQL")
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.LogFatal("failed to connect to PostgreSQL", err)
	}
	shutdownMgr.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	if err := pool.Ping(ctx); err != nil {
		log.LogFatal("failed to ping PostgreSQL", err)
	}
	log.Info("PostgreSQL connected")

	log.Info("connecting to Redis")
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	shutdownMgr.Register("redis", func(ctx context.Context) error {
		return rdb.Close()
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.LogFatal("failed to ping Redis", err)
	}
	log.Info("Redis connected")

	log.Info("initializing storage provider")
	sp, err := storage.NewProvider()
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}
	log.Info("storage provider initialized", "provider", sp.Provider())

	router := httpapi.NewRouter(httpapi.Deps{
		Pool:            pool,
		RDB:             rdb,
		SP:              sp,
		Log:             log,
		QueueName:       queueName,
		RendererBaseURL: util.Env("RENDERER_HTTP_BASEURL", ""),
		RendererAPIKey:  util.Env("RENDERER_API_KEY", ""),
	})

	server := &http.Server{
		Addr:         "0.0.0.0:" + httpPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening",
			"addr", server.Addr,
			"port", httpPort,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	shutdownMgr.Wait()
}
