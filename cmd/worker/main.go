package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"reelforge/internal/pkg/logger"
	"reelforge/internal/pkg/shutdown"
	"reelforge/internal/storage"
	"reelforge/internal/worker"
	"reelforge/internal/worker/util"
)

func main() {
	_ = godotenv.Load()

	log := logger.New(logger.Config{
		Level:       util.Env("LOG_LEVEL", "info"),
		Format:      util.Env("LOG_FORMAT", "json"),
		ServiceName: "reelforge-worker",
		AddSource:   util.BoolEnv("LOG_SOURCE", false),
	})

	log.Info("starting reelforge worker",
		"version", "0.1.0",
	)

	dbURL := util.MustEnv("DATABASE_URL")
	redisAddr := util.MustEnv("REDIS_ADDR")
	rendererBaseURL := util.MustEnv("RENDERER_HTTP_BASEURL")
	rendererAPIKey := util.Env("RENDERER_API_KEY", "")
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

	deps := worker.Deps{
		Pool:            pool,
		RDB:             rdb,
		SP:              sp,
		Log:             log,
		QueueName:       queueName,
		RendererBaseURL: rendererBaseURL,
		RendererAPIKey:  rendererAPIKey,
		PollInterval:    util.DurationEnv("RENDER_POLL_INTERVAL", 5*time.Second),
		MaxPollAttempts: util.IntEnv("RENDER_POLL_MAX_ATTEMPTS", 60),
	}

	// The consumer loop runs until the shutdown manager cancels its context.
	go func() {
		if err := worker.Run(shutdownMgr.Context(), deps); err != nil && err != context.Canceled {
			log.LogFatal("worker loop failed", err)
		}
	}()

	shutdownMgr.Wait()
}
