package worker

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"reelforge/internal/pkg/logger"
	"reelforge/internal/ports"
)

type Deps struct {
	Pool *pgxpool.Pool
	RDB  *redis.Client
	SP   ports.StorageProvider
	Log  *logger.Logger

	QueueName       string
	RendererBaseURL string
	RendererAPIKey  string

	// PollInterval and MaxPollAttempts bound how long one render is waited
	// for. Zero values use the processor defaults (5s, 60).
	PollInterval    time.Duration
	MaxPollAttempts int
}
