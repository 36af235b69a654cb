package handlers

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"reelforge/internal/assetcheck"
	"reelforge/internal/pkg/logger"
	"reelforge/internal/ports"
	"reelforge/internal/video"
	"reelforge/internal/worker/renderer"
)

// VideoStore is the slice of the repository the handlers need.
type VideoStore interface {
	Create(ctx context.Context, rec *video.Video) error
	Get(ctx context.Context, id string) (*video.Video, error)
	UpdateStatus(ctx context.Context, id string, patch video.StatusUpdate) error
	Delete(ctx context.Context, id string) (bool, error)
}

// JobQueue enqueues accepted submissions; Len backs the deep health check.
type JobQueue interface {
	Publish(ctx context.Context, videoID string, data any) error
	Len(ctx context.Context) (int64, error)
}

// AssetValidator verifies that submitted asset URLs are reachable.
type AssetValidator interface {
	Validate(ctx context.Context, refs []assetcheck.Ref) error
}

type Deps struct {
	Pool      *pgxpool.Pool
	RDB       *redis.Client
	SP        ports.StorageProvider
	Repo      VideoStore
	Queue     JobQueue
	Validator AssetValidator
	// Renderer is used to reconcile status reads for in-flight renders.
	// Nil disables reconciliation.
	Renderer renderer.Client
	Log      *logger.Logger
}

type Handler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	sp        ports.StorageProvider
	repo      VideoStore
	queue     JobQueue
	validator AssetValidator
	renderer  renderer.Client
	log       *logger.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Handler{
		pool:      d.Pool,
		rdb:       d.RDB,
		sp:        d.SP,
		repo:      d.Repo,
		queue:     d.Queue,
		validator: d.Validator,
		renderer:  d.Renderer,
		log:       log.WithComponent("api"),
	}
}
