package httpapi

import (
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"reelforge/internal/assetcheck"
	"reelforge/internal/httpapi/handlers"
	"reelforge/internal/httpkit"
	"reelforge/internal/pkg/logger"
	"reelforge/internal/pkg/middleware"
	"reelforge/internal/ports"
	"reelforge/internal/repositories"
	"reelforge/internal/worker/queue"
	"reelforge/internal/worker/renderer"
)

type Deps struct {
	Pool *pgxpool.Pool
	RDB  *redis.Client
	SP   ports.StorageProvider
	Log  *logger.Logger

	QueueName string
	// RendererBaseURL/RendererAPIKey enable status reconciliation against
	// the gateway. Empty base URL disables it.
	RendererBaseURL string
	RendererAPIKey  string
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))

	allowedOrigins := envCSV("CORS_ALLOWED_ORIGINS", []string{
		"http://localhost:8081",
		"http://localhost:5173",
	})
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAgeSeconds:    600,
	}))

	var gw renderer.Client
	if d.RendererBaseURL != "" {
		gw = renderer.NewHTTPClient(renderer.Config{
			BaseURL: d.RendererBaseURL,
			APIKey:  d.RendererAPIKey,
			Log:     log,
		})
	}

	h := handlers.New(handlers.Deps{
		Pool:      d.Pool,
		RDB:       d.RDB,
		SP:        d.SP,
		Repo:      repositories.NewVideoRepository(d.Pool),
		Queue:     queue.NewRedisQueue(d.RDB, d.QueueName),
		Validator: assetcheck.New(assetcheck.Config{Log: log}),
		Renderer:  gw,
		Log:       log,
	})

	r.Get("/health", h.Health)

	r.Route("/video", func(r chi.Router) {
		r.Post("/generate", h.Generate)
		r.Get("/{videoId}", h.Get)
		r.Get("/{videoId}/status", h.Status)
		r.Get("/{videoId}/preview", h.Preview)
		r.Delete("/{videoId}", h.Delete)
	})

	return r
}

func envCSV(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
