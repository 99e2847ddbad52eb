package app

import (
	"context"
	"database/sql"
	"net/http"

	chatfeature "github.com/jungyuya/new-blog-sub000/features/chat"
	"github.com/jungyuya/new-blog-sub000/features/job"
	"github.com/jungyuya/new-blog-sub000/features/stats"
	"github.com/jungyuya/new-blog-sub000/internal/adapter/gemini"
	"github.com/jungyuya/new-blog-sub000/internal/blog"
	"github.com/jungyuya/new-blog-sub000/internal/chat"
	"github.com/jungyuya/new-blog-sub000/internal/config"
	"github.com/jungyuya/new-blog-sub000/internal/index"
	"github.com/jungyuya/new-blog-sub000/internal/middleware"
	"github.com/jungyuya/new-blog-sub000/internal/quota"
	"github.com/jungyuya/new-blog-sub000/internal/settings"
)

// VectorStore is everything the app needs from the chunk index.
type VectorStore interface {
	index.ChunkStore
	chat.VectorSearcher
	EnsureSchema(ctx context.Context) error
	CountChunks(ctx context.Context) (int, error)
}

// GeminiClient covers both generation shapes plus embedding.
type GeminiClient interface {
	index.Embedder
	chat.TextGenerator
	chat.StreamGenerator
}

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

// App holds the wired request surface and long-running consumers.
type App struct {
	Handler        http.Handler
	Indexer        *index.Indexer
	ChangeConsumer *index.ChangeConsumer
}

// DailyQuotaLimit resolves the chat quota ceiling from the settings row on
// every grant, so a PUT /settings change applies to the next request. Falls
// back to the configured default when the row is unreadable or unset.
func DailyQuotaLimit(set *settings.Service, fallback int) quota.LimitFunc {
	return func(ctx context.Context) int {
		s, err := set.Get(ctx)
		if err != nil || s.DailyQuota <= 0 {
			return fallback
		}
		return s.DailyQuota
	}
}

// ModelResolver resolves the embedding and generation model names from the
// settings row per call, keeping the configured models as fallback.
func ModelResolver(set *settings.Service, cfg *config.Config) gemini.ModelFunc {
	return func(ctx context.Context) (string, string) {
		embedding, generation := cfg.EmbeddingModel, cfg.GenerationModel
		s, err := set.Get(ctx)
		if err != nil {
			return embedding, generation
		}
		if s.EmbeddingModel != "" {
			embedding = s.EmbeddingModel
		}
		if s.GenerationModel != "" {
			generation = s.GenerationModel
		}
		return embedding, generation
	}
}

func New(
	cfg *config.Config,
	db *sql.DB,
	vecStore VectorStore,
	redis quota.RedisClient,
	settingsService *settings.Service,
	gemini GeminiClient,
	pub TaskPublisher,
) *App {
	// Feature: Settings
	settingsHandler := settings.NewHandler(settingsService)

	// Blog posts (read-side of the CRUD service's table)
	blogRepo := blog.NewPostgresRepo(db)

	// Feature: Job (parked change-feed records)
	jobRepo := job.NewPostgresRepo(db)
	jobService := job.NewService(jobRepo, pub)
	jobHandler := job.NewHandler(jobService)

	// Indexing pipeline
	indexer := index.NewIndexer(blogRepo, blogRepo, gemini, vecStore, index.IndexerOpts{
		ChunkMaxChars: cfg.ChunkMaxChars,
		PageSize:      cfg.IndexPageSize,
		Concurrency:   cfg.IndexConcurrency,
	})
	changeConsumer := index.NewChangeConsumer(indexer, jobService)

	// Chat pipeline
	limiter := quota.NewLimiter(redis, DailyQuotaLimit(settingsService, cfg.ChatDailyQuota))
	chatService := chat.NewService(
		limiter,
		chat.NewExpander(gemini),
		chat.NewRetriever(gemini, vecStore, cfg.BlogBaseURL),
		chat.NewStreamer(gemini),
		settingsService,
		cfg.SearchTopK,
	)
	chatHandler := chatfeature.NewHandler(chatService, limiter)

	// Feature: Stats
	statsHandler := stats.NewHandler(blogRepo, jobRepo, vecStore)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()

	mux.Handle("POST /chat", middleware.CorrelationID(enableCORS(chatHandler.Ask)))
	mux.Handle("GET /chat/quota", middleware.CorrelationID(enableCORS(chatHandler.GetQuota)))

	mux.Handle("GET /settings", middleware.CorrelationID(enableCORS(settingsHandler.GetSettings)))
	mux.Handle("PUT /settings", middleware.CorrelationID(enableCORS(settingsHandler.UpdateSettings)))

	mux.Handle("GET /jobs", middleware.CorrelationID(enableCORS(jobHandler.List)))
	mux.Handle("POST /jobs/{id}/retry", middleware.CorrelationID(enableCORS(jobHandler.Retry)))
	mux.Handle("DELETE /jobs/{id}", middleware.CorrelationID(enableCORS(jobHandler.Delete)))

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:        mux,
		Indexer:        indexer,
		ChangeConsumer: changeConsumer,
	}
}
