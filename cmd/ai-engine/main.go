package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/tribeapp/ai-engine/config"
	"github.com/tribeapp/ai-engine/internal/auth"
	"github.com/tribeapp/ai-engine/internal/cache"
	"github.com/tribeapp/ai-engine/internal/model"
	"github.com/tribeapp/ai-engine/internal/seeder"
	"github.com/tribeapp/ai-engine/internal/server"
	"github.com/tribeapp/ai-engine/internal/service"
	"github.com/tribeapp/ai-engine/internal/telemetry"
	"github.com/tribeapp/ai-engine/internal/usage"
	"github.com/tribeapp/ai-engine/pkg/ratelimit"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Init telemetry
	shutdownTracer, err := telemetry.InitTracer("ai-engine", cfg)
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}
	defer shutdownTracer()

	// 3. Connect PostgreSQL
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("failed to ping postgres: %v", err)
	}
	log.Println("PostgreSQL connected")

	// 4. Connect Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to ping redis: %v", err)
	}
	log.Println("Redis connected")

	// 5. Init auth
	authStore := auth.NewPostgresStore(pool)
	authMiddleware := auth.NewMiddleware(authStore, rdb)

	// 6. Init usage accounting
	usageStore := usage.NewPostgresStore(pool)

	// 7. Init rate limiter
	limiter := ratelimit.NewLimiter(rdb, cfg.DefaultRateLimitTPM)

	// 8. Init model adapter
	adapter, err := model.New(cfg.ModelSettings())
	if err != nil {
		log.Fatalf("failed to init model adapter: %v", err)
	}
	defer adapter.Close()

	// 9. Init result cache
	var resultCache cache.Store
	if cfg.CacheEnabled {
		switch cfg.CacheBackend {
		case "redis":
			resultCache = cache.NewRedis(rdb, cfg.CacheTTL)
		default:
			resultCache = cache.NewMemory(cfg.CacheTTL)
		}
	}

	// 10. Init domain services
	matching := service.NewMatching(adapter, resultCache, usageStore)
	personality := service.NewPersonality(adapter, resultCache, usageStore)
	engagement := service.NewEngagement(adapter, resultCache, usageStore)
	recommendation := service.NewRecommendation(adapter, resultCache, usageStore)

	// 11. Init handler
	tracer := otel.GetTracerProvider().Tracer("ai-engine")
	handler := server.NewHandler(matching, personality, engagement, recommendation, usageStore, limiter, tracer)

	// 12. Seed test API key if RUN_SEED=true
	if os.Getenv("RUN_SEED") == "true" {
		seeder.SeedTestAPIKey(ctx, authStore)
	}

	// 13. Init Chi router
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// Public routes
	r.Get("/health", handler.HandleHealth)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/v1/models", handler.HandleModels)
		r.Post("/v1/matching", handler.HandleMatching)
		r.Post("/v1/matching/batch", handler.HandleMatchingBatch)
		r.Post("/v1/personality", handler.HandlePersonality)
		r.Post("/v1/personality/batch", handler.HandlePersonalityBatch)
		r.Post("/v1/engagement", handler.HandleEngagement)
		r.Post("/v1/engagement/batch", handler.HandleEngagementBatch)
		r.Post("/v1/recommendations", handler.HandleRecommendations)
		r.Post("/v1/recommendations/batch", handler.HandleRecommendationsBatch)
		r.Get("/v1/usage", handler.HandleUsage)
		r.Get("/v1/stats", handler.HandleStats)
	})

	// 14. Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("AI engine starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
