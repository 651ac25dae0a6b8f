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

	"github.com/lawquery/lexgate/internal/gateway/admission"
	"github.com/lawquery/lexgate/internal/gateway/cache"
	"github.com/lawquery/lexgate/internal/gateway/fallback"
	"github.com/lawquery/lexgate/internal/gateway/handlers"
	"github.com/lawquery/lexgate/internal/gateway/metrics"
	"github.com/lawquery/lexgate/internal/gateway/providers"
	"github.com/lawquery/lexgate/internal/shared/config"
	"github.com/lawquery/lexgate/internal/shared/database"
	"github.com/lawquery/lexgate/internal/shared/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting LexGate on port %s (env: %s)", cfg.Port, cfg.Env)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("✓ Connected to PostgreSQL")

	// Initialize Redis; the gateway runs without the answer cache when it
	// is unavailable.
	var answerCache *cache.Cache
	cacheEnabled := cfg.CacheEnabled
	redisClient, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Printf("Redis unavailable, answer cache disabled: %v", err)
		cacheEnabled = false
	} else {
		defer redisClient.Close()
		answerCache = cache.New(redisClient)
		log.Println("✓ Connected to Redis")
	}

	// Model hierarchy: invalid configuration aborts startup.
	hierarchy := fallback.DefaultHierarchy()
	if cfg.HierarchySpec != "" {
		hierarchy, err = fallback.ParseHierarchy(cfg.HierarchySpec)
		if err != nil {
			log.Fatalf("Invalid MODEL_HIERARCHY: %v", err)
		}
	}
	log.Printf("✓ Model hierarchy with %d tiers", hierarchy.Len())

	// Upstream client and fallback executor
	client := providers.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.RequestTimeout)
	if !client.Ready() {
		log.Println("! No OPENAI_API_KEY configured; requests will receive degraded responses")
	}
	executor := fallback.NewExecutor(hierarchy, client, fallback.NewRateLimitSignal(), fallback.Options{
		MaxAttempts: cfg.MaxAttempts,
		BackoffBase: cfg.BackoffBase,
	})

	// Admission controller
	controller := admission.NewController(admission.Rule{
		BurstLimit:        cfg.DefaultBurstLimit,
		RequestsPerMinute: cfg.DefaultRequestsPerMinute,
		RequestsPerHour:   cfg.DefaultRequestsPerHour,
	}, cfg.BanDuration)
	log.Println("✓ Initialized admission controller")

	// Initialize handlers
	askHandler := handlers.NewAskHandler(executor, answerCache, db, executor.Signal(), cacheEnabled, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	adminHandler := handlers.NewAdminHandler(db)
	middleware := handlers.NewMiddleware(controller, db)

	// Periodic maintenance: restore the premium tier on the configured
	// cadence and sweep idle admission state.
	go maintenanceLoop(ctx, executor, controller, cfg.TierResetInterval)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout + 30*time.Second))
	r.Use(middleware.CORSMiddleware)

	// Health check and metrics (no admission control)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Method("GET", "/metrics", metrics.Handler())

	// API routes (with admission control)
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.AdmissionMiddleware)

		r.Post("/ask", askHandler.HandleAsk)
		r.Get("/admin/bans", adminHandler.HandleRecentBans)
	})

	// HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 60*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("🚀 Server listening on http://localhost:%s", cfg.Port)
		log.Println("   POST /v1/ask   - Legal research questions")
		log.Println("   GET  /health   - Health check")
		log.Println("   GET  /metrics  - Prometheus metrics")
		log.Println("")
		log.Println("Ready to accept requests!")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// maintenanceLoop resets the tier cursor back to premium on the configured
// cadence and periodically sweeps expired admission state.
func maintenanceLoop(ctx context.Context, executor *fallback.Executor, controller *admission.Controller, resetInterval time.Duration) {
	resetTicker := time.NewTicker(resetInterval)
	defer resetTicker.Stop()

	sweepTicker := time.NewTicker(10 * time.Minute)
	defer sweepTicker.Stop()

	for {
		select {
		case <-resetTicker.C:
			executor.ResetToPremium()
			log.Printf("Tier cursor reset to %s", executor.CurrentTier().Name)
		case <-sweepTicker.C:
			controller.Sweep()
		case <-ctx.Done():
			return
		}
	}
}
