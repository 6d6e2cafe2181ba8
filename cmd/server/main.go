package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/TechniCodeCamp2025/fleet-api/config"
	"github.com/TechniCodeCamp2025/fleet-api/internal/graph"
	"github.com/TechniCodeCamp2025/fleet-api/internal/handler"
	"github.com/TechniCodeCamp2025/fleet-api/internal/middleware"
	"github.com/TechniCodeCamp2025/fleet-api/internal/rundriver"
	"github.com/TechniCodeCamp2025/fleet-api/internal/store"
	"github.com/TechniCodeCamp2025/fleet-api/pkg/cache"
	"github.com/TechniCodeCamp2025/fleet-api/pkg/db"
)

func main() {
	// ── Load configuration ──────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// ── Connect to PostgreSQL ───────────────────────────
	pgPool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("failed to connect to PostgreSQL: %v", err)
	}
	defer pgPool.Close()
	log.Println("✓ PostgreSQL connected")

	// ── Connect to Redis ────────────────────────────────
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("✓ Redis connected")

	// ── Build the engine's shared, process-local relation graph ─
	// The graph is built here with no edges and shared by every run. The
	// run-submission body (internal/handler) carries vehicles, locations
	// and routes but no relation edges, so no relocation path is ever
	// found and a route can only go to a vehicle already at its start.
	// Only the bounded LRU cache setting is applied here.
	cacheSize := cfg.Performance.RelationCacheSize
	if !cfg.Performance.UseRelationCache {
		cacheSize = 0
	}
	g, err := graph.NewWithCache(nil, cacheSize)
	if err != nil {
		log.Fatalf("failed to build relation graph: %v", err)
	}

	driverCfg := rundriver.Config{
		Placement:     cfg.Placement,
		Assignment:    cfg.Assignment,
		SwapPolicy:    cfg.SwapPolicy,
		ServicePolicy: cfg.ServicePolicy,
		Costs:         cfg.Costs,
		Performance:   cfg.Performance,
	}

	runStore := store.NewPostgresRunStore(pgPool)

	runHandler := handler.NewRunHandler(func(reporter rundriver.ProgressReporter, cancel rundriver.CancelSignal) *rundriver.Driver {
		return rundriver.NewDriver(g, driverCfg, reporter, cancel)
	}, runStore)

	// ── Setup router ────────────────────────────────────
	router := mux.NewRouter()

	router.HandleFunc("/health", healthHandler(pgPool, redisClient)).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/runs", runHandler.SubmitRun).Methods(http.MethodPost)
	api.HandleFunc("/runs/{id}", runHandler.GetRun).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}/cancel", runHandler.CancelRun).Methods(http.MethodPost)

	wrapped := middleware.Recoverer(middleware.RequestLogger(router))

	// ── Start HTTP server ───────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.ServerAddr(),
		Handler:      wrapped,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("listening on %s", cfg.Server.ServerAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// ── Graceful shutdown ───────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server gracefully stopped")
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// healthHandler returns an HTTP handler that checks PG and Redis connectivity.
func healthHandler(pgPool *pgxpool.Pool, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:   "ok",
			Services: make(map[string]string),
		}

		if err := db.HealthCheck(r.Context(), pgPool); err != nil {
			resp.Status = "degraded"
			resp.Services["postgres"] = "unhealthy: " + err.Error()
		} else {
			resp.Services["postgres"] = "healthy"
		}

		if err := cache.HealthCheck(r.Context(), redisClient); err != nil {
			resp.Status = "degraded"
			resp.Services["redis"] = "unhealthy: " + err.Error()
		} else {
			resp.Services["redis"] = "healthy"
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(resp)
	}
}
