package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	ffhttp "github.com/forgeflow/forgeflow/internal/adapter/http"
	ffmcp "github.com/forgeflow/forgeflow/internal/adapter/mcp"
	ffnats "github.com/forgeflow/forgeflow/internal/adapter/nats"
	"github.com/forgeflow/forgeflow/internal/adapter/natskv"
	ffotel "github.com/forgeflow/forgeflow/internal/adapter/otel"
	"github.com/forgeflow/forgeflow/internal/adapter/postgres"
	"github.com/forgeflow/forgeflow/internal/adapter/ristretto"
	"github.com/forgeflow/forgeflow/internal/adapter/tiered"
	"github.com/forgeflow/forgeflow/internal/adapter/ws"
	"github.com/forgeflow/forgeflow/internal/config"
	"github.com/forgeflow/forgeflow/internal/domain/depgraph"
	"github.com/forgeflow/forgeflow/internal/logger"
	"github.com/forgeflow/forgeflow/internal/middleware"
	"github.com/forgeflow/forgeflow/internal/service"
)

const (
	requestTimeout    = 30 * time.Second
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 120 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func runServe(args []string) error {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	cfg, _, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
		"mcp_enabled", cfg.MCP.Enabled,
	)

	ctx := context.Background()

	// --- Telemetry ---
	shutdownOtel, err := ffotel.Init(ctx, cfg.Telemetry, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOtel(flushCtx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	// --- Infrastructure ---
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	queue, err := ffnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() {
		if err := queue.Drain(); err != nil {
			slog.Warn("nats drain", "error", err)
		}
	}()

	// --- Caches ---
	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("l1 cache: %w", err)
	}
	defer l1.Close()

	cacheKV, err := queue.KeyValue(ctx, cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
	if err != nil {
		return fmt.Errorf("l2 cache bucket: %w", err)
	}
	artifactCache := tiered.New(l1, natskv.New(cacheKV), cfg.Cache.L1TTL)

	idemKV, err := queue.KeyValue(ctx, cfg.Idempotency.Bucket, cfg.Idempotency.TTL)
	if err != nil {
		return fmt.Errorf("idempotency bucket: %w", err)
	}
	idemCache := tiered.New(l1, natskv.New(idemKV), cfg.Cache.L1TTL)

	// --- Dependency graph ---
	store := postgres.NewStore(pool)
	if err := store.SeedDependencyGraph(ctx, depgraph.Default()); err != nil {
		return fmt.Errorf("seed dependency graph: %w", err)
	}
	entries, err := store.LoadDependencyGraph(ctx)
	if err != nil {
		return fmt.Errorf("load dependency graph: %w", err)
	}
	graph := depgraph.New(entries)
	slog.Info("dependency graph loaded", "agents", graph.Len())

	// --- Services ---
	hub := ws.NewHub()
	locks := service.NewProjectLocks()
	projectSvc := service.NewProjectService(store, queue, hub).
		WithStateCache(l1, cfg.Cache.StateTTL)
	agentSvc := service.NewAgentService(store, graph, locks, queue, hub)
	featureSvc := service.NewFeatureService(store, locks, queue, hub)
	gateSvc := service.NewGateService(store, locks, queue, hub)
	artifactSvc := service.NewArtifactService(store).
		WithReadCache(artifactCache, cfg.Cache.L2TTL)

	cancelResults, err := agentSvc.StartResultSubscriber(ctx)
	if err != nil {
		return fmt.Errorf("result subscriber: %w", err)
	}
	defer cancelResults()

	metrics, err := ffotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	observer, err := ffotel.StartObserver(ctx, queue, metrics)
	if err != nil {
		return fmt.Errorf("metrics observer: %w", err)
	}
	defer observer.Stop()

	// --- HTTP ---
	handlers := &ffhttp.Handlers{
		Projects:  projectSvc,
		Agents:    agentSvc,
		Features:  featureSvc,
		Gates:     gateSvc,
		Artifacts: artifactSvc,
	}

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	r := chi.NewRouter()
	r.Use(ffhttp.SecurityHeaders)
	r.Use(ffhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(ffhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))
	if cfg.Telemetry.Enabled {
		r.Use(ffotel.HTTPMiddleware(cfg.Logging.Service))
	}
	r.Use(limiter.Handler)
	r.Use(middleware.Auth(cfg.Auth))
	r.Use(middleware.Idempotency(idemCache, cfg.Idempotency.TTL))

	r.Get("/health", healthHandler(pool, queue))
	r.Get("/ws", hub.HandleWS)
	ffhttp.MountRoutes(r, handlers)

	// --- MCP ---
	if cfg.MCP.Enabled {
		mcpSrv := ffmcp.NewServer(ffmcp.ServerConfig{
			Addr:    cfg.MCP.Addr,
			Name:    "forgeflow",
			Version: version,
			APIKey:  cfg.MCP.APIKey,
		}, ffmcp.ServerDeps{
			Projects:  projectSvc,
			Agents:    agentSvc,
			Features:  featureSvc,
			Gates:     gateSvc,
			Artifacts: artifactSvc,
			Graph:     graph,
		})
		if err := mcpSrv.Start(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		slog.Info("mcp server listening", "addr", cfg.MCP.Addr)
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := mcpSrv.Stop(stopCtx); err != nil {
				slog.Warn("mcp shutdown", "error", err)
			}
		}()
	}

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// healthHandler reports liveness of the engine and its backing services.
// A failing dependency degrades the status and flips the code to 503 so
// orchestrators stop routing traffic here.
func healthHandler(pool *pgxpool.Pool, queue *ffnats.Queue) http.HandlerFunc {
	type healthStatus struct {
		Status   string `json:"status"`
		Postgres string `json:"postgres"`
		NATS     string `json:"nats"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		status := healthStatus{Status: "ok", Postgres: "ok", NATS: "ok"}
		code := http.StatusOK

		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			status.Status = "degraded"
			status.Postgres = err.Error()
			code = http.StatusServiceUnavailable
		}
		if !queue.IsConnected() {
			status.Status = "degraded"
			status.NATS = "disconnected"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}
