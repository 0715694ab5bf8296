package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	ffmcp "github.com/forgeflow/forgeflow/internal/adapter/mcp"
	"github.com/forgeflow/forgeflow/internal/adapter/postgres"
	"github.com/forgeflow/forgeflow/internal/config"
	"github.com/forgeflow/forgeflow/internal/domain/depgraph"
	"github.com/forgeflow/forgeflow/internal/service"
)

// runMCPStdio serves the MCP protocol over stdin/stdout. Stdout belongs to
// the protocol, so logs go to stderr. Events and the WebSocket hub are off
// in this mode; the engine talks straight to the store.
func runMCPStdio(args []string) error {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	cfg, _, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := slog.New(slog.NewJSONHandler(os.Stderr, nil)).With("service", cfg.Logging.Service)
	slog.SetDefault(log)

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	store := postgres.NewStore(pool)
	if err := store.SeedDependencyGraph(ctx, depgraph.Default()); err != nil {
		return fmt.Errorf("seed dependency graph: %w", err)
	}
	entries, err := store.LoadDependencyGraph(ctx)
	if err != nil {
		return fmt.Errorf("load dependency graph: %w", err)
	}
	graph := depgraph.New(entries)

	locks := service.NewProjectLocks()
	srv := ffmcp.NewServer(ffmcp.ServerConfig{
		Name:    "forgeflow",
		Version: version,
	}, ffmcp.ServerDeps{
		Projects:  service.NewProjectService(store, nil, nil),
		Agents:    service.NewAgentService(store, graph, locks, nil, nil),
		Features:  service.NewFeatureService(store, locks, nil, nil),
		Gates:     service.NewGateService(store, locks, nil, nil),
		Artifacts: service.NewArtifactService(store),
		Graph:     graph,
	})

	slog.Info("mcp stdio server ready")
	return srv.ServeStdio()
}
