package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Dest0re/backend-school2022/internal/application/handlers"
	"github.com/Dest0re/backend-school2022/internal/domain/services"
	"github.com/Dest0re/backend-school2022/internal/infrastructure/config"
	"github.com/Dest0re/backend-school2022/internal/infrastructure/relationaldb/sqlite"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and the store are internal.
type Deps struct {
	Config  *config.Config
	Logger  *slog.Logger
	Nodes   *handlers.NodeHandler
	Sales   *handlers.SalesHandler
	Imports *handlers.ImportHandler
}

// withDeps loads config and builds dependencies, then calls the provided function.
// It handles cleanup automatically.
func withDeps(fn func(*Deps) error) error {
	cfg, err := config.Load(globalConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	store, err := sqlite.NewRepository(cfg.SQLite)
	if err != nil {
		return fmt.Errorf("creating sqlite repository: %w", err)
	}
	defer store.Close()

	// Ensure schema exists
	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring sqlite schema: %w", err)
	}

	budget := cfg.Stream.Timeout()
	importService := services.NewImportService(store)

	deps := &Deps{
		Config:  cfg,
		Logger:  logger,
		Nodes:   handlers.NewNodeHandler(store, budget),
		Sales:   handlers.NewSalesHandler(store, budget),
		Imports: handlers.NewImportHandler(importService),
	}

	return fn(deps)
}
