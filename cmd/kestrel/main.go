// Kestrel - Real-time transaction risk scoring.
// Copyright (c) 2026 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/opensource-finance/kestrel/internal/analyzer"
	"github.com/opensource-finance/kestrel/internal/api"
	"github.com/opensource-finance/kestrel/internal/bus"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/drift"
	"github.com/opensource-finance/kestrel/internal/ensemble"
	"github.com/opensource-finance/kestrel/internal/explain"
	"github.com/opensource-finance/kestrel/internal/oracle"
	"github.com/opensource-finance/kestrel/internal/producer"
	"github.com/opensource-finance/kestrel/internal/profile"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/store"
	"github.com/opensource-finance/kestrel/internal/verdict"
	"github.com/opensource-finance/kestrel/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("KESTREL_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()
	if os.Getenv("KESTREL_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}
	cfg.ApplyEnv()

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"profiles", cfg.Profile.Backend,
		"eventbus", cfg.EventBus.Type,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Profile Store
	profiles, err := profile.New(cfg.Profile)
	if err != nil {
		slog.Error("failed to initialize profile store", "error", err)
		os.Exit(1)
	}
	defer profiles.Close()
	slog.Info("profile store initialized", "backend", cfg.Profile.Backend)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Oracles
	var supervised domain.Oracle = oracle.NewSupervised()
	if cfg.Scoring.RemoteOracleURL != "" {
		supervised = oracle.NewRemote("supervised", cfg.Scoring.RemoteOracleURL)
		slog.Info("using remote supervised oracle", "url", cfg.Scoring.RemoteOracleURL)
	}
	scorer := ensemble.NewScorer(oracle.NewAnomaly(), supervised, oracle.NewGraph(), cfg.Scoring)

	// Initialize Drift Detector
	driftDetector := drift.NewAggregator(cfg.Drift.Window, cfg.Drift.Threshold)

	// Initialize Verdict Policy
	policy, err := verdict.New(cfg.Policy.Expression)
	if err != nil {
		slog.Error("failed to compile verdict policy", "error", err)
		os.Exit(1)
	}
	slog.Info("verdict policy compiled", "expression", policy.Expression())

	// Initialize Analyzer
	a := analyzer.New(analyzer.Options{
		Profiles:         profiles,
		Scorer:           scorer,
		Drift:            driftDetector,
		Explainer:        explain.NewLinearAttributor(),
		Policy:           policy,
		Repo:             repo,
		Bus:              busImpl,
		ExplanationLimit: cfg.Scoring.ExplanationLimit,
	})

	// Initialize Ring Store and Producer
	ring := store.NewRing(cfg.Store.Capacity)

	var prod *producer.Producer
	if cfg.Producer.Enabled {
		prod = producer.New(ring, repo, busImpl, cfg.Producer)
		prod.Start(ctx)
	}

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("KESTREL_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, a)
		if err := asyncWorker.Start(); err != nil {
			slog.Error("failed to start async worker", "error", err)
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, ring, repo, profiles, a, driftDetector, busImpl, Version)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kestrel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	if prod != nil {
		prod.Stop()
	}
	if asyncWorker != nil {
		asyncWorker.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kestrel shutdown complete")
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🪶 KESTREL                  ║")
	fmt.Println("  ║    Real-Time Transaction Risk Scoring     ║")
	fmt.Println("  ║       Hovering over every payment.        ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /analyze                - Score a transaction")
	fmt.Println("    GET  /transactions?days=N    - Recent transactions")
	fmt.Println("    GET  /drift/status           - Drift detector state")
	fmt.Println("    POST /drift/reset            - Rebaseline drift detector")
	fmt.Println("    GET  /customer/{id}/profile  - Customer risk profile")
	fmt.Println("    GET  /evaluations/{id}       - Evaluation by ID")
	fmt.Println("    GET  /stats                  - Window statistics")
	fmt.Println("    GET  /health                 - Health check")
	fmt.Println("    GET  /metrics                - Prometheus metrics")
	fmt.Println()
}
