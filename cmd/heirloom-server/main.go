// Package main provides the Heirloom API server and extraction worker.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heirloom-app/heirloom-go/internal/config"
	"github.com/heirloom-app/heirloom-go/internal/db"
	"github.com/heirloom-app/heirloom-go/internal/extract"
	"github.com/heirloom-app/heirloom-go/internal/llm"
	"github.com/heirloom-app/heirloom-go/internal/metrics"
	"github.com/heirloom-app/heirloom-go/internal/retrieval"
	"github.com/heirloom-app/heirloom-go/internal/server"
	"github.com/heirloom-app/heirloom-go/internal/storage"
	"github.com/heirloom-app/heirloom-go/internal/worker"
)

func main() {
	wipeDB := flag.Bool("wipe", false, "wipe all data from database on startup (testing only)")
	noWorker := flag.Bool("no-worker", false, "serve the API without the extraction worker")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	slog.SetDefault(logger)
	defer func() {
		if err := closeLog(); err != nil {
			slog.Error("failed to close log file", "error", err)
		}
	}()

	slog.Info("starting heirloom-server", "port", cfg.ServerPort)

	collector := metrics.NewCollector()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	dbClient, err := db.NewClient(ctx, db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, logger, collector)
	if err != nil {
		cancel()
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := dbClient.InitSchema(ctx); err != nil {
		cancel()
		slog.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}
	if *wipeDB || os.Getenv("HEIRLOOM_WIPE_DB") == "true" {
		if err := dbClient.WipeData(ctx); err != nil {
			cancel()
			slog.Error("failed to wipe database", "error", err)
			os.Exit(1)
		}
	}

	objects, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		cancel()
		slog.Error("failed to create object store client", "error", err)
		os.Exit(1)
	}

	model, err := llm.NewModel(ctx, cfg, collector)
	cancel()
	if err != nil {
		slog.Error("failed to create LLM model", "error", err)
		os.Exit(1)
	}
	if model == nil {
		slog.Warn("no LLM provider configured, answers degrade to retrieval digests")
	}

	defer func() {
		if err := dbClient.Close(context.Background()); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	engine := retrieval.NewEngine(
		dbClient,
		llm.NewKeywordExtractor(model, logger),
		objects,
		retrieval.Options{TopK: cfg.Retrieval.TopK, Logger: logger, Metrics: collector},
	)

	extractors := extract.NewSet(cfg.Extraction.ChunkSize, cfg.Extraction.SummaryLen, cfg.Extraction.EvidenceLen)
	w := worker.New(dbClient, objects, extractors, worker.Options{
		PollInterval:   cfg.Worker.PollInterval,
		MaxObjectBytes: cfg.Worker.MaxObjectBytes,
		Logger:         logger,
		Metrics:        collector,
	})
	if !*noWorker {
		w.Start()
	}

	srv := server.New(dbClient, objects, engine, llm.NewAnswerer(model, logger), server.Options{
		MaxObjectBytes: cfg.Worker.MaxObjectBytes,
		UploadExpiry:   cfg.Storage.PresignExpiry,
		Logger:         logger,
		Metrics:        collector,
	})

	go func() {
		// Listen returns nil after a clean Shutdown.
		if err := srv.Listen(":" + cfg.ServerPort); err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	// Stop taking requests first, then let the worker finish its job attempt.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	w.Stop(cfg.Worker.StopTimeout)

	slog.Info("server stopped")
}
