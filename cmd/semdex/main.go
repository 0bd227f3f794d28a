package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"semdex/internal/config"
	"semdex/internal/fsys"
	"semdex/internal/logging"
	"semdex/internal/mcp"
	"semdex/internal/service"
	"semdex/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Handle version flag
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("Semdex MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		os.Exit(0)
	}

	// Early failures log to stderr (stdout reserved for MCP protocol)
	log.SetOutput(os.Stderr)

	cfg := config.Load()

	dbPath, err := config.ExpandHome(cfg.DB.Path)
	if err != nil {
		log.Fatalf("Failed to resolve database path: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	logFile := cfg.Log.FilePath
	if logFile != "" {
		if logFile, err = config.ExpandHome(logFile); err != nil {
			log.Fatalf("Failed to resolve log file path: %v", err)
		}
	}

	logger, err := logging.New(logFile, cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("semdex starting",
		zap.String("version", version),
		zap.String("build_mode", storage.BuildMode),
		zap.String("driver", storage.DriverName),
		zap.String("db_path", dbPath))

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}

	svc := service.New(store, fsys.NewOS(), service.Config{
		PollInterval:       cfg.Watch.PollInterval,
		Ignore:             cfg.Watch.Ignore,
		Summarize:          cfg.Index.Summarize,
		MaxChunkTokens:     cfg.Index.MaxChunkTokens,
		ChunkOverlapTokens: cfg.Index.ChunkOverlapTokens,
	}, logger)

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		logger.Fatal("Failed to start service", zap.Error(err))
	}

	server := mcp.NewServer(svc, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		logger.Info("MCP server ready, listening on stdio")
		errChan <- server.Serve(ctx)
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down gracefully", zap.String("signal", sig.String()))
		cancel()
	case err := <-errChan:
		if err != nil {
			logger.Error("Server error", zap.Error(err))
		}
	}

	if err := svc.Close(); err != nil {
		logger.Warn("Service shutdown error", zap.Error(err))
	}
	if err := store.Close(); err != nil {
		logger.Warn("Storage shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}
