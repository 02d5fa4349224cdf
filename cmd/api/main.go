package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xelth-com/garmentflow/internal/config"
	"github.com/xelth-com/garmentflow/internal/database"
	"github.com/xelth-com/garmentflow/internal/handlers"
	"github.com/xelth-com/garmentflow/internal/services/quality"
	"github.com/xelth-com/garmentflow/internal/services/sales"
	"github.com/xelth-com/garmentflow/internal/services/samples"
	"github.com/xelth-com/garmentflow/internal/services/workflow"
	"github.com/xelth-com/garmentflow/internal/services/workorder"
	"github.com/xelth-com/garmentflow/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// 2. Initialize database (embedded or external)
	db, err := database.Connect(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// 3. Synchronize schema
	if err := database.Migrate(db.DB); err != nil {
		logger.Fatal("Schema migration failed", zap.Error(err))
	}
	logger.Info("Schema synchronized")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 4. Wire services
	hub := websocket.NewHub(logger.Named("ws"))
	go hub.Run(ctx)

	engine := workflow.NewEngine(db.DB,
		workflow.WithLogger(logger.Named("workflow")),
		workflow.WithPublisher(hub),
	)
	router := handlers.NewRouter(db.DB, cfg, handlers.Services{
		Engine:     engine,
		WorkOrders: workorder.NewService(db.DB, engine, logger.Named("workorder")),
		Quality:    quality.NewService(db.DB, engine, logger.Named("quality")),
		Sales:      sales.NewService(db.DB, logger.Named("sales")),
		Samples:    samples.NewService(db.DB, logger.Named("samples")),
	}, hub, logger.Named("http"))

	// 5. Start server with graceful shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Port), zap.String("env", cfg.NodeEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	sig := <-shutdown
	logger.Info("Shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	stop()

	// Closing the database also stops embedded PostgreSQL
	if err := db.Close(); err != nil {
		logger.Error("Database close error", zap.Error(err))
	}
	logger.Info("Shutdown complete")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}
