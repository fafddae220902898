package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/copyleftdev/newtonopt/internal/config"
	"github.com/copyleftdev/newtonopt/internal/logging"
	"github.com/copyleftdev/newtonopt/internal/server"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "optional YAML configuration file")
	flag.Parse()

	// Load configuration
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		// Use standard error as fallback if config loading fails
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	serviceLogger := logger.With(
		zap.String("service", "newton-minimization-server"),
		zap.String("version", version),
		zap.String("environment", cfg.Environment),
	)
	zap.ReplaceGlobals(serviceLogger)

	srv := server.NewServer(cfg, serviceLogger)
	httpServer := srv.NewHTTPServer()

	go func() {
		serviceLogger.Info("Starting server", zap.String("address", httpServer.Addr))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serviceLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	serviceLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		serviceLogger.Error("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}

	if err := srv.Close(); err != nil {
		serviceLogger.Error("error closing server resources", zap.Error(err))
	}

	serviceLogger.Info("server exited properly")
}
