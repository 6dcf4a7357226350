package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"executorjenkins/internal/api"
	"executorjenkins/internal/config"
	"executorjenkins/internal/logger"
	"executorjenkins/internal/observability"
	"executorjenkins/internal/storage"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the build API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	cfg := configData
	logger.Info("Starting executor-jenkins service", "log_level", config.GetLogLevel(), "jenkins", cfg.Jenkins.URL)

	if err := storage.Init(cfg.Database.Path); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logger.Error("Failed to close database connection", "error", err)
		}
	}()

	metrics, metricsHandler, err := observability.NewMetrics(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	exec, cb := newExecutor(cfg, metrics)
	router := api.NewRouter(cfg, api.Dependencies{
		Executor:       exec,
		Breaker:        cb,
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
	})

	// PORT overrides the configured port
	port := cfg.Server.Port
	if envPort := os.Getenv("PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil && p > 0 {
			port = p
		}
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-quit:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("Initiating graceful shutdown", "timeout", shutdownTimeout.String())
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err, "timeout", shutdownTimeout.String())
	} else {
		logger.Info("Server shutdown gracefully")
	}

	logger.Info("Server stopped")
	return nil
}
