package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pullconf/internal/api"
	"pullconf/internal/logging"
	"pullconf/internal/reload"
	"pullconf/internal/serverconfig"
	"pullconf/internal/store"
)

var configFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the catalog server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&configFile, "config", "", "optional config file read before environment variables (local testing convenience)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := serverconfig.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: "stdout"})
	logger.Info("starting pullconf-server", "config", cfg.Sanitize())

	st := store.New()
	coordinator := reload.New(cfg.ResourceDir, cfg.AssetDir, st, logger, cfg.WatchResourceDir)
	if err := coordinator.Start(); err != nil {
		return fmt.Errorf("starting reload coordinator: %w", err)
	}
	defer coordinator.Stop()

	router := api.NewRouter(api.RouterConfig{
		Store:           st,
		AssetDir:        cfg.AssetDir,
		Logger:          logger,
		RateLimitPerMin: cfg.RateLimitPerMin,
		RateLimitBurst:  cfg.RateLimitBurst,
	})

	server := &http.Server{
		Addr:    cfg.ListenOn,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", cfg.ListenOn)
		err := server.ListenAndServeTLS(cfg.TLSCertificate, cfg.TLSPrivateKey)
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("serving: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}
