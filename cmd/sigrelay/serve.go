package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/sigrelay/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the relay server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize logger
	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("initializing app: %w", err)
	}

	server, err := a.Server()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	log.Info("starting relay server",
		zap.String("addr", server.Addr()),
		zap.Bool("auth", cfg.Server.APIKey != ""),
		zap.Bool("fundamentals", cfg.Fundamentals.Enabled),
	)

	routeCtx, stopRouter := context.WithCancel(context.Background())
	defer stopRouter()
	a.Router().StartCleanupRoutine(routeCtx, cfg.Routing.Cooldown)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case sig := <-quit:
		log.Info("received signal", zap.String("signal", sig.String()))
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	log.Info("relay server stopped")
	return nil
}
