package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vertextoedge/mcfetch/internal/service/server"
)

func newServeCmd(o *globalOptions) *cobra.Command {
	var bindAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the local HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(o, bindAddr)
		},
	}

	cmd.Flags().StringVar(&bindAddr, "bind", "", "override http.bind_addr")
	return cmd
}

func runServe(o *globalOptions, bindAddr string) error {
	a, err := newApp(o)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	if bindAddr != "" {
		cfg.HTTP.BindAddr = bindAddr
	}

	a.logger.Info("starting mcfetch",
		zap.String("version", version),
		zap.String("config", o.configPath))

	maintenanceService := a.maintenance()

	httpServer := server.New(&server.Config{
		BindAddr:      cfg.HTTP.BindAddr,
		AdminUsername: cfg.HTTP.AdminUsername,
		AdminPassword: cfg.HTTP.AdminPassword,
		ReadTimeout:   cfg.HTTP.GetReadTimeout(),
		WriteTimeout:  cfg.HTTP.GetWriteTimeout(),
		IdleTimeout:   cfg.HTTP.GetIdleTimeout(),
	}, a.downloader, a.resolver, a.store, a.metrics, a.logger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	go func() {
		if err := maintenanceService.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("maintenance service stopped with error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	a.logger.Info("application started successfully",
		zap.String("http_addr", cfg.HTTP.BindAddr),
		zap.String("root_dir", a.fs.RootDir()))

	var runErr error
	select {
	case <-sigChan:
		a.logger.Info("shutdown signal received, stopping services...")
	case runErr = <-serverErr:
		if runErr != nil {
			a.logger.Error("HTTP server failed", zap.Error(runErr))
		}
	}

	cancel()
	maintenanceService.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("failed to stop HTTP server gracefully", zap.Error(err))
	}

	a.logger.Info("application stopped successfully")
	return runErr
}
