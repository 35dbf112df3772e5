package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-content-migrate/pkg/migrate/api"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload and migration API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			pipeline, err := cfg.BuildPipeline(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to build pipeline: %w", err)
			}
			defer pipeline.Close()

			handler := api.NewMigrationHandler(pipeline.Intake, pipeline.Runner, pipeline.Store, cfg.MaxUploadBytes)
			httpServer := &http.Server{
				Addr:    fmt.Sprintf(":%s", cfg.Port),
				Handler: api.NewRouter(handler, cfg.Environment),
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("Migration server starting",
					"port", cfg.Port,
					"env", cfg.Environment,
					"database", cfg.DatabaseType(),
					"migrations", pipeline.Runner.Migrations(),
				)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return fmt.Errorf("server error: %w", err)
			case <-quit:
			}
			slog.Info("Shutting down server...")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(ctx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}

			slog.Info("Server exiting")
			return nil
		},
	}
}
