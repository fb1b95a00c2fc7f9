package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/clintrovert/ticketsmith/internal/api/rest"
	"github.com/clintrovert/ticketsmith/internal/pipeline"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the brief submission API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			level := zapcore.InfoLevel
			if ctx.verbose {
				level = zapcore.DebugLevel
			}
			logger, err := ctx.newLogger(level, "json")
			if err != nil {
				return err
			}
			defer logger.Sync()

			client, err := ctx.newTracker(cfg, logger)
			if err != nil {
				return err
			}

			orchestrator := pipeline.New(client, ctx.newStructurizer(cfg, logger), pipeline.Options{
				ProjectKey:   cfg.Jira.ProjectKey,
				DefaultEpic:  cfg.Jira.EpicName,
				SubtaskDelay: cfg.SubtaskDelay,
			}, nil, logger)

			handler := rest.NewHandler(orchestrator, client.BrowseURL, cfg.Jira.DryRun, logger)

			if !cmd.Flags().Changed("port") {
				port = cfg.RESTPort
			}
			restAddr := fmt.Sprintf(":%s", port)
			restServer := &http.Server{
				Addr:              restAddr,
				Handler:           rest.NewRouter(handler),
				ReadHeaderTimeout: 10 * time.Second,
			}

			return serve(cmd.Context(), restServer, logger)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Listen port (default from REST_PORT)")

	return cmd
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully
func serve(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting REST API server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start REST server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down REST server: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
