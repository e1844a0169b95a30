package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omarluq/dashcache/internal/di"
	"github.com/omarluq/dashcache/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the caching gateway",
	Long: `Start the gateway. The config file is watched and route TTLs, the backend
rate limit and the admin key are reloaded without a restart.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	path := configPath()
	container := di.NewContainer(path)

	logSvc, err := di.Invoke[*di.LoggerService](container)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to initialize")
		return err
	}
	log.Logger = *logSvc.Logger
	zerolog.DefaultContextLogger = logSvc.Logger

	serverSvc, err := di.Invoke[*di.ServerService](container)
	if err != nil {
		log.Error().Err(err).Msg("failed to build server")
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	di.MustInvoke[*di.ConfigService](container).StartWatching(ctx)

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("listen", serverSvc.Server.Addr()).
			Str("version", version.Version).
			Msg("starting dashcache")
		if err := serverSvc.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			log.Error().Err(err).Msg("server error")
			_ = container.Shutdown()
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := container.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
		return err
	}

	log.Info().Msg("server stopped")
	return nil
}
