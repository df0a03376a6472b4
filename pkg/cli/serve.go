package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/satchel/pkg/cli/config"
	controller "github.com/m-mizutani/satchel/pkg/controller/http"
	"github.com/m-mizutani/satchel/pkg/infra/archive"
	"github.com/m-mizutani/satchel/pkg/infra/fs"
	"github.com/m-mizutani/satchel/pkg/infra/tempdir"
	"github.com/m-mizutani/satchel/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var serverCfg config.Server

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   serverCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := serverCfg.LoadFile(c.IsSet); err != nil {
				return err
			}
			if err := serverCfg.Validate(); err != nil {
				return err
			}

			logger := ctxlog.From(ctx)
			logger.Info("Starting satchel server", slog.Any("config", serverCfg))

			var wsOpts []tempdir.Option
			if serverCfg.TempDir != "" {
				wsOpts = append(wsOpts, tempdir.WithRoot(serverCfg.TempDir))
			}
			workspace := tempdir.New(wsOpts...)

			// Create use cases
			downloadUC := usecase.NewDownload(fs.NewLocal(), archive.New(), workspace)

			// Create HTTP server with options
			server, err := controller.NewServer(
				ctx,
				downloadUC,
				controller.WithAddr(serverCfg.Addr),
				controller.WithEndpoint(serverCfg.Endpoint),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			sweepCtx, stopSweep := context.WithCancel(ctx)
			defer stopSweep()
			if serverCfg.SweepInterval > 0 {
				logger.Info("Temp sweeper enabled",
					slog.String("root", workspace.Root()),
					slog.Duration("interval", serverCfg.SweepInterval),
					slog.Duration("max_age", serverCfg.SweepMaxAge),
				)
				go workspace.RunSweeper(sweepCtx, serverCfg.SweepInterval, serverCfg.SweepMaxAge)
			}

			// Start server in goroutine
			go func() {
				logger.Info("HTTP server starting",
					slog.String("addr", serverCfg.Addr),
					slog.String("endpoint", serverCfg.Endpoint),
				)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
