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
	"github.com/secmon-lab/csvgate/pkg/cli/config"
	controller "github.com/secmon-lab/csvgate/pkg/controller/http"
	"github.com/secmon-lab/csvgate/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg config.Server
		repoCfg   config.Repository
		csrfCfg   config.CSRF
		slackCfg  config.Slack
	)

	flags := joinFlags(
		serverCfg.Flags(),
		repoCfg.Flags(),
		csrfCfg.Flags(),
		slackCfg.Flags(),
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Start HTTP server accepting CSV uploads",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			logger.Info("Starting csvgate server",
				slog.Any("server", serverCfg),
				slog.Any("repository", repoCfg),
				slog.Any("csrf", csrfCfg),
				slog.Any("slack", slackCfg),
			)

			maxUploadSize, err := serverCfg.MaxUploadSize()
			if err != nil {
				return err
			}

			// Create repository using config
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			tokens, err := csrfCfg.Configure(logger)
			if err != nil {
				return goerr.Wrap(err, "failed to configure CSRF tokens")
			}

			var importOpts []usecase.ImportOption
			if reporter := slackCfg.ConfigureOptional(logger); reporter != nil {
				importOpts = append(importOpts, usecase.WithReporter(reporter))
			}
			importUC := usecase.NewImport(repo, importOpts...)

			// Create HTTP server
			server, err := controller.NewServer(ctx, serverCfg.Addr, importUC, tokens,
				controller.WithMaxUploadSize(maxUploadSize),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "HTTP server error", goerr.V("addr", serverCfg.Addr))
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
			case err := <-errCh:
				return err
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
