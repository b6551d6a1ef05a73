package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/csvgate/pkg/cli/config"
	"github.com/secmon-lab/csvgate/pkg/ui"
	"github.com/secmon-lab/csvgate/pkg/uploader"
	"github.com/urfave/cli/v3"
)

func cmdUpload() *cli.Command {
	var (
		uploadCfg config.Upload
		notifyCfg config.Notify
	)

	flags := joinFlags(
		uploadCfg.Flags(),
		notifyCfg.Flags(),
	)

	return &cli.Command{
		Name:  "upload",
		Usage: "Upload users, orders and products CSV files to a csvgate server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := uploadCfg.ApplyProfile(&notifyCfg, c.IsSet); err != nil {
				return err
			}

			logger := ctxlog.From(ctx)
			logger.Debug("Upload configuration",
				slog.Any("upload", uploadCfg),
				slog.Any("notify", notifyCfg),
			)

			notifiers, err := notifyCfg.Configure(os.Stdout, os.Stdin)
			if err != nil {
				return err
			}

			client, err := uploadCfg.HTTPClient()
			if err != nil {
				return err
			}
			form, err := uploadCfg.Form(ctx, client)
			if err != nil {
				return err
			}

			spinner := ui.NewSpinner(os.Stderr, "Uploading CSV files...")
			handler := uploader.New(uploadCfg.URL, form, spinner, notifiers.Notifier, notifiers.Alerter,
				uploader.WithHTTPClient(client),
			)

			n, err := handler.Submit(ctx)
			if notifiers.Banner != nil {
				notifiers.Banner.Wait()
			}
			if err != nil {
				return err
			}
			if n.Severity.IsError() {
				return goerr.New("upload did not succeed",
					goerr.V("outcome", n.Outcome),
					goerr.V("endpoint", handler.Endpoint()))
			}
			return nil
		},
	}
}
