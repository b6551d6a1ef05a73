package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/secmon-lab/csvgate/pkg/cli"
)

func main() {
	if err := cli.Run(context.Background(), os.Args); err != nil {
		slog.Default().Error("csvgate failed", "error", err)
		os.Exit(1)
	}
}
