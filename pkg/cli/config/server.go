package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Server holds server configuration
type Server struct {
	Addr         string
	MaxUploadMiB int
}

// Flags returns CLI flags for Server configuration
func (s *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address",
			Value:       "localhost:8080",
			Sources:     cli.EnvVars("CSVGATE_ADDR"),
			Destination: &s.Addr,
		},
		&cli.IntFlag{
			Name:        "max-upload-mib",
			Usage:       "Maximum total size of one upload in MiB",
			Value:       32,
			Sources:     cli.EnvVars("CSVGATE_MAX_UPLOAD_MIB"),
			Destination: &s.MaxUploadMiB,
		},
	}
}

// MaxUploadSize returns the upload limit in bytes
func (s *Server) MaxUploadSize() (int64, error) {
	if s.MaxUploadMiB <= 0 {
		return 0, goerr.New("max upload size must be positive", goerr.V("mib", s.MaxUploadMiB))
	}
	return int64(s.MaxUploadMiB) << 20, nil
}

// LogValue returns structured log value
func (s Server) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("addr", s.Addr),
		slog.Int("max_upload_mib", s.MaxUploadMiB),
	)
}
