package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/csvgate/pkg/domain/interfaces"
	"github.com/secmon-lab/csvgate/pkg/repository"
	"github.com/urfave/cli/v3"
)

// Repository backends
const (
	BackendAuto      = "auto"
	BackendMemory    = "memory"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

// Repository selects the store imported records are written to
type Repository struct {
	Backend   string
	Postgres  Postgres
	Firestore Firestore
}

// Flags returns CLI flags for repository selection and every backend
func (r *Repository) Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "repository",
			Usage:       "Record store (auto, memory, postgres, firestore). auto picks the first configured of postgres and firestore",
			Category:    "Repository",
			Value:       BackendAuto,
			Sources:     cli.EnvVars("CSVGATE_REPOSITORY"),
			Destination: &r.Backend,
		},
	}
	flags = append(flags, r.Postgres.Flags()...)
	flags = append(flags, r.Firestore.Flags()...)
	return flags
}

// Configure creates the selected repository
func (r *Repository) Configure(ctx context.Context) (interfaces.Repository, error) {
	logger := ctxlog.From(ctx)

	backend, err := r.resolve()
	if err != nil {
		return nil, err
	}

	switch backend {
	case BackendPostgres:
		repo, err := r.Postgres.Configure(ctx)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case BackendFirestore:
		repo, err := r.Firestore.Configure(ctx)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		logger.Warn("Using memory database. The data will be removed when shutting down")
		return repository.NewMemory(), nil
	}
}

func (r *Repository) resolve() (string, error) {
	switch r.Backend {
	case BackendAuto, "":
		switch {
		case r.Postgres.IsConfigured():
			return BackendPostgres, nil
		case r.Firestore.IsConfigured():
			return BackendFirestore, nil
		default:
			return BackendMemory, nil
		}
	case BackendMemory, BackendPostgres, BackendFirestore:
		return r.Backend, nil
	default:
		return "", goerr.New("invalid repository backend", goerr.V("backend", r.Backend))
	}
}

// LogValue returns structured log value
func (r Repository) LogValue() slog.Value {
	backend, _ := r.resolve()
	return slog.GroupValue(
		slog.String("backend", backend),
		slog.Any("postgres", r.Postgres),
		slog.Any("firestore", r.Firestore),
	)
}
