package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/csvgate/pkg/repository"
	"github.com/urfave/cli/v3"
)

const defaultFirestoreDatabase = "(default)"

// Firestore selects the Firestore database that receives imported users,
// products and orders
type Firestore struct {
	ProjectID        string
	DatabaseID       string
	CollectionPrefix string
}

// Flags returns CLI flags for the Firestore record store
func (f *Firestore) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "GCP project holding the import collections; selects the Firestore store under --repository=auto",
			Category:    "Firestore",
			Sources:     cli.EnvVars("CSVGATE_FIRESTORE_PROJECT"),
			Destination: &f.ProjectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID for the import collections",
			Category:    "Firestore",
			Value:       defaultFirestoreDatabase,
			Sources:     cli.EnvVars("CSVGATE_FIRESTORE_DATABASE"),
			Destination: &f.DatabaseID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection-prefix",
			Usage:       "Prefix for the users, products and orders collection names",
			Category:    "Firestore",
			Sources:     cli.EnvVars("CSVGATE_FIRESTORE_COLLECTION_PREFIX"),
			Destination: &f.CollectionPrefix,
		},
	}
}

// Configure opens the Firestore record store
func (f *Firestore) Configure(ctx context.Context) (*repository.Firestore, error) {
	if !f.IsConfigured() {
		return nil, goerr.New("--firestore-project is required for the firestore repository")
	}

	repo, err := repository.NewFirestore(ctx, f.ProjectID, f.DatabaseID,
		repository.WithCollectionPrefix(f.CollectionPrefix),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open firestore record store",
			goerr.V("project", f.ProjectID),
			goerr.V("database", f.DatabaseID),
			goerr.V("prefix", f.CollectionPrefix),
		)
	}

	return repo, nil
}

// IsConfigured reports whether a project was given
func (f *Firestore) IsConfigured() bool {
	return f.ProjectID != ""
}

// Collections returns the collection names records are written to
func (f *Firestore) Collections() []string {
	return []string{
		f.CollectionPrefix + "users",
		f.CollectionPrefix + "products",
		f.CollectionPrefix + "orders",
	}
}

func (f Firestore) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("project", f.ProjectID),
		slog.String("database", f.DatabaseID),
		slog.Any("collections", f.Collections()),
	)
}
