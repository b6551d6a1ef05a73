package interfaces

import (
	"context"

	"github.com/secmon-lab/csvgate/pkg/domain/model"
)

// Import processes one set of uploaded CSV files
type Import interface {
	Run(ctx context.Context, files model.ImportFiles) (*model.ImportResult, error)
}

// TokenService issues and verifies anti-forgery tokens
type TokenService interface {
	Issue() (string, error)
	Verify(token string) error
}
