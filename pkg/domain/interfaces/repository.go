package interfaces

import (
	"context"

	"github.com/secmon-lab/csvgate/pkg/domain/model"
	"github.com/secmon-lab/csvgate/pkg/domain/types"
)

// Repository defines the interface for imported record persistence
type Repository interface {
	// User operations
	UserExists(ctx context.Context, id types.UserID) (bool, error)
	CreateUsers(ctx context.Context, users []*model.User) error
	GetUser(ctx context.Context, id types.UserID) (*model.User, error)

	// Product operations
	ProductExists(ctx context.Context, id types.ProductID) (bool, error)
	CreateProducts(ctx context.Context, products []*model.Product) error
	GetProduct(ctx context.Context, id types.ProductID) (*model.Product, error)

	// Order operations
	GetOrder(ctx context.Context, id types.OrderID) (*model.Order, error)

	// RunOrderTx runs fn inside a transaction. Writes made through tx are
	// committed only when fn returns nil.
	RunOrderTx(ctx context.Context, fn func(ctx context.Context, tx OrderTx) error) error

	// Close closes the repository connection
	Close() error
}

// OrderTx is the view of the store available inside an orders transaction.
// Lookups return an error tagged model.ErrTagNotFound for missing records.
type OrderTx interface {
	OrderExists(ctx context.Context, id types.OrderID) (bool, error)
	GetUser(ctx context.Context, id types.UserID) (*model.User, error)
	// LockProduct reads the product and holds it until the transaction ends
	LockProduct(ctx context.Context, id types.ProductID) (*model.Product, error)
	CreateOrders(ctx context.Context, orders []*model.Order) error
}
