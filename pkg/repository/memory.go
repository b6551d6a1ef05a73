package repository

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/csvgate/pkg/domain/interfaces"
	"github.com/secmon-lab/csvgate/pkg/domain/model"
	"github.com/secmon-lab/csvgate/pkg/domain/types"
)

// Memory implements Repository interface with in-memory storage
type Memory struct {
	mu       sync.RWMutex
	users    map[types.UserID]*model.User
	products map[types.ProductID]*model.Product
	orders   map[types.OrderID]*model.Order
}

// NewMemory creates a new memory repository
func NewMemory() *Memory {
	return &Memory{
		users:    make(map[types.UserID]*model.User),
		products: make(map[types.ProductID]*model.Product),
		orders:   make(map[types.OrderID]*model.Order),
	}
}

var _ interfaces.Repository = (*Memory)(nil)

// UserExists checks if a user with the ID is stored
func (m *Memory) UserExists(ctx context.Context, id types.UserID) (bool, error) {
	if id == "" {
		return false, goerr.New("user ID is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.users[id]
	return exists, nil
}

// CreateUsers stores all users or none of them
func (m *Memory) CreateUsers(ctx context.Context, users []*model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[types.UserID]bool, len(users))
	for _, user := range users {
		if user == nil || user.ID == "" {
			return goerr.New("user ID is empty")
		}
		if _, exists := m.users[user.ID]; exists || seen[user.ID] {
			return goerr.New("user already exists", goerr.V("id", user.ID))
		}
		seen[user.ID] = true
	}

	for _, user := range users {
		// Deep copy to prevent external modifications
		userCopy := *user
		m.users[user.ID] = &userCopy
	}
	return nil
}

// GetUser retrieves a user by ID
func (m *Memory) GetUser(ctx context.Context, id types.UserID) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getUser(id)
}

func (m *Memory) getUser(id types.UserID) (*model.User, error) {
	user, exists := m.users[id]
	if !exists {
		return nil, goerr.New("user not found", goerr.V("id", id), goerr.T(model.ErrTagNotFound))
	}

	// Return a copy to prevent external modifications
	userCopy := *user
	return &userCopy, nil
}

// ProductExists checks if a product with the ID is stored
func (m *Memory) ProductExists(ctx context.Context, id types.ProductID) (bool, error) {
	if id == "" {
		return false, goerr.New("product ID is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.products[id]
	return exists, nil
}

// CreateProducts stores all products or none of them
func (m *Memory) CreateProducts(ctx context.Context, products []*model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[types.ProductID]bool, len(products))
	for _, product := range products {
		if product == nil || product.ID == "" {
			return goerr.New("product ID is empty")
		}
		if _, exists := m.products[product.ID]; exists || seen[product.ID] {
			return goerr.New("product already exists", goerr.V("id", product.ID))
		}
		seen[product.ID] = true
	}

	for _, product := range products {
		productCopy := *product
		m.products[product.ID] = &productCopy
	}
	return nil
}

// GetProduct retrieves a product by ID
func (m *Memory) GetProduct(ctx context.Context, id types.ProductID) (*model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getProduct(id)
}

func (m *Memory) getProduct(id types.ProductID) (*model.Product, error) {
	product, exists := m.products[id]
	if !exists {
		return nil, goerr.New("product not found", goerr.V("id", id), goerr.T(model.ErrTagNotFound))
	}

	productCopy := *product
	return &productCopy, nil
}

// GetOrder retrieves an order by ID
func (m *Memory) GetOrder(ctx context.Context, id types.OrderID) (*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, exists := m.orders[id]
	if !exists {
		return nil, goerr.New("order not found", goerr.V("id", id), goerr.T(model.ErrTagNotFound))
	}

	orderCopy := *order
	return &orderCopy, nil
}

// RunOrderTx runs fn holding the write lock; staged orders are applied only
// when fn succeeds
func (m *Memory) RunOrderTx(ctx context.Context, fn func(ctx context.Context, tx interfaces.OrderTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{m: m, staged: make(map[types.OrderID]*model.Order)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	for id, order := range tx.staged {
		m.orders[id] = order
	}
	return nil
}

// Close does nothing for memory repository
func (m *Memory) Close() error {
	return nil
}

// memoryTx runs with Memory.mu held by RunOrderTx
type memoryTx struct {
	m      *Memory
	staged map[types.OrderID]*model.Order
}

func (tx *memoryTx) OrderExists(ctx context.Context, id types.OrderID) (bool, error) {
	if _, exists := tx.m.orders[id]; exists {
		return true, nil
	}
	_, staged := tx.staged[id]
	return staged, nil
}

func (tx *memoryTx) GetUser(ctx context.Context, id types.UserID) (*model.User, error) {
	return tx.m.getUser(id)
}

func (tx *memoryTx) LockProduct(ctx context.Context, id types.ProductID) (*model.Product, error) {
	return tx.m.getProduct(id)
}

func (tx *memoryTx) CreateOrders(ctx context.Context, orders []*model.Order) error {
	for _, order := range orders {
		if order == nil || order.ID == "" {
			return goerr.New("order ID is empty")
		}
		if exists, _ := tx.OrderExists(ctx, order.ID); exists {
			return goerr.New("order already exists", goerr.V("id", order.ID))
		}
		if _, ok := tx.m.users[order.UserID]; !ok {
			return goerr.New("order references unknown user", goerr.V("id", order.ID), goerr.V("user_id", order.UserID))
		}
		if _, ok := tx.m.products[order.ProductID]; !ok {
			return goerr.New("order references unknown product", goerr.V("id", order.ID), goerr.V("product_id", order.ProductID))
		}
		orderCopy := *order
		tx.staged[order.ID] = &orderCopy
	}
	return nil
}
