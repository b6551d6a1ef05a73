package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/csvgate/pkg/domain/interfaces"
	"github.com/secmon-lab/csvgate/pkg/domain/model"
	"github.com/secmon-lab/csvgate/pkg/domain/types"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS products (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	price      DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS orders (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	quantity   INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);`

// Postgres implements Repository interface with PostgreSQL
type Postgres struct {
	db *sql.DB
}

var _ interfaces.Repository = (*Postgres)(nil)

// NewPostgres connects to PostgreSQL and creates the tables if needed
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database")
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to ping database")
	}

	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to create schema")
	}

	ctxlog.From(ctx).Info("Postgres repository initialized successfully")
	return &Postgres{db: db}, nil
}

// UserExists checks if a user row exists
func (p *Postgres) UserExists(ctx context.Context, id types.UserID) (bool, error) {
	if id == "" {
		return false, goerr.New("user ID is empty")
	}
	return exists(ctx, p.db, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id.String())
}

// CreateUsers inserts users with COPY in one transaction
func (p *Postgres) CreateUsers(ctx context.Context, users []*model.User) error {
	if len(users) == 0 {
		return nil
	}
	return p.copyIn(ctx, pq.CopyIn("users", "id", "name", "email", "created_at"), len(users), func(i int) []any {
		u := users[i]
		return []any{u.ID.String(), u.Name, u.Email, createdAt(u.CreatedAt)}
	})
}

// GetUser retrieves a user by ID
func (p *Postgres) GetUser(ctx context.Context, id types.UserID) (*model.User, error) {
	return scanUser(p.db.QueryRowContext(ctx,
		`SELECT id, name, email, created_at FROM users WHERE id = $1`, id.String()), id)
}

// ProductExists checks if a product row exists
func (p *Postgres) ProductExists(ctx context.Context, id types.ProductID) (bool, error) {
	if id == "" {
		return false, goerr.New("product ID is empty")
	}
	return exists(ctx, p.db, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, id.String())
}

// CreateProducts inserts products with COPY in one transaction
func (p *Postgres) CreateProducts(ctx context.Context, products []*model.Product) error {
	if len(products) == 0 {
		return nil
	}
	return p.copyIn(ctx, pq.CopyIn("products", "id", "name", "price", "created_at"), len(products), func(i int) []any {
		pr := products[i]
		return []any{pr.ID.String(), pr.Name, pr.Price, createdAt(pr.CreatedAt)}
	})
}

// GetProduct retrieves a product by ID
func (p *Postgres) GetProduct(ctx context.Context, id types.ProductID) (*model.Product, error) {
	return scanProduct(p.db.QueryRowContext(ctx,
		`SELECT id, name, price, created_at FROM products WHERE id = $1`, id.String()), id)
}

// GetOrder retrieves an order by ID
func (p *Postgres) GetOrder(ctx context.Context, id types.OrderID) (*model.Order, error) {
	var (
		order     model.Order
		orderID   string
		userID    string
		productID string
	)
	err := p.db.QueryRowContext(ctx,
		`SELECT id, user_id, product_id, quantity, created_at FROM orders WHERE id = $1`, id.String()).
		Scan(&orderID, &userID, &productID, &order.Quantity, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.New("order not found", goerr.V("id", id), goerr.T(model.ErrTagNotFound))
		}
		return nil, goerr.Wrap(err, "failed to get order", goerr.V("id", id))
	}
	order.ID = types.OrderID(orderID)
	order.UserID = types.UserID(userID)
	order.ProductID = types.ProductID(productID)
	return &order, nil
}

// RunOrderTx runs fn in a database transaction
func (p *Postgres) RunOrderTx(ctx context.Context, fn func(ctx context.Context, tx interfaces.OrderTx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}

	if err := fn(ctx, &postgresTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			ctxlog.From(ctx).Error("Failed to rollback orders transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit transaction", pqCode(err))
	}
	return nil
}

// Close closes the database connection
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) copyIn(ctx context.Context, query string, n int, row func(i int) []any) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := copyRows(ctx, tx, query, n, row); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit transaction", pqCode(err))
	}
	return nil
}

func copyRows(ctx context.Context, tx *sql.Tx, query string, n int, row func(i int) []any) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return goerr.Wrap(err, "failed to prepare copy", pqCode(err))
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, row(i)...); err != nil {
			return goerr.Wrap(err, "failed to buffer row", goerr.V("row", i), pqCode(err))
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return goerr.Wrap(err, "failed to copy rows", pqCode(err))
	}
	return nil
}

type postgresTx struct {
	tx *sql.Tx
}

func (t *postgresTx) OrderExists(ctx context.Context, id types.OrderID) (bool, error) {
	return exists(ctx, t.tx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id.String())
}

func (t *postgresTx) GetUser(ctx context.Context, id types.UserID) (*model.User, error) {
	return scanUser(t.tx.QueryRowContext(ctx,
		`SELECT id, name, email, created_at FROM users WHERE id = $1`, id.String()), id)
}

func (t *postgresTx) LockProduct(ctx context.Context, id types.ProductID) (*model.Product, error) {
	return scanProduct(t.tx.QueryRowContext(ctx,
		`SELECT id, name, price, created_at FROM products WHERE id = $1 FOR UPDATE`, id.String()), id)
}

func (t *postgresTx) CreateOrders(ctx context.Context, orders []*model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	return copyRows(ctx, t.tx, pq.CopyIn("orders", "id", "user_id", "product_id", "quantity", "created_at"), len(orders), func(i int) []any {
		o := orders[i]
		return []any{o.ID.String(), o.UserID.String(), o.ProductID.String(), o.Quantity, createdAt(o.CreatedAt)}
	})
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func exists(ctx context.Context, q queryer, query string, id string) (bool, error) {
	var found bool
	if err := q.QueryRowContext(ctx, query, id).Scan(&found); err != nil {
		return false, goerr.Wrap(err, "failed to check existence", goerr.V("id", id), pqCode(err))
	}
	return found, nil
}

func scanUser(row *sql.Row, id types.UserID) (*model.User, error) {
	var (
		user   model.User
		userID string
	)
	if err := row.Scan(&userID, &user.Name, &user.Email, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.New("user not found", goerr.V("id", id), goerr.T(model.ErrTagNotFound))
		}
		return nil, goerr.Wrap(err, "failed to get user", goerr.V("id", id), pqCode(err))
	}
	user.ID = types.UserID(userID)
	return &user, nil
}

func scanProduct(row *sql.Row, id types.ProductID) (*model.Product, error) {
	var (
		product   model.Product
		productID string
	)
	if err := row.Scan(&productID, &product.Name, &product.Price, &product.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.New("product not found", goerr.V("id", id), goerr.T(model.ErrTagNotFound))
		}
		return nil, goerr.Wrap(err, "failed to get product", goerr.V("id", id), pqCode(err))
	}
	product.ID = types.ProductID(productID)
	return &product, nil
}

// pqCode attaches the SQLSTATE of a PostgreSQL error, if any
func pqCode(err error) goerr.Option {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return goerr.V("sqlstate", string(pqErr.Code))
	}
	return goerr.V("sqlstate", "")
}

func createdAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
