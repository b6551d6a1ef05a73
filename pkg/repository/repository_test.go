package repository_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/csvgate/pkg/domain/interfaces"
	"github.com/secmon-lab/csvgate/pkg/domain/model"
	"github.com/secmon-lab/csvgate/pkg/domain/types"
	"github.com/secmon-lab/csvgate/pkg/repository"
)

func uniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func seed(t *testing.T, ctx context.Context, repo interfaces.Repository) (*model.User, *model.Product) {
	t.Helper()
	user := &model.User{
		ID:        types.UserID(uniqueID("user")),
		Name:      "Alice",
		Email:     "alice@example.com",
		CreatedAt: time.Now().UTC(),
	}
	product := &model.Product{
		ID:        types.ProductID(uniqueID("product")),
		Name:      "Pen",
		Price:     1.5,
		CreatedAt: time.Now().UTC(),
	}
	gt.NoError(t, repo.CreateUsers(ctx, []*model.User{user})).Required()
	gt.NoError(t, repo.CreateProducts(ctx, []*model.Product{product})).Required()
	return user, product
}

func testRepository(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Run("CreateUsers", func(t *testing.T) {
		repo := newRepo(t)
		defer repo.Close()
		ctx := context.Background()

		user, _ := seed(t, ctx, repo)

		exists, err := repo.UserExists(ctx, user.ID)
		gt.NoError(t, err)
		gt.True(t, exists)

		retrieved, err := repo.GetUser(ctx, user.ID)
		gt.NoError(t, err)
		gt.Equal(t, retrieved.ID, user.ID)
		gt.Equal(t, retrieved.Name, user.Name)
		gt.Equal(t, retrieved.Email, user.Email)
	})

	t.Run("CreateUsers_Duplicate", func(t *testing.T) {
		repo := newRepo(t)
		defer repo.Close()
		ctx := context.Background()

		user, _ := seed(t, ctx, repo)
		gt.Error(t, repo.CreateUsers(ctx, []*model.User{user}))
	})

	t.Run("CreateUsers_AllOrNone", func(t *testing.T) {
		repo := newRepo(t)
		defer repo.Close()
		ctx := context.Background()

		existing, _ := seed(t, ctx, repo)
		fresh := &model.User{
			ID:        types.UserID(uniqueID("user")),
			Name:      "Bob",
			Email:     "bob@example.com",
			CreatedAt: time.Now().UTC(),
		}
		gt.Error(t, repo.CreateUsers(ctx, []*model.User{fresh, existing}))

		exists, err := repo.UserExists(ctx, fresh.ID)
		gt.NoError(t, err)
		gt.False(t, exists)
	})

	t.Run("CreateProducts_AllOrNone", func(t *testing.T) {
		repo := newRepo(t)
		defer repo.Close()
		ctx := context.Background()

		_, existing := seed(t, ctx, repo)
		fresh := &model.Product{
			ID:        types.ProductID(uniqueID("product")),
			Name:      "Ink",
			Price:     3,
			CreatedAt: time.Now().UTC(),
		}
		gt.Error(t, repo.CreateProducts(ctx, []*model.Product{fresh, existing}))

		exists, err := repo.ProductExists(ctx, fresh.ID)
		gt.NoError(t, err)
		gt.False(t, exists)
	})

	t.Run("UserExists_NotFound", func(t *testing.T) {
		repo := newRepo(t)
		defer repo.Close()
		ctx := context.Background()

		exists, err := repo.UserExists(ctx, types.UserID(uniqueID("missing")))
		gt.NoError(t, err)
		gt.False(t, exists)

		_, err = repo.GetUser(ctx, types.UserID(uniqueID("missing")))
		gt.Error(t, err)
		gt.B(t, goerr.HasTag(err, model.ErrTagNotFound)).True()
	})

	t.Run("CreateProducts", func(t *testing.T) {
		repo := newRepo(t)
		defer repo.Close()
		ctx := context.Background()

		_, product := seed(t, ctx, repo)

		exists, err := repo.ProductExists(ctx, product.ID)
		gt.NoError(t, err)
		gt.True(t, exists)

		retrieved, err := repo.GetProduct(ctx, product.ID)
		gt.NoError(t, err)
		gt.Equal(t, retrieved.Price, product.Price)
	})

	t.Run("RunOrderTx_Commit", func(t *testing.T) {
		repo := newRepo(t)
		defer repo.Close()
		ctx := context.Background()

		user, product := seed(t, ctx, repo)
		order := &model.Order{
			ID:        types.OrderID(uniqueID("order")),
			UserID:    user.ID,
			ProductID: product.ID,
			Quantity:  3,
			CreatedAt: time.Now().UTC(),
		}

		err := repo.RunOrderTx(ctx, func(ctx context.Context, tx interfaces.OrderTx) error {
			exists, err := tx.OrderExists(ctx, order.ID)
			gt.NoError(t, err)
			gt.False(t, exists)

			_, err = tx.GetUser(ctx, user.ID)
			gt.NoError(t, err)
			_, err = tx.LockProduct(ctx, product.ID)
			gt.NoError(t, err)

			return tx.CreateOrders(ctx, []*model.Order{order})
		})
		gt.NoError(t, err)

		retrieved, err := repo.GetOrder(ctx, order.ID)
		gt.NoError(t, err)
		gt.Equal(t, retrieved.UserID, user.ID)
		gt.Equal(t, retrieved.ProductID, product.ID)
		gt.Equal(t, retrieved.Quantity, 3)
	})

	t.Run("RunOrderTx_Rollback", func(t *testing.T) {
		repo := newRepo(t)
		defer repo.Close()
		ctx := context.Background()

		user, product := seed(t, ctx, repo)
		orderID := types.OrderID(uniqueID("order"))

		err := repo.RunOrderTx(ctx, func(ctx context.Context, tx interfaces.OrderTx) error {
			if err := tx.CreateOrders(ctx, []*model.Order{{
				ID:        orderID,
				UserID:    user.ID,
				ProductID: product.ID,
				Quantity:  1,
			}}); err != nil {
				return err
			}
			return goerr.New("abort")
		})
		gt.Error(t, err)

		_, err = repo.GetOrder(ctx, orderID)
		gt.Error(t, err)
		gt.B(t, goerr.HasTag(err, model.ErrTagNotFound)).True()
	})

	t.Run("RunOrderTx_MissingReferences", func(t *testing.T) {
		repo := newRepo(t)
		defer repo.Close()
		ctx := context.Background()

		err := repo.RunOrderTx(ctx, func(ctx context.Context, tx interfaces.OrderTx) error {
			_, err := tx.GetUser(ctx, types.UserID(uniqueID("missing")))
			gt.B(t, goerr.HasTag(err, model.ErrTagNotFound)).True()

			_, err = tx.LockProduct(ctx, types.ProductID(uniqueID("missing")))
			gt.B(t, goerr.HasTag(err, model.ErrTagNotFound)).True()
			return nil
		})
		gt.NoError(t, err)
	})
}

func TestMemoryRepository(t *testing.T) {
	testRepository(t, func(t *testing.T) interfaces.Repository {
		return repository.NewMemory()
	})
}

func TestPostgresRepository(t *testing.T) {
	databaseURL := os.Getenv("TEST_POSTGRES_URL")
	if databaseURL == "" {
		t.Skip("Skipping Postgres test: TEST_POSTGRES_URL must be set")
	}

	testRepository(t, func(t *testing.T) interfaces.Repository {
		repo, err := repository.NewPostgres(context.Background(), databaseURL)
		gt.NoError(t, err).Required()
		return repo
	})
}

func TestFirestoreRepository(t *testing.T) {
	// Skip test if Firestore test environment variables are not set
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE")

	if projectID == "" || databaseID == "" {
		t.Skip("Skipping Firestore test: TEST_FIRESTORE_PROJECT and TEST_FIRESTORE_DATABASE must be set")
	}

	testRepository(t, func(t *testing.T) interfaces.Repository {
		ctx := context.Background()
		logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
		ctx = ctxlog.With(ctx, logger)

		repo, err := repository.NewFirestore(ctx, projectID, databaseID,
			repository.WithCollectionPrefix("csvgate_test_"),
		)
		gt.NoError(t, err).Required()
		return repo
	})
}
