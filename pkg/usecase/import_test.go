package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/csvgate/pkg/domain/interfaces"
	"github.com/secmon-lab/csvgate/pkg/domain/model"
	"github.com/secmon-lab/csvgate/pkg/domain/types"
	"github.com/secmon-lab/csvgate/pkg/repository"
	"github.com/secmon-lab/csvgate/pkg/usecase"
)

const (
	usersCSV = "id,name,email\n" +
		"u1,Alice,alice@example.com\n" +
		"u2,Bob,bob@example.com\n"
	productsCSV = "id,name,price\n" +
		"p1,Pen,1.50\n" +
		"p2,Notebook,3\n"
	ordersCSV = "id,user_id,product_id,quantity\n" +
		"o1,u1,p1,2\n" +
		"o2,u2,p2,1\n"
)

func files(users, products, orders string) model.ImportFiles {
	return model.ImportFiles{
		Users:    strings.NewReader(users),
		Products: strings.NewReader(products),
		Orders:   strings.NewReader(orders),
	}
}

func TestImport_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("imports all records", func(t *testing.T) {
		repo := repository.NewMemory()
		uc := usecase.NewImport(repo)

		result, err := uc.Run(ctx, files(usersCSV, productsCSV, ordersCSV))
		gt.NoError(t, err).Required()

		gt.Equal(t, result.Users, 2)
		gt.Equal(t, result.Products, 2)
		gt.Equal(t, result.Orders, 2)
		gt.Equal(t, result.Error, "")
		gt.Equal(t, len(result.Report.UsersErrors), 0)
		gt.Equal(t, len(result.Report.ProductsErrors), 0)
		gt.Equal(t, len(result.Report.OrdersErrors), 0)
		gt.True(t, strings.HasPrefix(result.ID.String(), "imp-"))

		order, err := repo.GetOrder(ctx, types.OrderID("o1"))
		gt.NoError(t, err).Required()
		gt.Equal(t, order.UserID, types.UserID("u1"))
		gt.Equal(t, order.Quantity, 2)
		gt.False(t, order.CreatedAt.IsZero())

		product, err := repo.GetProduct(ctx, types.ProductID("p1"))
		gt.NoError(t, err).Required()
		gt.Equal(t, product.Price, 1.5)
	})

	t.Run("second import skips existing records", func(t *testing.T) {
		repo := repository.NewMemory()
		uc := usecase.NewImport(repo)

		_, err := uc.Run(ctx, files(usersCSV, productsCSV, ordersCSV))
		gt.NoError(t, err).Required()

		result, err := uc.Run(ctx, files(usersCSV, productsCSV, ordersCSV))
		gt.NoError(t, err).Required()

		gt.Equal(t, result.Users, 0)
		gt.Equal(t, result.Products, 0)
		gt.Equal(t, result.Orders, 0)
		gt.Equal(t, result.Report.UsersErrors, []string{
			"User with id u1 already exists. Skipping.",
			"User with id u2 already exists. Skipping.",
		})
		gt.Equal(t, result.Report.ProductsErrors, []string{
			"Product with id p1 already exists. Skipping.",
			"Product with id p2 already exists. Skipping.",
		})
		gt.Equal(t, result.Report.OrdersErrors, []string{
			"Order with id o1 already exists. Skipping.",
			"Order with id o2 already exists. Skipping.",
		})
	})

	t.Run("reports invalid rows and keeps valid ones", func(t *testing.T) {
		repo := repository.NewMemory()
		uc := usecase.NewImport(repo)

		users := "id,name,email\n" +
			"u1,Alice,alice@example.com\n" +
			"u2,,bob@example.com\n" +
			"u1,Alice again,alice2@example.com\n"
		products := "id,name,price\n" +
			"p1,Pen,1.5\n" +
			"p2,Free,0\n" +
			"p3,Broken,abc\n"
		orders := "id,user_id,product_id,quantity\n" +
			"o1,u1,p1,1\n" +
			"o2,u1,p1,-3\n" +
			"o3,u1,p1,many\n" +
			"o4,ghost,p1,1\n" +
			"o5,u1,nothing,1\n" +
			"o6,u1,p1\n"

		result, err := uc.Run(ctx, files(users, products, orders))
		gt.NoError(t, err).Required()

		gt.Equal(t, result.Users, 1)
		gt.Equal(t, result.Products, 1)
		gt.Equal(t, result.Orders, 1)
		gt.Equal(t, result.Error, "")

		gt.Equal(t, len(result.Report.UsersErrors), 2)
		gt.S(t, result.Report.UsersErrors[0]).Contains("Invalid user data")
		gt.Equal(t, result.Report.UsersErrors[1], "User with id u1 is duplicated in file. Skipping.")

		gt.Equal(t, len(result.Report.ProductsErrors), 2)
		gt.Equal(t, result.Report.ProductsErrors[0], "Product with id p2 has invalid price: 0.")
		gt.S(t, result.Report.ProductsErrors[1]).Contains("Invalid price value")

		gt.Equal(t, len(result.Report.OrdersErrors), 5)
		gt.Equal(t, result.Report.OrdersErrors[0], "Order with id o2 has invalid quantity: -3.")
		gt.S(t, result.Report.OrdersErrors[1]).Contains("Invalid quantity value")
		gt.S(t, result.Report.OrdersErrors[2]).Contains("Invalid order data")
		gt.Equal(t, result.Report.OrdersErrors[3], "User with id ghost does not exist.")
		gt.Equal(t, result.Report.OrdersErrors[4], "Product with id nothing does not exist.")

		_, err = repo.GetOrder(ctx, types.OrderID("o4"))
		gt.True(t, goerr.HasTag(err, model.ErrTagNotFound))
	})

	t.Run("strips byte order mark from header", func(t *testing.T) {
		repo := repository.NewMemory()
		uc := usecase.NewImport(repo)

		result, err := uc.Run(ctx, files("\uFEFF"+usersCSV, productsCSV, ordersCSV))
		gt.NoError(t, err).Required()
		gt.Equal(t, result.Users, 2)
		gt.Equal(t, len(result.Report.UsersErrors), 0)
	})

	t.Run("empty files import nothing", func(t *testing.T) {
		uc := usecase.NewImport(repository.NewMemory())

		result, err := uc.Run(ctx, files("", "", ""))
		gt.NoError(t, err).Required()
		gt.Equal(t, result.Users, 0)
		gt.Equal(t, result.Orders, 0)
		gt.Equal(t, result.Error, "")
	})

	t.Run("malformed CSV is tagged", func(t *testing.T) {
		uc := usecase.NewImport(repository.NewMemory())

		_, err := uc.Run(ctx, files("id,name,email\n\"unterminated,x,y\n", productsCSV, ordersCSV))
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, model.ErrTagInvalidCSV))
	})

	t.Run("failed orders transaction is reported, not returned", func(t *testing.T) {
		repo := &failingTxRepository{Memory: repository.NewMemory(), err: errors.New("deadlock detected")}
		uc := usecase.NewImport(repo)

		result, err := uc.Run(ctx, files(usersCSV, productsCSV, ordersCSV))
		gt.NoError(t, err).Required()

		gt.Equal(t, result.Users, 2)
		gt.Equal(t, result.Products, 2)
		gt.Equal(t, result.Orders, 0)
		gt.Equal(t, result.Error, "Transaction failed: deadlock detected")

		_, err = repo.GetOrder(ctx, types.OrderID("o1"))
		gt.True(t, goerr.HasTag(err, model.ErrTagNotFound))
	})

	t.Run("store failure while creating users is returned", func(t *testing.T) {
		repo := &failingCreateRepository{Memory: repository.NewMemory()}
		uc := usecase.NewImport(repo)

		_, err := uc.Run(ctx, files(usersCSV, productsCSV, ordersCSV))
		gt.Error(t, err)
		gt.S(t, err.Error()).Contains("failed to create users")
	})

	t.Run("reporter receives the result", func(t *testing.T) {
		reporter := &recordingReporter{done: make(chan struct{})}
		uc := usecase.NewImport(repository.NewMemory(), usecase.WithReporter(reporter))

		result, err := uc.Run(ctx, files(usersCSV, productsCSV, ordersCSV))
		gt.NoError(t, err).Required()

		<-reporter.done
		gt.Equal(t, reporter.received().ID, result.ID)
	})

	t.Run("concurrent imports of the same files create each record once", func(t *testing.T) {
		repo := repository.NewMemory()
		uc := usecase.NewImport(repo)

		const n = 5
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			users   int
			orders  int
			failure error
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := uc.Run(ctx, files(usersCSV, productsCSV, ordersCSV))
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failure = err
					return
				}
				users += result.Users
				orders += result.Orders
			}()
		}
		wg.Wait()

		gt.NoError(t, failure)
		gt.Equal(t, users, 2)
		gt.Equal(t, orders, 2)
	})
}

type failingTxRepository struct {
	*repository.Memory
	err error
}

func (r *failingTxRepository) RunOrderTx(ctx context.Context, fn func(ctx context.Context, tx interfaces.OrderTx) error) error {
	return r.Memory.RunOrderTx(ctx, func(ctx context.Context, tx interfaces.OrderTx) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return goerr.Wrap(r.err, "failed to commit orders")
	})
}

type failingCreateRepository struct {
	*repository.Memory
}

func (r *failingCreateRepository) CreateUsers(ctx context.Context, users []*model.User) error {
	return goerr.New("connection reset")
}

type recordingReporter struct {
	mu     sync.Mutex
	result *model.ImportResult
	done   chan struct{}
}

func (r *recordingReporter) Report(ctx context.Context, result *model.ImportResult) error {
	r.mu.Lock()
	r.result = result
	r.mu.Unlock()
	close(r.done)
	return nil
}

func (r *recordingReporter) received() *model.ImportResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}
