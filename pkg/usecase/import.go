package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/csvgate/pkg/domain/interfaces"
	"github.com/secmon-lab/csvgate/pkg/domain/model"
	"github.com/secmon-lab/csvgate/pkg/domain/types"
	"github.com/secmon-lab/csvgate/pkg/utils/async"
	"golang.org/x/sync/errgroup"
)

var _ interfaces.Import = (*Import)(nil)

// Import validates uploaded CSV files and stores their records
type Import struct {
	repo     interfaces.Repository
	reporter interfaces.ImportReporter
	// mu serialises check-then-create sections across concurrent imports
	mu  sync.Mutex
	now func() time.Time
}

// ImportOption configures an Import
type ImportOption func(*Import)

// WithReporter publishes each finished import in the background
func WithReporter(reporter interfaces.ImportReporter) ImportOption {
	return func(uc *Import) {
		uc.reporter = reporter
	}
}

// WithClock overrides the time source used for record timestamps
func WithClock(now func() time.Time) ImportOption {
	return func(uc *Import) {
		uc.now = now
	}
}

// NewImport creates a new import use case
func NewImport(repo interfaces.Repository, opts ...ImportOption) *Import {
	uc := &Import{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Run imports users and products concurrently, then orders in one
// transaction. Row problems are collected in the report. A failed orders
// transaction is reported in ImportResult.Error; other store failures are
// returned as errors.
func (uc *Import) Run(ctx context.Context, files model.ImportFiles) (*model.ImportResult, error) {
	result := &model.ImportResult{
		ID:        types.NewImportID(),
		Report:    model.NewImportReport(),
		StartedAt: uc.now(),
	}
	logger := ctxlog.From(ctx).With("import_id", result.ID)
	ctx = ctxlog.With(ctx, logger)

	userRows, err := readRows(model.PartUsers, files.Users)
	if err != nil {
		return nil, err
	}
	productRows, err := readRows(model.PartProducts, files.Products)
	if err != nil {
		return nil, err
	}
	orderRows, err := readRows(model.PartOrders, files.Orders)
	if err != nil {
		return nil, err
	}

	logger.Info("Starting CSV import",
		"users", len(userRows),
		"products", len(productRows),
		"orders", len(orderRows),
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		created, errs, err := uc.importUsers(egCtx, userRows)
		if err != nil {
			return err
		}
		result.Users = created
		result.Report.UsersErrors = append(result.Report.UsersErrors, errs...)
		return nil
	})
	eg.Go(func() error {
		created, errs, err := uc.importProducts(egCtx, productRows)
		if err != nil {
			return err
		}
		result.Products = created
		result.Report.ProductsErrors = append(result.Report.ProductsErrors, errs...)
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	created, errs, err := uc.importOrders(ctx, orderRows)
	result.Report.OrdersErrors = append(result.Report.OrdersErrors, errs...)
	if err != nil {
		logger.Error("Orders transaction failed", "error", err)
		result.Error = model.TransactionFailed(rootCause(err))
	} else {
		result.Orders = created
	}

	result.FinishedAt = uc.now()
	logger.Info("CSV import completed",
		"users_created", result.Users,
		"products_created", result.Products,
		"orders_created", result.Orders,
		"transaction_error", result.Error,
		"duration", result.FinishedAt.Sub(result.StartedAt),
	)

	if uc.reporter != nil {
		async.Dispatch(ctx, func(ctx context.Context) error {
			return uc.reporter.Report(ctx, result)
		})
	}

	return result, nil
}

func (uc *Import) importUsers(ctx context.Context, rows []csvRow) (int, []string, error) {
	valid, errs := validateUsers(rows)

	var records []*model.User
	if err := uc.locked(func() error {
		for _, user := range valid {
			exists, err := uc.repo.UserExists(ctx, user.ID)
			if err != nil {
				return goerr.Wrap(err, "failed to check existing user", goerr.V("id", user.ID))
			}
			if exists {
				errs = append(errs, fmt.Sprintf("User with id %s already exists. Skipping.", user.ID))
				continue
			}
			user.CreatedAt = uc.now()
			records = append(records, user)
		}

		if err := uc.repo.CreateUsers(ctx, records); err != nil {
			return goerr.Wrap(err, "failed to create users", goerr.V("count", len(records)))
		}
		return nil
	}); err != nil {
		return 0, nil, err
	}

	ctxlog.From(ctx).Debug("User processing complete", "created", len(records), "errors", len(errs))
	return len(records), errs, nil
}

func (uc *Import) importProducts(ctx context.Context, rows []csvRow) (int, []string, error) {
	valid, errs := validateProducts(rows)

	var records []*model.Product
	if err := uc.locked(func() error {
		for _, product := range valid {
			exists, err := uc.repo.ProductExists(ctx, product.ID)
			if err != nil {
				return goerr.Wrap(err, "failed to check existing product", goerr.V("id", product.ID))
			}
			if exists {
				errs = append(errs, fmt.Sprintf("Product with id %s already exists. Skipping.", product.ID))
				continue
			}
			product.CreatedAt = uc.now()
			records = append(records, product)
		}

		if err := uc.repo.CreateProducts(ctx, records); err != nil {
			return goerr.Wrap(err, "failed to create products", goerr.V("count", len(records)))
		}
		return nil
	}); err != nil {
		return 0, nil, err
	}

	ctxlog.From(ctx).Debug("Product processing complete", "created", len(records), "errors", len(errs))
	return len(records), errs, nil
}

// importOrders returns row errors even when the transaction fails
func (uc *Import) importOrders(ctx context.Context, rows []csvRow) (int, []string, error) {
	valid, validationErrs := validateOrders(rows)

	var (
		errs    []string
		records []*model.Order
	)
	err := uc.locked(func() error {
		return uc.repo.RunOrderTx(ctx, func(ctx context.Context, tx interfaces.OrderTx) error {
			// the store may retry the transaction, so start from scratch
			errs = append([]string{}, validationErrs...)
			records = nil

			for _, order := range valid {
				exists, err := tx.OrderExists(ctx, order.ID)
				if err != nil {
					return err
				}
				if exists {
					errs = append(errs, fmt.Sprintf("Order with id %s already exists. Skipping.", order.ID))
					continue
				}

				if _, err := tx.GetUser(ctx, order.UserID); err != nil {
					if goerr.HasTag(err, model.ErrTagNotFound) {
						errs = append(errs, fmt.Sprintf("User with id %s does not exist.", order.UserID))
						continue
					}
					return err
				}

				if _, err := tx.LockProduct(ctx, order.ProductID); err != nil {
					if goerr.HasTag(err, model.ErrTagNotFound) {
						errs = append(errs, fmt.Sprintf("Product with id %s does not exist.", order.ProductID))
						continue
					}
					return err
				}

				record := *order
				record.CreatedAt = uc.now()
				records = append(records, &record)
			}

			return tx.CreateOrders(ctx, records)
		})
	})
	if err != nil {
		if errs == nil {
			errs = validationErrs
		}
		return 0, errs, goerr.Wrap(err, "failed to import orders")
	}

	ctxlog.From(ctx).Debug("Order processing complete", "created", len(records), "errors", len(errs))
	return len(records), errs, nil
}

func (uc *Import) locked(fn func() error) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return fn()
}

// rootCause returns the innermost error so the user sees the store message
func rootCause(err error) error {
	for {
		next := unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func unwrap(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}
