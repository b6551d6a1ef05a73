package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/csvgate/pkg/domain/interfaces"
	"github.com/secmon-lab/csvgate/pkg/domain/model"
	"github.com/secmon-lab/csvgate/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// Collection names, before the optional prefix
	usersCollection    = "users"
	productsCollection = "products"
	ordersCollection   = "orders"

	// maxTxWrites is the Firestore write limit of a single transaction
	maxTxWrites = 500
)

// Firestore implements Repository interface with Firestore
type Firestore struct {
	client *firestore.Client
	prefix string
}

var _ interfaces.Repository = (*Firestore)(nil)

// FirestoreOption configures a Firestore repository
type FirestoreOption func(*Firestore)

// WithCollectionPrefix prepends prefix to every collection name, so several
// csvgate deployments can share one database
func WithCollectionPrefix(prefix string) FirestoreOption {
	return func(f *Firestore) {
		f.prefix = prefix
	}
}

// NewFirestore creates a new Firestore repository
func NewFirestore(ctx context.Context, projectID, databaseID string, opts ...FirestoreOption) (*Firestore, error) {
	logger := ctxlog.From(ctx)

	f := &Firestore{}
	for _, opt := range opts {
		opt(f)
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client")
	}
	f.client = client

	// Fail fast on invalid project or missing permissions
	_, err = f.users().Limit(1).Documents(ctx).Next()
	if err != nil && err != iterator.Done {
		if status.Code(err) == codes.PermissionDenied || status.Code(err) == codes.Unauthenticated {
			_ = client.Close()
			return nil, goerr.Wrap(err, "failed to connect to firestore project",
				goerr.V("firestore error code", status.Code(err).String()),
			)
		}
		logger.Debug("Firestore connection test returned error (may be empty collection)",
			"error", err,
			"errorCode", status.Code(err).String(),
		)
	}

	logger.Info("Firestore repository initialized successfully",
		"projectID", projectID,
		"databaseID", databaseID,
		"collectionPrefix", f.prefix,
	)

	return f, nil
}

func (f *Firestore) users() *firestore.CollectionRef {
	return f.client.Collection(f.prefix + usersCollection)
}

func (f *Firestore) products() *firestore.CollectionRef {
	return f.client.Collection(f.prefix + productsCollection)
}

func (f *Firestore) orders() *firestore.CollectionRef {
	return f.client.Collection(f.prefix + ordersCollection)
}

// UserExists checks if a user document exists
func (f *Firestore) UserExists(ctx context.Context, id types.UserID) (bool, error) {
	if id == "" {
		return false, goerr.New("user ID is empty")
	}
	return f.exists(ctx, f.users().Doc(id.String()))
}

// CreateUsers creates user documents, failing on any existing ID. Up to 500
// users are written all or none; larger sets commit in 500-document
// transactions.
func (f *Firestore) CreateUsers(ctx context.Context, users []*model.User) error {
	docs := make([]createDoc, 0, len(users))
	for _, user := range users {
		docs = append(docs, createDoc{ref: f.users().Doc(user.ID.String()), data: user})
	}
	return f.createAll(ctx, docs)
}

// GetUser retrieves a user by ID
func (f *Firestore) GetUser(ctx context.Context, id types.UserID) (*model.User, error) {
	doc, err := f.users().Doc(id.String()).Get(ctx)
	return decodeUser(id, doc, err)
}

// ProductExists checks if a product document exists
func (f *Firestore) ProductExists(ctx context.Context, id types.ProductID) (bool, error) {
	if id == "" {
		return false, goerr.New("product ID is empty")
	}
	return f.exists(ctx, f.products().Doc(id.String()))
}

// CreateProducts creates product documents, failing on any existing ID. Up to
// 500 products are written all or none; larger sets commit in 500-document
// transactions.
func (f *Firestore) CreateProducts(ctx context.Context, products []*model.Product) error {
	docs := make([]createDoc, 0, len(products))
	for _, product := range products {
		docs = append(docs, createDoc{ref: f.products().Doc(product.ID.String()), data: product})
	}
	return f.createAll(ctx, docs)
}

// GetProduct retrieves a product by ID
func (f *Firestore) GetProduct(ctx context.Context, id types.ProductID) (*model.Product, error) {
	doc, err := f.products().Doc(id.String()).Get(ctx)
	return decodeProduct(id, doc, err)
}

// GetOrder retrieves an order by ID
func (f *Firestore) GetOrder(ctx context.Context, id types.OrderID) (*model.Order, error) {
	doc, err := f.orders().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.New("order not found", goerr.V("id", id), goerr.T(model.ErrTagNotFound))
		}
		return nil, goerr.Wrap(err, "failed to get order from firestore")
	}

	var order model.Order
	if err := doc.DataTo(&order); err != nil {
		return nil, goerr.Wrap(err, "failed to decode order")
	}
	return &order, nil
}

// RunOrderTx runs fn in a Firestore transaction. Firestore may call fn more
// than once on contention.
func (f *Firestore) RunOrderTx(ctx context.Context, fn func(ctx context.Context, tx interfaces.OrderTx) error) error {
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{repo: f, tx: tx})
	})
	if err != nil {
		return goerr.Wrap(err, "orders transaction failed")
	}
	return nil
}

// Close closes the Firestore client
func (f *Firestore) Close() error {
	if err := f.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close firestore client")
	}
	return nil
}

type createDoc struct {
	ref  *firestore.DocumentRef
	data any
}

func (f *Firestore) createAll(ctx context.Context, docs []createDoc) error {
	for start := 0; start < len(docs); start += maxTxWrites {
		chunk := docs[start:min(start+maxTxWrites, len(docs))]
		err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			for _, d := range chunk {
				if err := tx.Create(d.ref, d.data); err != nil {
					return goerr.Wrap(err, "failed to create document", goerr.V("path", d.ref.Path))
				}
			}
			return nil
		})
		if err != nil {
			return goerr.Wrap(err, "failed to commit documents",
				goerr.V("offset", start),
				goerr.V("count", len(chunk)),
			)
		}
	}
	return nil
}

func (f *Firestore) exists(ctx context.Context, ref *firestore.DocumentRef) (bool, error) {
	_, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to get document", goerr.V("path", ref.Path))
	}
	return true, nil
}

type firestoreTx struct {
	repo *Firestore
	tx   *firestore.Transaction
}

func (t *firestoreTx) OrderExists(ctx context.Context, id types.OrderID) (bool, error) {
	_, err := t.tx.Get(t.repo.orders().Doc(id.String()))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to get order in transaction")
	}
	return true, nil
}

func (t *firestoreTx) GetUser(ctx context.Context, id types.UserID) (*model.User, error) {
	doc, err := t.tx.Get(t.repo.users().Doc(id.String()))
	return decodeUser(id, doc, err)
}

func (t *firestoreTx) LockProduct(ctx context.Context, id types.ProductID) (*model.Product, error) {
	doc, err := t.tx.Get(t.repo.products().Doc(id.String()))
	return decodeProduct(id, doc, err)
}

func (t *firestoreTx) CreateOrders(ctx context.Context, orders []*model.Order) error {
	for _, order := range orders {
		ref := t.repo.orders().Doc(order.ID.String())
		if err := t.tx.Create(ref, order); err != nil {
			return goerr.Wrap(err, "failed to create order in transaction", goerr.V("id", order.ID))
		}
	}
	return nil
}

func decodeUser(id types.UserID, doc *firestore.DocumentSnapshot, err error) (*model.User, error) {
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.New("user not found", goerr.V("id", id), goerr.T(model.ErrTagNotFound))
		}
		return nil, goerr.Wrap(err, "failed to get user from firestore")
	}

	var user model.User
	if err := doc.DataTo(&user); err != nil {
		return nil, goerr.Wrap(err, "failed to decode user")
	}
	return &user, nil
}

func decodeProduct(id types.ProductID, doc *firestore.DocumentSnapshot, err error) (*model.Product, error) {
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.New("product not found", goerr.V("id", id), goerr.T(model.ErrTagNotFound))
		}
		return nil, goerr.Wrap(err, "failed to get product from firestore")
	}

	var product model.Product
	if err := doc.DataTo(&product); err != nil {
		return nil, goerr.Wrap(err, "failed to decode product")
	}
	return &product, nil
}
