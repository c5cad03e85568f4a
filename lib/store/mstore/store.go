package mstore

import (
	"context"
	"errors"
	"github.com/ValentinKolb/dLoad/lib/common"
	"github.com/ValentinKolb/dLoad/lib/document"
	"github.com/ValentinKolb/dLoad/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

var log = logger.GetLogger("store")

// errCodeNamespaceExists is returned by the server when creating an existing collection
const errCodeNamespaceExists = 48

// Store connects to MongoDB servers
type Store struct {
	appName string
}

// NewMongoStore creates a store announcing itself to the server as appName
func NewMongoStore(appName string) *Store {
	return &Store{appName: appName}
}

// WriteConcern maps an ack level to the write concern sent with inserts
func WriteConcern(ack store.AckLevel) *writeconcern.WriteConcern {
	switch ack {
	case store.AckUnacknowledged:
		return writeconcern.Unacknowledged()
	case store.AckJournaled:
		return writeconcern.Journaled()
	case store.AckMajority:
		return writeconcern.Majority()
	default:
		return writeconcern.W1()
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Name() string {
	return "mongo"
}

func (s *Store) Connect(ctx context.Context, params store.ConnectParams) (store.IConnection, error) {
	if params.Database == "" {
		return nil, common.NewError(common.ErrCConnection, "no database given")
	}

	opts := options.Client().
		SetHosts([]string{params.Address()}).
		SetAppName(s.appName)
	if params.Timeout > 0 {
		opts.SetServerSelectionTimeout(params.Timeout).SetConnectTimeout(params.Timeout)
	}
	if params.HasCredentials() {
		opts.SetAuth(options.Credential{
			AuthSource: params.AuthDB,
			Username:   params.Username,
			Password:   params.Password,
		})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, common.WrapError(common.ErrCConnection, err, "connecting to %s", params)
	}

	// the driver connects lazily, ping to surface unresolved hosts and failed authentication
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, common.WrapError(common.ErrCConnection, err, "connecting to %s", params)
	}

	log.Infof("connected to mongodb %s", params)
	return &connection{
		client: client,
		db:     client.Database(params.Database),
	}, nil
}

// --------------------------------------------------------------------------
// Connection
// --------------------------------------------------------------------------

type connection struct {
	client *mongo.Client
	db     *mongo.Database
}

func (c *connection) Collection(name string) store.ICollection {
	return &collection{
		conn:    c,
		name:    name,
		handles: xsync.NewMapOf[store.AckLevel, *mongo.Collection](),
	}
}

func (c *connection) Close(ctx context.Context) error {
	if err := c.client.Disconnect(ctx); err != nil {
		return common.WrapError(common.ErrCConnection, err, "disconnecting")
	}
	return nil
}

// --------------------------------------------------------------------------
// Collection
// --------------------------------------------------------------------------

type collection struct {
	conn *connection
	name string
	// one handle per ack level, each carrying its write concern
	handles *xsync.MapOf[store.AckLevel, *mongo.Collection]
}

func (c *collection) Name() string {
	return c.name
}

func (c *collection) handle(ack store.AckLevel) *mongo.Collection {
	h, _ := c.handles.LoadOrCompute(ack, func() *mongo.Collection {
		return c.conn.db.Collection(c.name, options.Collection().SetWriteConcern(WriteConcern(ack)))
	})
	return h
}

func (c *collection) Drop(ctx context.Context) error {
	// the driver ignores "ns not found"
	if err := c.handle(store.AckAcknowledged).Drop(ctx); err != nil {
		return wrapError(common.ErrCWrite, err, "dropping %s", c.name)
	}
	return nil
}

func (c *collection) Create(ctx context.Context) error {
	err := c.conn.db.CreateCollection(ctx, c.name)
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(errCodeNamespaceExists) {
		return nil
	}
	if err != nil {
		return wrapError(common.ErrCWrite, err, "creating %s", c.name)
	}
	return nil
}

func (c *collection) Save(ctx context.Context, doc *document.Document, ack store.AckLevel) error {
	_, err := c.handle(ack).InsertOne(ctx, doc.ToBSON())
	if err != nil && !errors.Is(err, mongo.ErrUnacknowledgedWrite) {
		return wrapError(common.ErrCWrite, err, "saving to %s", c.name)
	}
	return nil
}

func (c *collection) Count(ctx context.Context) (int64, error) {
	n, err := c.handle(store.AckAcknowledged).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, wrapError(common.ErrCUnknown, err, "counting %s", c.name)
	}
	return n, nil
}

func (c *collection) FindOne(ctx context.Context) (*document.Document, bool, error) {
	opts := options.FindOne().SetProjection(bson.D{{Key: "_id", Value: 0}})

	var d bson.D
	err := c.handle(store.AckAcknowledged).FindOne(ctx, bson.D{}, opts).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrapError(common.ErrCUnknown, err, "reading %s", c.name)
	}
	// probed collections may hold dates or object ids
	return document.FromBSONLossy(d), true, nil
}

// wrapError wraps a driver error, marking network failures and timeouts as temporary
func wrapError(code common.ErrCode, err error, format string, args ...interface{}) error {
	e := common.WrapError(code, err, format, args...)
	e.Temporary = mongo.IsNetworkError(err) || mongo.IsTimeout(err)
	return e
}
