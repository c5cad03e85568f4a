package lstore

import (
	"context"
	"github.com/ValentinKolb/dLoad/lib/codec"
	"github.com/ValentinKolb/dLoad/lib/common"
	"github.com/ValentinKolb/dLoad/lib/document"
	"github.com/ValentinKolb/dLoad/lib/store"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"sync"
	"sync/atomic"
)

var log = logger.GetLogger("store")

// Store keeps databases in process memory. Databases and collections are
// created on first use; data lives as long as the Store value.
type Store struct {
	databases *xsync.MapOf[string, *database]
	users     *xsync.MapOf[string, string] // "authDB/username" -> password
	codec     codec.IDocumentCodec
}

type database struct {
	collections *xsync.MapOf[string, *collectionData]
}

// collectionData holds the encoded documents of one collection in insertion order
type collectionData struct {
	mu   sync.RWMutex
	ids  []uuid.UUID
	docs map[uuid.UUID][]byte
}

// NewLocalStore creates an empty in-memory store without authentication
func NewLocalStore() *Store {
	return &Store{
		databases: xsync.NewMapOf[string, *database](),
		users:     xsync.NewMapOf[string, string](),
		codec:     codec.NewBSONCodec(),
	}
}

// AddUser registers a user in authDB. Once a user exists, connections must
// present valid credentials.
func (s *Store) AddUser(authDB, username, password string) {
	s.users.Store(authDB+"/"+username, password)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Name() string {
	return "memory"
}

func (s *Store) Connect(ctx context.Context, params store.ConnectParams) (store.IConnection, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.WrapError(common.ErrCConnection, err, "connecting to %s", params)
	}
	if params.Database == "" {
		return nil, common.NewError(common.ErrCConnection, "no database given")
	}

	if s.users.Size() > 0 {
		password, ok := s.users.Load(params.AuthDB + "/" + params.Username)
		if !params.HasCredentials() || !ok || password != params.Password {
			return nil, common.NewError(common.ErrCConnection, "authentication failed for %s", params)
		}
	}

	newDatabase := func() *database {
		return &database{collections: xsync.NewMapOf[string, *collectionData]()}
	}
	var db *database
	if params.ReadOnly {
		// a missing database reads as empty and is not registered
		var ok bool
		if db, ok = s.databases.Load(params.Database); !ok {
			db = newDatabase()
		}
	} else {
		db, _ = s.databases.LoadOrCompute(params.Database, newDatabase)
	}

	log.Debugf("connected to in-memory database %s", params.Database)
	return &connection{store: s, db: db, name: params.Database, readOnly: params.ReadOnly}, nil
}

// --------------------------------------------------------------------------
// Connection
// --------------------------------------------------------------------------

type connection struct {
	store    *Store
	db       *database
	name     string
	readOnly bool
	closed   atomic.Bool
}

func (c *connection) Collection(name string) store.ICollection {
	return &collection{conn: c, name: name}
}

func (c *connection) Close(_ context.Context) error {
	c.closed.Store(true)
	return nil
}

func (c *connection) checkOpen() error {
	if c.closed.Load() {
		return common.NewError(common.ErrCConnection, "connection to %s is closed", c.name)
	}
	return nil
}

func (c *connection) checkWritable() error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if c.readOnly {
		return common.NewError(common.ErrCWrite, "connection to %s is read-only", c.name)
	}
	return nil
}

// --------------------------------------------------------------------------
// Collection
// --------------------------------------------------------------------------

type collection struct {
	conn *connection
	name string
}

func (c *collection) Name() string {
	return c.name
}

func (c *collection) data(create bool) *collectionData {
	if !create {
		d, _ := c.conn.db.collections.Load(c.name)
		return d
	}
	d, _ := c.conn.db.collections.LoadOrCompute(c.name, func() *collectionData {
		return &collectionData{docs: make(map[uuid.UUID][]byte)}
	})
	return d
}

func (c *collection) Drop(_ context.Context) error {
	if err := c.conn.checkWritable(); err != nil {
		return err
	}
	c.conn.db.collections.Delete(c.name)
	return nil
}

func (c *collection) Create(_ context.Context) error {
	if err := c.conn.checkWritable(); err != nil {
		return err
	}
	c.data(true)
	return nil
}

func (c *collection) Save(ctx context.Context, doc *document.Document, _ store.AckLevel) error {
	if err := c.conn.checkWritable(); err != nil {
		return common.WrapError(common.ErrCWrite, err, "saving to %s", c.name)
	}
	if err := ctx.Err(); err != nil {
		return common.WrapError(common.ErrCWrite, err, "saving to %s", c.name)
	}

	// encode to decouple the stored document from the caller's copy
	raw, err := c.conn.store.codec.Encode(doc)
	if err != nil {
		return common.WrapError(common.ErrCWrite, err, "encoding document for %s", c.name)
	}

	d := c.data(true)
	id := uuid.New()
	d.mu.Lock()
	d.ids = append(d.ids, id)
	d.docs[id] = raw
	d.mu.Unlock()
	return nil
}

func (c *collection) Count(_ context.Context) (int64, error) {
	if err := c.conn.checkOpen(); err != nil {
		return 0, err
	}
	d := c.data(false)
	if d == nil {
		return 0, nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return int64(len(d.ids)), nil
}

func (c *collection) FindOne(_ context.Context) (*document.Document, bool, error) {
	if err := c.conn.checkOpen(); err != nil {
		return nil, false, err
	}
	d := c.data(false)
	if d == nil {
		return nil, false, nil
	}

	d.mu.RLock()
	if len(d.ids) == 0 {
		d.mu.RUnlock()
		return nil, false, nil
	}
	raw := d.docs[d.ids[0]]
	d.mu.RUnlock()

	doc, err := c.conn.store.codec.Decode(raw)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}
