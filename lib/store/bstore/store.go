package bstore

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dLoad/lib/codec"
	"github.com/ValentinKolb/dLoad/lib/common"
	"github.com/ValentinKolb/dLoad/lib/document"
	"github.com/ValentinKolb/dLoad/lib/store"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	bolt "go.etcd.io/bbolt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var log = logger.GetLogger("store")

// fileExt is appended to the database name to form the file name
const fileExt = ".db"

// Store keeps every database in its own bbolt file below a data directory
type Store struct {
	dir   string
	codec codec.IDocumentCodec
}

// NewBoltStore creates a store rooted at dir. The directory is created on
// the first Connect.
func NewBoltStore(dir string) *Store {
	return &Store{dir: dir, codec: codec.NewBSONCodec()}
}

// Path returns the file backing the named database
func (s *Store) Path(database string) string {
	return filepath.Join(s.dir, database+fileExt)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Name() string {
	return "bolt"
}

func (s *Store) Connect(ctx context.Context, params store.ConnectParams) (store.IConnection, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.WrapError(common.ErrCConnection, err, "connecting to %s", params)
	}
	if params.Database == "" || strings.ContainsAny(params.Database, `/\`) || params.Database == "." || params.Database == ".." {
		return nil, common.NewError(common.ErrCConnection, "invalid database name %q", params.Database)
	}
	store.WarnIgnoredCredentials(s.Name(), params)

	path := s.Path(params.Database)
	if params.ReadOnly {
		return s.connectReadOnly(path, params)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, common.WrapError(common.ErrCConnection, err, "creating data directory %s", s.dir)
	}

	// the timeout bounds the wait for the file lock held by another process
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: params.Timeout})
	if err != nil {
		return nil, common.WrapError(common.ErrCConnection, err, "opening %s", path)
	}

	log.Infof("opened bolt database %s", path)
	return &connection{db: db, path: path, codec: s.codec}, nil
}

// connectReadOnly opens an existing file with a shared lock. A missing file
// reads as an empty database and is not created.
func (s *Store) connectReadOnly(path string, params store.ConnectParams) (store.IConnection, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		log.Infof("bolt database %s does not exist yet", path)
		return &connection{path: path, codec: s.codec}, nil
	} else if err != nil {
		return nil, common.WrapError(common.ErrCConnection, err, "opening %s", path)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: params.Timeout, ReadOnly: true})
	if err != nil {
		return nil, common.WrapError(common.ErrCConnection, err, "opening %s", path)
	}

	log.Infof("opened bolt database %s read-only", path)
	return &connection{db: db, path: path, codec: s.codec}, nil
}

// --------------------------------------------------------------------------
// Connection
// --------------------------------------------------------------------------

// connection wraps an open bbolt file. db is nil for a read-only
// connection to a database file that does not exist.
type connection struct {
	db    *bolt.DB
	path  string
	codec codec.IDocumentCodec
}

func (c *connection) Collection(name string) store.ICollection {
	return &collection{conn: c, name: name, bucket: []byte(name)}
}

func (c *connection) Close(_ context.Context) error {
	if c.db == nil {
		return nil
	}
	if err := c.db.Close(); err != nil {
		return common.WrapError(common.ErrCConnection, err, "closing %s", c.path)
	}
	return nil
}

func (c *connection) view(fn func(tx *bolt.Tx) error) error {
	if c.db == nil {
		return nil
	}
	return c.db.View(fn)
}

func (c *connection) update(fn func(tx *bolt.Tx) error) error {
	if c.db == nil || c.db.IsReadOnly() {
		return fmt.Errorf("database %s is opened read-only", c.path)
	}
	return c.db.Update(fn)
}

// --------------------------------------------------------------------------
// Collection
// --------------------------------------------------------------------------

type collection struct {
	conn   *connection
	name   string
	bucket []byte
}

func (c *collection) Name() string {
	return c.name
}

func (c *collection) Drop(_ context.Context) error {
	err := c.conn.update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(c.bucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return common.WrapError(common.ErrCWrite, err, "dropping %s", c.name)
	}
	return nil
}

func (c *collection) Create(_ context.Context) error {
	err := c.conn.update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(c.bucket)
		return err
	})
	if err != nil {
		return common.WrapError(common.ErrCWrite, err, "creating %s", c.name)
	}
	return nil
}

// Save commits one transaction per document. A committed bbolt transaction
// is fsynced, which satisfies every ack level.
func (c *collection) Save(ctx context.Context, doc *document.Document, _ store.AckLevel) error {
	if err := ctx.Err(); err != nil {
		return common.WrapError(common.ErrCWrite, err, "saving to %s", c.name)
	}

	raw, err := c.conn.codec.Encode(doc)
	if err != nil {
		return common.WrapError(common.ErrCWrite, err, "encoding document for %s", c.name)
	}

	// time-ordered ids keep insertion order in the bucket
	id, err := uuid.NewV7()
	if err != nil {
		return common.WrapError(common.ErrCWrite, err, "generating document id")
	}

	err = c.conn.update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(c.bucket)
		if err != nil {
			return err
		}
		return b.Put(id[:], raw)
	})
	if err != nil {
		return common.WrapError(common.ErrCWrite, err, "saving to %s", c.name)
	}
	return nil
}

func (c *collection) Count(_ context.Context) (int64, error) {
	var n int64
	err := c.conn.view(func(tx *bolt.Tx) error {
		b := tx.Bucket(c.bucket)
		if b == nil {
			return nil
		}
		n = int64(b.Stats().KeyN)
		return nil
	})
	if err != nil {
		return 0, common.WrapError(common.ErrCUnknown, err, "counting %s", c.name)
	}
	return n, nil
}

func (c *collection) FindOne(_ context.Context) (*document.Document, bool, error) {
	var raw []byte
	err := c.conn.view(func(tx *bolt.Tx) error {
		b := tx.Bucket(c.bucket)
		if b == nil {
			return nil
		}
		if k, v := b.Cursor().First(); k != nil {
			// values are only valid inside the transaction
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, common.WrapError(common.ErrCUnknown, err, "reading %s", c.name)
	}
	if raw == nil {
		return nil, false, nil
	}

	doc, err := c.conn.codec.Decode(raw)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}
