package store

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dLoad/lib/document"
	"github.com/lni/dragonboat/v4/logger"
	"net"
	"strconv"
	"strings"
	"time"
)

var log = logger.GetLogger("store")

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore opens connections to a document store.
// Errors returned by Connect are common.ErrConnection errors.
type IStore interface {
	// Connect opens a connection to the database named in params
	Connect(ctx context.Context, params ConnectParams) (IConnection, error)
	// Name returns the name of the store implementation
	Name() string
}

// IConnection is an open connection to one database of a store.
// A connection is safe for concurrent use.
type IConnection interface {
	// Collection returns a handle for the named collection. The collection
	// does not need to exist.
	Collection(name string) ICollection
	// Close releases the connection. Collections obtained from it must not be
	// used afterward.
	Close(ctx context.Context) error
}

// ICollection is a named set of documents.
// Write failures are common.ErrWrite errors, temporary ones are marked so
// callers may retry them (see common.IsTemporary).
type ICollection interface {
	// Name returns the collection name
	Name() string
	// Drop removes the collection and all its documents. Dropping a missing
	// collection is not an error.
	Drop(ctx context.Context) error
	// Create creates an empty collection. Creating an existing collection is
	// not an error.
	Create(ctx context.Context) error
	// Save inserts a document and returns once the store confirmed the write
	// as requested by ack.
	Save(ctx context.Context, doc *document.Document, ack AckLevel) error
	// Count returns the number of documents in the collection
	Count(ctx context.Context) (int64, error)
	// FindOne returns any document of the collection. The boolean is false
	// if the collection is empty or missing.
	FindOne(ctx context.Context) (doc *document.Document, found bool, err error)
}

// --------------------------------------------------------------------------
// Acknowledgment
// --------------------------------------------------------------------------

// AckLevel is the confirmation a write waits for
type AckLevel uint8

const (
	AckUnacknowledged AckLevel = iota // 0: Fire and forget.
	AckAcknowledged                   // 1: Accepted by the primary.
	AckJournaled                      // 2: Written to the primary's journal.
	AckMajority                       // 3: Accepted by a majority of the replica set.
)

// String returns the name of the ack level
func (a AckLevel) String() string {
	switch a {
	case AckUnacknowledged:
		return "unacknowledged"
	case AckAcknowledged:
		return "acknowledged"
	case AckJournaled:
		return "journaled"
	case AckMajority:
		return "majority"
	default:
		return fmt.Sprintf("AckLevel(%d)", uint8(a))
	}
}

// ParseAckLevel parses the name of an ack level (case-insensitive)
func ParseAckLevel(s string) (AckLevel, error) {
	for a := AckUnacknowledged; a <= AckMajority; a++ {
		if strings.EqualFold(s, a.String()) {
			return a, nil
		}
	}
	return AckAcknowledged, fmt.Errorf("invalid ack level %q (valid: unacknowledged, acknowledged, journaled, majority)", s)
}

// --------------------------------------------------------------------------
// Connection Parameters
// --------------------------------------------------------------------------

// ConnectParams holds everything a store needs to open a connection
type ConnectParams struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	AuthDB   string        // Database the credentials are defined in
	Timeout  time.Duration // Upper bound for establishing the connection, 0 means no bound
	ReadOnly bool          // The connection only reads; opening it must not create databases or files
}

// Address returns host:port
func (p ConnectParams) Address() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// HasCredentials reports whether a username was given
func (p ConnectParams) HasCredentials() bool {
	return p.Username != ""
}

// String returns the parameters without the password
func (p ConnectParams) String() string {
	user := ""
	if p.HasCredentials() {
		user = p.Username + "@" + p.AuthDB + " "
	}
	return fmt.Sprintf("%s%s/%s", user, p.Address(), p.Database)
}

// WarnIgnoredCredentials logs a warning when a store that has no notion of
// users is given credentials
func WarnIgnoredCredentials(storeName string, p ConnectParams) {
	if p.HasCredentials() {
		log.Warningf("%s store does not support authentication, ignoring user %q", storeName, p.Username)
	}
}
