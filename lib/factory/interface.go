package factory

import (
	"github.com/ValentinKolb/dLoad/lib/document"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("factory")

// IDocumentFactory produces one generated document per call.
// Implementations may return errors from the allocator (saturation) or from
// loading their template; such errors are fatal for the call.
type IDocumentFactory interface {
	// GenerateDocument returns a freshly generated document owned by the caller
	GenerateDocument() (*document.Document, error)
	// Name returns the registry name of the factory
	Name() string
}
