package codec

import "github.com/ValentinKolb/dLoad/lib/document"

// IDocumentCodec is the interface for all document codecs
type IDocumentCodec interface {
	// Encode serializes a document into a byte array
	// It returns the serialized byte array and an error if any
	Encode(doc *document.Document) ([]byte, error)
	// Decode deserializes a byte array into a document
	// It returns an error if the bytes are malformed or hold unsupported value types
	Decode(b []byte) (*document.Document, error)
	// Name returns the name of the codec
	Name() string
}

// Get returns the codec registered under name
func Get(name string) (IDocumentCodec, bool) {
	switch name {
	case "json":
		return NewJSONCodec(), true
	case "bson":
		return NewBSONCodec(), true
	default:
		return nil, false
	}
}
