package codec

import (
	"github.com/ValentinKolb/dLoad/lib/document"
	"go.mongodb.org/mongo-driver/bson"
)

// NewJSONCodec creates a new codec using relaxed MongoDB extended JSON
func NewJSONCodec() IDocumentCodec {
	return &jsonCodecImpl{}
}

// jsonCodecImpl implements the IDocumentCodec interface using extended JSON
type jsonCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.IDocumentCodec)
// --------------------------------------------------------------------------

func (j jsonCodecImpl) Encode(doc *document.Document) ([]byte, error) {
	return bson.MarshalExtJSON(doc.ToBSON(), false, false)
}

func (j jsonCodecImpl) Decode(b []byte) (*document.Document, error) {
	return document.ParseJSON(b)
}

func (j jsonCodecImpl) Name() string {
	return "json"
}
