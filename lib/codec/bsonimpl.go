package codec

import (
	"github.com/ValentinKolb/dLoad/lib/common"
	"github.com/ValentinKolb/dLoad/lib/document"
	"go.mongodb.org/mongo-driver/bson"
)

// NewBSONCodec creates a new codec using binary BSON
func NewBSONCodec() IDocumentCodec {
	return &bsonCodecImpl{}
}

// bsonCodecImpl implements the IDocumentCodec interface using BSON
type bsonCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.IDocumentCodec)
// --------------------------------------------------------------------------

func (c bsonCodecImpl) Encode(doc *document.Document) ([]byte, error) {
	return bson.Marshal(doc.ToBSON())
}

func (c bsonCodecImpl) Decode(b []byte) (*document.Document, error) {
	var d bson.D
	if err := bson.Unmarshal(b, &d); err != nil {
		return nil, common.WrapError(common.ErrCUnknown, err, "failed to decode BSON document")
	}
	return document.FromBSON(d)
}

func (c bsonCodecImpl) Name() string {
	return "bson"
}
