package document

import (
	"fmt"
	"github.com/ValentinKolb/dLoad/lib/common"
	"go.mongodb.org/mongo-driver/bson"
	"sort"
)

// --------------------------------------------------------------------------
// Document -> BSON
// --------------------------------------------------------------------------

// ToBSON converts the document into an ordered bson.D
func (d *Document) ToBSON() bson.D {
	out := make(bson.D, 0, d.Len())
	for _, f := range d.Fields() {
		out = append(out, bson.E{Key: f.Key, Value: f.Value.toBSON()})
	}
	return out
}

func (v Value) toBSON() interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindInteger:
		return v.num
	case KindFloat:
		return v.flt
	case KindBoolean:
		return v.bit
	case KindDocument:
		return v.doc.ToBSON()
	case KindSequence:
		arr := make(bson.A, len(v.seq))
		for i, e := range v.seq {
			arr[i] = e.toBSON()
		}
		return arr
	default:
		return nil
	}
}

// --------------------------------------------------------------------------
// BSON -> Document
// --------------------------------------------------------------------------

// FromBSON converts a decoded bson.D into a Document. Values whose type has
// no matching Kind (null, dates, object ids, decimals, ...) fail with
// common.ErrSchemaUnsupported naming the offending key path.
func FromBSON(d bson.D) (*Document, error) {
	return fromBSONDoc(d, "", false)
}

// FromBSONLossy converts a decoded bson.D into a Document, rendering values
// without a matching Kind as strings. It is meant for displaying documents
// read from a store, never for samples.
func FromBSONLossy(d bson.D) *Document {
	doc, _ := fromBSONDoc(d, "", true)
	return doc
}

func fromBSONDoc(d bson.D, path string, lossy bool) (*Document, error) {
	doc := New()
	for _, e := range d {
		v, err := fromBSONValue(e.Value, joinPath(path, e.Key), lossy)
		if err != nil {
			return nil, err
		}
		doc.Set(e.Key, v)
	}
	return doc, nil
}

func fromBSONValue(raw interface{}, path string, lossy bool) (Value, error) {
	switch x := raw.(type) {
	case string:
		return String(x), nil
	case int32:
		return Integer(int64(x)), nil
	case int64:
		return Integer(x), nil
	case int:
		return Integer(int64(x)), nil
	case float64:
		return Float(x), nil
	case bool:
		return Boolean(x), nil
	case bson.D:
		doc, err := fromBSONDoc(x, path, lossy)
		if err != nil {
			return Value{}, err
		}
		return Nested(doc), nil
	case bson.M:
		// maps carry no order, sort the keys to stay deterministic
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d := make(bson.D, 0, len(x))
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: x[k]})
		}
		return fromBSONValue(d, path, lossy)
	case bson.A:
		seq := make([]Value, len(x))
		for i, e := range x {
			v, err := fromBSONValue(e, fmt.Sprintf("%s[%d]", path, i), lossy)
			if err != nil {
				return Value{}, err
			}
			seq[i] = v
		}
		return Sequence(seq...), nil
	default:
		if lossy {
			return String(fmt.Sprintf("%v", x)), nil
		}
		return Value{}, common.NewError(common.ErrCSchemaUnsupported,
			"unsupported data type at %q: %T", path, raw)
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
