package document

import (
	"fmt"
	"github.com/ValentinKolb/dLoad/lib/common"
	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/yaml.v3"
	"path/filepath"
	"strings"
)

// Format identifies the textual encoding of a sample document
type Format string

const (
	FormatJSON Format = "json" // MongoDB extended JSON (relaxed or canonical)
	FormatYAML Format = "yaml"
)

// FormatForPath picks the format from a file extension.
// Everything that is not .yaml or .yml is treated as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse decodes a UTF-8 sample in the given format
func Parse(data []byte, format Format) (*Document, error) {
	switch format {
	case FormatYAML:
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// --------------------------------------------------------------------------
// JSON
// --------------------------------------------------------------------------

// ParseJSON decodes a MongoDB extended JSON object. Integers that fit 32 bits
// and larger integers both map to KindInteger, fractional numbers to
// KindFloat. Decoding failures are sample read errors, unsupported value
// types (null, $date, $oid, ...) are schema errors.
func ParseJSON(data []byte) (*Document, error) {
	var d bson.D
	if err := bson.UnmarshalExtJSON(data, false, &d); err != nil {
		return nil, common.WrapError(common.ErrCSampleRead, err, "failed to parse JSON sample")
	}
	return FromBSON(d)
}

// --------------------------------------------------------------------------
// YAML
// --------------------------------------------------------------------------

// ParseYAML decodes a YAML mapping. The resolved YAML tags decide the kind:
// !!str, !!int, !!float, !!bool, mappings and sequences are supported.
func ParseYAML(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, common.WrapError(common.ErrCSampleRead, err, "failed to parse YAML sample")
	}

	node := &root
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil, common.NewError(common.ErrCSampleRead, "YAML sample is empty")
		}
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil, common.NewError(common.ErrCSampleRead, "YAML sample must be a mapping (line %d)", node.Line)
	}

	v, err := fromYAML(node, "")
	if err != nil {
		return nil, err
	}
	return v.Doc(), nil
}

func fromYAML(n *yaml.Node, path string) (Value, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return fromYAML(n.Alias, path)

	case yaml.MappingNode:
		doc := New()
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			key := keyNode.Value
			if _, dup := doc.Get(key); dup {
				return Value{}, common.NewError(common.ErrCSampleRead, "duplicate key %q (line %d)", joinPath(path, key), keyNode.Line)
			}
			v, err := fromYAML(valNode, joinPath(path, key))
			if err != nil {
				return Value{}, err
			}
			doc.Set(key, v)
		}
		return Nested(doc), nil

	case yaml.SequenceNode:
		seq := make([]Value, len(n.Content))
		for i, c := range n.Content {
			v, err := fromYAML(c, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return Value{}, err
			}
			seq[i] = v
		}
		return Sequence(seq...), nil

	case yaml.ScalarNode:
		return fromYAMLScalar(n, path)

	default:
		return Value{}, common.NewError(common.ErrCSchemaUnsupported, "unsupported YAML node at %q (line %d)", path, n.Line)
	}
}

func fromYAMLScalar(n *yaml.Node, path string) (Value, error) {
	switch n.ShortTag() {
	case "!!str":
		return String(n.Value), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return Value{}, common.WrapError(common.ErrCSampleRead, err, "invalid integer at %q", path)
		}
		return Integer(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, common.WrapError(common.ErrCSampleRead, err, "invalid float at %q", path)
		}
		return Float(f), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Value{}, common.WrapError(common.ErrCSampleRead, err, "invalid boolean at %q", path)
		}
		return Boolean(b), nil
	default:
		return Value{}, common.NewError(common.ErrCSchemaUnsupported,
			"unsupported data type at %q: %s (line %d)", path, n.ShortTag(), n.Line)
	}
}
