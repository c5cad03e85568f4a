package document

import (
	"strconv"
	"strings"
)

// Field is a single key/value pair of a Document
type Field struct {
	Key   string
	Value Value
}

// Document is an ordered mapping from string keys to Values.
// Keys are unique; Set on an existing key replaces the value in place.
//
// Thread-safety: a Document is not safe for concurrent mutation. Documents
// produced by the factories are owned by the caller.
type Document struct {
	fields []Field
	index  map[string]int
}

// New creates an empty document
func New() *Document {
	return &Document{index: make(map[string]int)}
}

// Set stores the value for key. New keys are appended, existing keys keep
// their position. Set returns the document to allow chaining.
func (d *Document) Set(key string, v Value) *Document {
	if i, ok := d.index[key]; ok {
		d.fields[i].Value = v
		return d
	}
	if d.index == nil {
		d.index = make(map[string]int)
	}
	d.index[key] = len(d.fields)
	d.fields = append(d.fields, Field{Key: key, Value: v})
	return d
}

// Get returns the value stored for key
func (d *Document) Get(key string) (Value, bool) {
	if d == nil {
		return Value{}, false
	}
	i, ok := d.index[key]
	if !ok {
		return Value{}, false
	}
	return d.fields[i].Value, true
}

// Len returns the number of fields
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.fields)
}

// Keys returns the keys in insertion order
func (d *Document) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, len(d.fields))
	for i, f := range d.fields {
		keys[i] = f.Key
	}
	return keys
}

// Fields returns the fields in insertion order. The slice must not be modified.
func (d *Document) Fields() []Field {
	if d == nil {
		return nil
	}
	return d.fields
}

// Equal reports whether both documents hold equal values under the same keys
// in the same order
func (d *Document) Equal(o *Document) bool {
	if d.Len() != o.Len() {
		return false
	}
	for i, f := range d.Fields() {
		of := o.fields[i]
		if f.Key != of.Key || !f.Value.Equal(of.Value) {
			return false
		}
	}
	return true
}

// String renders the document in a JSON-like notation for logging
func (d *Document) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, f := range d.Fields() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Quote(f.Key))
		sb.WriteString(": ")
		sb.WriteString(f.Value.String())
	}
	sb.WriteString("}")
	return sb.String()
}
