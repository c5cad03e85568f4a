package document

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags the type held by a Value
type Kind uint8

const (
	KindInvalid  Kind = iota // 0: zero Value, never produced by the constructors
	KindString               // 1: UTF-8 string
	KindInteger              // 2: signed 64-bit integer
	KindFloat                // 3: 64-bit float
	KindBoolean              // 4: boolean
	KindDocument             // 5: nested Document
	KindSequence             // 6: ordered sequence of Values
)

// String returns the name of the kind
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "boolean"
	case KindDocument:
		return "document"
	case KindSequence:
		return "sequence"
	default:
		return "invalid"
	}
}

// Value is a tagged union over the value kinds a document may hold.
// Only the field matching Kind is meaningful.
type Value struct {
	kind Kind
	str  string
	num  int64
	flt  float64
	bit  bool
	doc  *Document
	seq  []Value
}

// --------------------------------------------------------------------------
// Constructors
// --------------------------------------------------------------------------

func String(s string) Value { return Value{kind: KindString, str: s} }

func Integer(i int64) Value { return Value{kind: KindInteger, num: i} }

func Float(f float64) Value { return Value{kind: KindFloat, flt: f} }

func Boolean(b bool) Value { return Value{kind: KindBoolean, bit: b} }

// Nested wraps a document. A nil document is stored as an empty one.
func Nested(d *Document) Value {
	if d == nil {
		d = New()
	}
	return Value{kind: KindDocument, doc: d}
}

func Sequence(values ...Value) Value {
	if values == nil {
		values = []Value{}
	}
	return Value{kind: KindSequence, seq: values}
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

// Kind returns the kind of the value
func (v Value) Kind() Kind { return v.kind }

// Str returns the string held by a KindString value, "" otherwise
func (v Value) Str() string { return v.str }

// Int returns the integer held by a KindInteger value, 0 otherwise
func (v Value) Int() int64 { return v.num }

// Float returns the float held by a KindFloat value, 0 otherwise
func (v Value) Float() float64 { return v.flt }

// Bool returns the boolean held by a KindBoolean value, false otherwise
func (v Value) Bool() bool { return v.bit }

// Doc returns the document held by a KindDocument value, nil otherwise
func (v Value) Doc() *Document { return v.doc }

// Seq returns the values held by a KindSequence value, nil otherwise
func (v Value) Seq() []Value { return v.seq }

// Equal reports whether two values have the same kind and content
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindInteger:
		return v.num == o.num
	case KindFloat:
		return v.flt == o.flt
	case KindBoolean:
		return v.bit == o.bit
	case KindDocument:
		return v.doc.Equal(o.doc)
	case KindSequence:
		if len(v.seq) != len(o.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(o.seq[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String renders the value in a JSON-like notation for logging
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return strconv.Quote(v.str)
	case KindInteger:
		return strconv.FormatInt(v.num, 10)
	case KindFloat:
		return strconv.FormatFloat(v.flt, 'g', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.bit)
	case KindDocument:
		return v.doc.String()
	case KindSequence:
		parts := make([]string, len(v.seq))
		for i, e := range v.seq {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("<%s>", v.kind)
	}
}
