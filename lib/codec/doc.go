// Package codec provides interchangeable document encodings. The BSON codec
// is used by the embedded bbolt store to persist documents, the JSON codec
// (relaxed MongoDB extended JSON) renders documents for humans, e.g. in the
// generate command.
package codec
