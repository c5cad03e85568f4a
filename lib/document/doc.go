// Package document defines the data model shared by the factories and the
// stores: an ordered Document mapping string keys to Values, where each Value
// carries an explicit Kind (string, integer, float, boolean, nested document
// or sequence).
//
// Samples are decoded from MongoDB extended JSON (through the mongo-driver
// bson package, which preserves key order and number types) or from YAML.
// Stores exchange documents as bson.D via ToBSON and FromBSON.
package document
