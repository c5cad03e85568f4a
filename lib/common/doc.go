// Package common holds the pieces shared by every dLoad package: the typed
// Error with its failure codes, the load configuration with its validation
// rules and the logger factory plugged into dragonboat's logger package.
//
// Errors:
//
//	All packages report failures as *Error. The Code field identifies the
//	failure class (configuration, connection, sample read, unsupported
//	schema, saturation, invalid length, write) and errors.Is matches any
//	*Error with the same code, so the exported sentinels (ErrConfiguration,
//	ErrConnection, ...) can be used for classification. Errors marked
//	Temporary may be retried by the caller.
//
// Logging:
//
//	Packages obtain a named logger via logger.GetLogger(name) where name is
//	one of LoggerNames. InitLoggers installs the dLoad formatter and sets the
//	level for all of them.
package common
