package common

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Codes
// --------------------------------------------------------------------------

type ErrCode uint8

const (
	ErrCUnknown             ErrCode = iota // 0: Unclassified failure.
	ErrCConfiguration                      // 1: Invalid configuration, detected before any connection attempt.
	ErrCConnection                         // 2: The store could not be reached, authenticated against or resolved.
	ErrCSampleRead                         // 3: The sample could not be read or decoded.
	ErrCSchemaUnsupported                  // 4: The sample contains a value kind that cannot be mirrored.
	ErrCSaturationExceeded                 // 5: Unique strings of the requested length are exhausted.
	ErrCInvalidLength                      // 6: A requested string length is out of range.
	ErrCWrite                              // 7: A document could not be written to the store.
)

// String returns the name of the error code
func (c ErrCode) String() string {
	switch c {
	case ErrCConfiguration:
		return "ConfigurationError"
	case ErrCConnection:
		return "ConnectionError"
	case ErrCSampleRead:
		return "SampleReadError"
	case ErrCSchemaUnsupported:
		return "SchemaUnsupported"
	case ErrCSaturationExceeded:
		return "SaturationExceeded"
	case ErrCInvalidLength:
		return "InvalidLength"
	case ErrCWrite:
		return "WriteError"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the error type returned by all dLoad packages. It carries a Code
// identifying the failure class, a message and an optional cause.
//
// Errors compare equal under errors.Is when their codes match, so callers can
// test against the sentinels below:
//
//	if errors.Is(err, common.ErrSaturationExceeded) { ... }
type Error struct {
	Code ErrCode // The failure class
	Msg  string  // The error message
	Err  error   // The underlying cause, may be nil
	// Temporary marks failures that may succeed when retried (e.g. network timeouts).
	Temporary bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is
var (
	ErrConfiguration      = &Error{Code: ErrCConfiguration, Msg: "configuration error"}
	ErrConnection         = &Error{Code: ErrCConnection, Msg: "connection error"}
	ErrSampleRead         = &Error{Code: ErrCSampleRead, Msg: "sample read error"}
	ErrSchemaUnsupported  = &Error{Code: ErrCSchemaUnsupported, Msg: "unsupported schema"}
	ErrSaturationExceeded = &Error{Code: ErrCSaturationExceeded, Msg: "unique strings saturated"}
	ErrInvalidLength      = &Error{Code: ErrCInvalidLength, Msg: "invalid length"}
	ErrWrite              = &Error{Code: ErrCWrite, Msg: "write error"}
)

// NewError creates a new Error with the given code and formatted message.
func NewError(code ErrCode, format string, args ...interface{}) *Error {
	return &Error{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// WrapError creates a new Error with the given code and message that wraps err.
func WrapError(code ErrCode, err error, format string, args ...interface{}) *Error {
	return &Error{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
		Err:  err,
	}
}

// IsTemporary reports whether err (or any error it wraps) is an *Error marked as temporary.
func IsTemporary(err error) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Temporary {
			return true
		}
		err = e.Err
	}
	return false
}
