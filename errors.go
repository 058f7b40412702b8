package hpack

import "github.com/pkg/errors"

// DecompressionError is fatal for the connection: the wire representation
// could not be interpreted under the HPACK grammar this decoder implements.
// Once returned, the Decoder that produced it must be discarded — its
// internal state (partially consumed scratch registers, a dynamic table
// that may have been mutated mid-representation) is no longer meaningful.
type DecompressionError struct {
	cause error
}

func (e *DecompressionError) Error() string { return e.cause.Error() }
func (e *DecompressionError) Unwrap() error { return e.cause }

func decompressionError(cause error) error {
	return &DecompressionError{cause: errors.WithStack(cause)}
}

func decompressionErrorf(format string, args ...interface{}) error {
	return &DecompressionError{cause: errors.Errorf(format, args...)}
}

// ConfigurationError is a programmer error: a caller passed an argument
// that violates a documented precondition (negative capacity, an
// out-of-range static/dynamic index). It never corrupts decoder state.
type ConfigurationError struct {
	cause error
}

func (e *ConfigurationError) Error() string { return e.cause.Error() }
func (e *ConfigurationError) Unwrap() error { return e.cause }

func configurationErrorf(format string, args ...interface{}) error {
	return &ConfigurationError{cause: errors.Errorf(format, args...)}
}

// ErrNeedMoreBytes is not a failure. It signals that a state, integer
// decode, or bulk-read requires bytes beyond what the current StreamReader
// has available right now; the caller should invoke Decode again once more
// bytes arrive, at the same logical position.
var ErrNeedMoreBytes = errors.New("hpack: need more bytes to make progress")

// Sentinel causes wrapped by DecompressionError and ConfigurationError, so
// callers can switch on them with errors.Is even though the wire value is
// always the richer *DecompressionError / *ConfigurationError type.
var (
	ErrIntegerOverflow         = errors.New("hpack: integer would overflow 32-bit unsigned range")
	ErrIntegerEncodedTooLong   = errors.New("hpack: integer sum overflows signed 32-bit range")
	ErrEmptyLiteralName        = errors.New("hpack: literal header name must not be empty")
	ErrIndexOutOfRange         = errors.New("hpack: index is outside the combined dynamic+static table range")
	ErrNegativeCapacity        = errors.New("hpack: dynamic table capacity must not be negative")
	ErrDynamicIndexOutOfRange  = errors.New("hpack: dynamic table index out of range")
)
