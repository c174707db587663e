package reviewdb

import "errors"
import "fmt"

import pkgerrors "github.com/pkg/errors"

// Failure kinds. Every error returned by this package matches exactly one of these with
// errors.Is.
var (
	ErrConnection      = errors.New("connection failure")
	ErrSchemaOperation = errors.New("schema operation failure")
	ErrQuery           = errors.New("query failure")
	ErrConversion      = errors.New("conversion failure")
)

// Causes that are detected locally, before anything is sent to the cluster.
var (
	ErrInvalidName   = errors.New("invalid keyspace or table name")
	ErrInvalidRecord = errors.New("record doesn't match schema")
	ErrInvalidFilter = errors.New("invalid filter")
	ErrSessionClosed = errors.New("session already closed")
)

// WrappedError pairs a failure kind with its underlying cause.
type WrappedError struct {
	kind    error
	msg     string
	wrapped error
}

// WrapError returns an error of the given kind that describes msg and wraps err.
func WrapError(kind error, msg string, err error) error {
	return WrappedError{kind: kind, msg: msg, wrapped: err}
}

func wrapf(kind error, err error, format string, args ...interface{}) error {
	return WrapError(kind, fmt.Sprintf(format, args...), err)
}

// withStack attaches a stack trace to errors coming from the driver.
func withStack(err error) error {
	return pkgerrors.WithStack(err)
}

func (wrap WrappedError) Error() string {
	if wrap.wrapped == nil {
		return fmt.Sprintf("%s: %s", wrap.kind, wrap.msg)
	}
	return fmt.Sprintf("%s: %s: %s", wrap.kind, wrap.msg, wrap.wrapped)
}

func (wrap WrappedError) Unwrap() error        { return wrap.wrapped }
func (wrap WrappedError) Is(target error) bool { return target == wrap.kind }

// Kind returns the failure kind of err, or nil if err did not come from this package.
func Kind(err error) error {
	var wrap WrappedError
	if errors.As(err, &wrap) {
		return wrap.kind
	}
	return nil
}
