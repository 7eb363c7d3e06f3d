package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode classifies failures of container operations.
type ErrorCode int

const (
	ContainerNotExists ErrorCode = iota
	ContainerAlreadyExists
	ContainerAlreadyRunning
	MalformedInfoLine
	EngineInvocationFailed
	InvalidName
	InvalidArgument
)

func (c ErrorCode) String() string {
	switch c {
	case ContainerNotExists:
		return "Container does not exist"
	case ContainerAlreadyExists:
		return "Container already exists"
	case ContainerAlreadyRunning:
		return "Container is already running"
	case MalformedInfoLine:
		return "Malformed info line"
	case EngineInvocationFailed:
		return "Engine invocation failed"
	case InvalidName:
		return "Invalid container name"
	case InvalidArgument:
		return "Invalid argument"
	default:
		return "Unknown error"
	}
}

// Error is returned by every ContainerService operation that fails for a
// reason the caller can act on.
type Error struct {
	Code ErrorCode
	// Name is the container the operation targeted, empty when none.
	Name    string
	Message string
	Err     error
}

// NewError builds an Error for the named container.
func NewError(code ErrorCode, name string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Name:    name,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError attaches a code to an underlying error.
func WrapError(err error, code ErrorCode, name string, format string, args ...interface{}) *Error {
	e := NewError(code, name, format, args...)
	e.Err = err
	return e
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Cause lets github.com/pkg/errors walk through to the underlying error.
func (e *Error) Cause() error { return e.Err }

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
