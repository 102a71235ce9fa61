package fs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates no base directory of the search path holds the
	// requested virtual path.
	ErrNotFound = errors.New("virtual path not found")

	// ErrTraversal indicates a virtual path that would escape its base
	// directory.
	ErrTraversal = errors.New("path escapes base directory")

	// ErrForbidden indicates a resource that exists but may not be served.
	ErrForbidden = errors.New("access denied")

	// ErrUnreadable indicates a directory that passed the existence check
	// but could not be enumerated.
	ErrUnreadable = errors.New("directory unreadable")

	// ErrMisconfigured indicates a per-directory configuration file that
	// failed to parse or compile.
	ErrMisconfigured = errors.New("directory configuration invalid")
)

// Error wraps a failure with the operation and the path it concerned.
type Error struct {
	Op   string // Operation that failed (e.g., "resolve", "readdir")
	Path string // Virtual or physical path involved
	Err  error  // Underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap implements error unwrapping for the errors.Is/As functions.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error for op on path. When cause is non-nil the
// sentinel kind and the cause are both reachable through errors.Is.
func NewError(op, path string, kind, cause error) *Error {
	err := kind
	if cause != nil {
		err = fmt.Errorf("%w: %w", kind, cause)
	}
	return &Error{Op: op, Path: path, Err: err}
}

// Operation names used in errors and logs.
const (
	OpResolve = "resolve"
	OpReadDir = "readdir"
	OpOpen    = "open"
	OpConfig  = "config"
	OpExec    = "exec"
)
