package common

import (
	"fmt"
)

// IOError reports that an asset could not be read: the path is missing or unreadable,
// or the container ended before its declared contents.
type IOError struct {
	// Path is the file that failed to read. Empty when reading from a stream.
	Path string
	// Err is the underlying cause.
	Err error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("io error: %v", e.Err)
	}
	return fmt.Sprintf("io error reading %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// FormatError reports malformed or unsupported container contents, such as an unknown
// component type, a missing required attribute, or an accessor outside its buffer.
type FormatError struct {
	// Op names the decoding step that rejected the input (e.g. "accessor 3").
	Op string
	// Err is the underlying cause.
	Err error
}

func (e *FormatError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("format error: %v", e.Err)
	}
	return fmt.Sprintf("format error in %s: %v", e.Op, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// ResourceError reports a failed GPU allocation or upload.
type ResourceError struct {
	// Op names the GPU operation that failed (e.g. "create vertex buffer").
	Op string
	// Err is the underlying cause.
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource error in %s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewIOError wraps err as an IOError for the given path.
//
// Parameters:
//   - path: the file being read (may be empty)
//   - err: the underlying cause
//
// Returns:
//   - error: the wrapped *IOError
func NewIOError(path string, err error) error {
	return &IOError{Path: path, Err: err}
}

// NewFormatError builds a FormatError from a formatted message. A %w verb in format
// keeps the wrapped cause reachable through errors.Is.
//
// Parameters:
//   - op: the decoding step that failed
//   - format: fmt format string
//   - args: format arguments
//
// Returns:
//   - error: the wrapped *FormatError
func NewFormatError(op string, format string, args ...any) error {
	return &FormatError{Op: op, Err: fmt.Errorf(format, args...)}
}

// NewResourceError wraps err as a ResourceError for the given GPU operation.
//
// Parameters:
//   - op: the GPU operation that failed
//   - err: the underlying cause
//
// Returns:
//   - error: the wrapped *ResourceError
func NewResourceError(op string, err error) error {
	return &ResourceError{Op: op, Err: err}
}
