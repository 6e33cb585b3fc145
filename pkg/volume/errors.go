package volume

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingFirst is returned when the first volume of a set does not exist.
	ErrMissingFirst = errors.New("first volume not found")
	// ErrInvalidSplit is returned for a negative split size.
	ErrInvalidSplit = errors.New("invalid split size")
	// ErrClosed is returned when writing after Close.
	ErrClosed = errors.New("volume writer closed")
)

// PathError records the volume and offset at which an I/O operation failed.
type PathError struct {
	Op     string
	Path   string
	Offset int64
	Err    error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}
