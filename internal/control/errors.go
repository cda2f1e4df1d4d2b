package control

import (
	"errors"
	"fmt"
)

var (
	// ErrSensorInvalid is returned when a reading has a NaN field or the
	// sensor could not be read at all.
	ErrSensorInvalid = errors.New("sensor reading invalid")

	// ErrInvalidLevel is returned for a speed level outside 0-3.
	ErrInvalidLevel = errors.New("invalid speed level")
)

// RemoteError reports a failed read or write against one remote path.
type RemoteError struct {
	Op   string // "read" or "write"
	Path string
	Err  error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func readError(path string, err error) error {
	return &RemoteError{Op: "read", Path: path, Err: err}
}

func writeError(path string, err error) error {
	return &RemoteError{Op: "write", Path: path, Err: err}
}
