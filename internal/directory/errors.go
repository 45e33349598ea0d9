package directory

import (
	"errors"
	"fmt"
)

// ErrRemoteUnavailable is returned by every operation of a client that has no database
var ErrRemoteUnavailable = errors.New("remote directory is not available")

// RemoteWriteError reports a failed remote write
type RemoteWriteError struct {
	Op  string
	ID  string
	Err error
}

func (e *RemoteWriteError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("directory %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("directory %s %s failed: %v", e.Op, e.ID, e.Err)
}

func (e *RemoteWriteError) Unwrap() error {
	return e.Err
}
