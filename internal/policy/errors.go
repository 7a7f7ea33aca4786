package policy

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteUnavailable indicates the decision service could not be reached,
	// timed out, or is shed by the circuit breaker.
	ErrRemoteUnavailable = errors.New("policy: remote unavailable")
	// ErrRemoteRejected indicates the decision service answered with a
	// non-success status.
	ErrRemoteRejected = errors.New("policy: remote rejected")
)

// RemoteError carries the upstream status and message of a rejected call.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("policy: remote rejected with status %d: %s", e.Status, e.Message)
}

// Is makes RemoteError match ErrRemoteRejected in errors.Is chains.
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemoteRejected
}
