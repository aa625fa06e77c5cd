package custody

import (
	"errors"
	"fmt"
)

// ErrWorkspaceDisabled is returned by clients bound to a workspace without
// usable credentials. Callers skip such workspaces rather than retry.
var ErrWorkspaceDisabled = errors.New("custody workspace is disabled")

// UpstreamError is a non-2xx response from the custody provider. The core
// never retries; status and body are surfaced to the caller.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("custody API HTTP %d: %s", e.Status, e.Body)
}

// TimeoutError is a custody request that exceeded the fixed deadline.
type TimeoutError struct {
	URL string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("custody request to %s timed out: %v", e.URL, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Timeout marks the error as transient in the net.Error sense.
func (e *TimeoutError) Timeout() bool { return true }
