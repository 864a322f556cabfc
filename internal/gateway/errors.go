package gateway

import (
	"errors"
	"fmt"
	"strings"
)

// Error is any failure talking to the remote API: transport error, timeout
// or non-2xx answer. The caller keeps its edit state and may retry.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Details    string
	Timeout    bool
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "gateway %s", e.Op)
	switch {
	case e.StatusCode != 0:
		fmt.Fprintf(&b, ": http %d", e.StatusCode)
		if e.Message != "" {
			fmt.Fprintf(&b, ": %s", e.Message)
		}
		if e.Details != "" {
			fmt.Fprintf(&b, " (%s)", e.Details)
		}
	case e.Timeout:
		b.WriteString(": timeout")
		if e.Err != nil {
			fmt.Fprintf(&b, ": %v", e.Err)
		}
	case e.Err != nil:
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable is always true: the engine never retries on its own, the user does.
func (e *Error) Retryable() bool { return true }

// AsError extracts a gateway error from err.
func AsError(err error) (*Error, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// IsGatewayError reports whether err came from the remote API boundary.
func IsGatewayError(err error) bool {
	_, ok := AsError(err)
	return ok
}
