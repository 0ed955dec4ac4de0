package api

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when the server rejected the request with
// 401 or 403. The configured auth-error hook has already fired by the time
// a caller sees this error.
var ErrUnauthorized = errors.New("unauthorized: request rejected by server")

// TransportError wraps a failure to complete a gateway call: the network was
// unreachable, the request timed out, or the response body was not the
// envelope shape.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
