package globish

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrCredentialRejected is returned when the service answers 401 or 404 to
// an authenticated request: the token expired or was never valid.
var ErrCredentialRejected = errors.New("globish: credential rejected")

// TransportError is any failure to get a usable answer from the service
// that is not a credential problem: network errors, 5xx, undecodable bodies.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("globish %s: http %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("globish %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsCredentialStatus reports whether an HTTP status means the token is bad.
func IsCredentialStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusNotFound
}
