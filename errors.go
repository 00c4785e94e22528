package authclient

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusPageExpired is the status Laravel-style backends use for CSRF
// token mismatches. net/http has no constant for it.
const StatusPageExpired = 419

// ErrMissingSession is returned when a component is constructed without a
// SessionState.
var ErrMissingSession = errors.New("missing session state")

// ErrMissingBaseURL is returned when the client is constructed without a
// usable base URL.
var ErrMissingBaseURL = errors.New("missing or invalid base URL")

// ResponseError carries a non-2xx backend response. The client returns it
// unmodified after classification so callers can still branch on status or
// inspect the raw payload.
type ResponseError struct {
	StatusCode int
	Status     string
	Body       []byte
	// RequestID is the correlation id the client assigned to the request.
	RequestID string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("request failed: %s", e.Status)
}

// IsValidationError reports whether err is a 422 response.
func IsValidationError(err error) bool {
	return statusOf(err) == http.StatusUnprocessableEntity
}

// IsCSRFMismatchError reports whether err is a 419 response.
func IsCSRFMismatchError(err error) bool {
	return statusOf(err) == StatusPageExpired
}

// IsUnauthenticatedError reports whether err is a 401 response.
func IsUnauthenticatedError(err error) bool {
	return statusOf(err) == http.StatusUnauthorized
}

func statusOf(err error) int {
	var re *ResponseError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}
