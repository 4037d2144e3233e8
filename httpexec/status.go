package httpexec

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is returned for a response outside the 2xx range when the
// endpoint's status policy is strict.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

func (e *StatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Endpoint == "" {
		return "httpexec: unexpected status " + status
	}
	return fmt.Sprintf("httpexec: %s: unexpected status %s", e.Endpoint, status)
}

// StatusCode returns the status code carried by err, or 0 if err is not
// a *StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
