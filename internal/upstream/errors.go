package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrEmptyBaseURL = errors.New("upstream base url is required")

// StatusError is returned when a backend answers with a non-2xx status.
type StatusError struct {
	Endpoint   string
	Method     string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s returned status %d", e.Method, e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from a backend.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}
