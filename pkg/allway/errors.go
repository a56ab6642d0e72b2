package allway

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx answer from the platform.
type APIError struct {
	StatusCode int
	Method     string
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("allway api: %s %s returned %d", e.Method, e.URL, e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the platform.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsConflict reports whether err means the record already exists on the
// platform. The API answers 422 for duplicate contacts and 409 for races.
func IsConflict(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnprocessableEntity || apiErr.StatusCode == http.StatusConflict
}
