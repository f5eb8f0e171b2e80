package recordstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a rejection reported by the Record Store, either a non-2xx status
// or a 2xx envelope whose status is not OK.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("recordstore: %d %s", e.StatusCode, e.Status)
	}
	return fmt.Sprintf("recordstore: %d %s: %s", e.StatusCode, e.Status, e.Message)
}

// TransportError wraps failures that never produced a response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("recordstore %s: %v", e.Op, e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }

// Message returns the backend supplied message carried by err, if any.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// IsNotFound reports whether err is a 404 from the Record Store.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether the Record Store refused the forwarded token.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden)
}

// parseAPIError decodes the envelope of an error body, falling back to raw text.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode, Status: http.StatusText(statusCode)}
	var env Envelope
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Status != "" {
			apiErr.Status = env.Status
		}
		apiErr.Message = env.message()
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if len(apiErr.Message) > 512 {
		apiErr.Message = apiErr.Message[:512]
	}
	return apiErr
}
