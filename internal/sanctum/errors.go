package sanctum

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnknownGuard = errors.New("unknown route guard")
	ErrNoBaseURL    = errors.New("base URL is not configured")
)

// HTTPError is returned when the backend answers with a non-2xx status. The
// response body is kept so callers can surface validation messages.
type HTTPError struct {
	Op         string
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: %s %s: HTTP %d %s", e.Op, e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsServerError reports whether the backend failed with a 5xx status.
func (e *HTTPError) IsServerError() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// StatusCode extracts the HTTP status from an error chain, or 0 when the error
// did not come from a backend response.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// IsUnauthenticated reports whether the backend rejected the request because
// no one is signed in.
func IsUnauthenticated(err error) bool {
	code := StatusCode(err)
	return code == http.StatusUnauthorized || code == 419
}
