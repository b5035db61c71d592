package authority

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// HTTPDoer is the minimal interface needed from an HTTP client.
// *http.Client satisfies it; tests substitute a stub.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Call executes the request and drains the body, classifying transport-level
// failures into the normalized taxonomy. Status handling stays with the
// connector: authorities disagree about what a 404 means.
func Call(client HTTPDoer, authorityName string, req *http.Request) (int, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(req.Context().Err(), context.DeadlineExceeded) {
			return 0, nil, NewError(ErrorTimeout, authorityName, "request timeout", err)
		}
		return 0, nil, NewError(ErrorOutage, authorityName, "failed to execute request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, NewError(ErrorBadData, authorityName, "failed to read response", err)
	}

	return resp.StatusCode, body, nil
}

// StatusError converts a non-2xx status the connector does not handle itself
// into a normalized error carrying the status and a body excerpt.
func StatusError(authorityName string, status int, body []byte) *Error {
	category := ErrorOutage
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		category = ErrorAuthentication
	case status == http.StatusTooManyRequests:
		category = ErrorRateLimited
	case status >= 400 && status < 500:
		category = ErrorBadData
	}

	excerpt := body
	if len(excerpt) > 256 {
		excerpt = excerpt[:256]
	}
	return NewError(category, authorityName, fmt.Sprintf("unexpected status %d: %s", status, excerpt), nil)
}
