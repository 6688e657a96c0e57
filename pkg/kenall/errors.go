package kenall

import (
	"fmt"
)

// UpstreamError is an unrecoverable lookup failure: either the provider responded with
// an unexpected HTTP status, or the request didn't complete (Err is set). It is never
// retried, and its details are meant for logs, not for end users.
type UpstreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to call kenall.jp API: %v", e.Err)
	}
	return fmt.Sprintf("failed to call kenall.jp API: status %d, body: %s", e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
