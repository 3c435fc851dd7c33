package flowbit

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoFile is returned when a submission is attempted without a file.
	ErrNoFile = errors.New("no file selected")

	// ErrUnexpectedStatus is returned when /process answers with a status
	// other than "processing".
	ErrUnexpectedStatus = errors.New("unexpected submit status")
)

// StatusError reports a non-2xx answer from the processing service.
type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Code)
}

// Temporary reports whether retrying the request could succeed.
func (e *StatusError) Temporary() bool {
	return e.Code >= http.StatusInternalServerError || e.Code == http.StatusTooManyRequests
}

// DecodeError reports a body that is not valid JSON or lacks a status field.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response from %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transient failure: a network error
// or a 5xx/429 answer. Decode errors and other 4xx answers are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var netErr *requestError
	return errors.As(err, &netErr)
}

// requestError wraps failures of the HTTP round trip itself.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return "execute request: " + e.err.Error() }

func (e *requestError) Unwrap() error { return e.err }
