package client

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/adamwoolhether/hopper/client/pipeline"
)

var (
	// ErrTransport is the sentinel wrapped by [TransportError].
	ErrTransport = errors.New("transport failure")
	// ErrTimeout is the sentinel wrapped by [TimeoutError].
	ErrTimeout = errors.New("timed out waiting for response headers")
	// ErrMaxRedirects is the sentinel wrapped by [MaxRedirectsError].
	ErrMaxRedirects = errors.New("max redirects reached")
	// ErrStage is the sentinel wrapped by [StageError].
	ErrStage = pipeline.ErrStage

	// ErrAggregated is returned by [Stream.Next] and [Stream.Read] when the
	// stream's items are consumed by a completion callback.
	ErrAggregated = errors.New("stream is consumed by the completion callback")
	// ErrObjectMode is returned by [Stream.Read] when the sink carries
	// structured values rather than bytes.
	ErrObjectMode = errors.New("stream carries objects, use Next")
	// ErrClosed is returned after [Stream.Close] ends a stream early.
	ErrClosed = errors.New("stream closed")
	// ErrEmptyTarget is returned for a request without a target.
	ErrEmptyTarget = errors.New("target must not be empty")
)

// StageError reports a failing decompression, parsing or decoding stage.
type StageError = pipeline.StageError

// TransportError reports a failed exchange or body read. It is never
// retried.
type TransportError struct {
	Method string
	URL    *url.URL
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%v: %s %s: %v", ErrTransport, e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// TimeoutError reports that no response headers arrived in time.
type TimeoutError struct {
	Timeout time.Duration
	URL     *url.URL
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%v: %s after %s", e.Err, e.URL, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// MaxRedirectsError reports a redirect past the configured budget.
type MaxRedirectsError struct {
	Location string
	Budget   int
	Err      error
}

func (e *MaxRedirectsError) Error() string {
	return fmt.Sprintf("%v: budget %d, next location %s", e.Err, e.Budget, e.Location)
}

func (e *MaxRedirectsError) Unwrap() error {
	return e.Err
}
