package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// exchange performs one physical round trip for rc. The returned cancel
// func aborts the exchange and must be called once the response body is no
// longer needed.
//
// When rc.timeout is positive and no headers arrive before it fires, the
// exchange is aborted and a TimeoutError returned.
func (c *Client) exchange(ctx context.Context, rc *requestContext) (*http.Response, context.CancelFunc, error) {
	ctx, cancel := context.WithCancel(ctx)

	var body io.Reader
	if rc.body != nil {
		body = bytes.NewReader(rc.body)
	}

	req, err := http.NewRequestWithContext(ctx, rc.method, rc.uri.String(), body)
	if err != nil {
		cancel()
		return nil, nil, &TransportError{Method: rc.method, URL: rc.uri, Err: err}
	}
	req.Header = rc.header.Clone()

	type result struct {
		resp *http.Response
		err  error
	}
	headers := make(chan result, 1)

	go func() {
		resp, err := c.rt.RoundTrip(req)
		headers <- result{resp: resp, err: err}
	}()

	var expired <-chan time.Time
	if rc.timeout > 0 {
		timer := time.NewTimer(rc.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case r := <-headers:
		if r.err != nil {
			cancel()
			return nil, nil, &TransportError{Method: rc.method, URL: rc.uri, Err: r.err}
		}
		return r.resp, cancel, nil

	case <-expired:
		cancel()
		go func() {
			if r := <-headers; r.resp != nil {
				_ = r.resp.Body.Close()
			}
		}()
		return nil, nil, &TimeoutError{Timeout: rc.timeout, URL: rc.uri, Err: ErrTimeout}
	}
}

// discard drains a bounded amount of an unused body and closes it.
func (c *Client) discard(resp *http.Response, cancel context.CancelFunc) {
	defer cancel()

	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxDiscardSize)); err != nil {
		c.logger.Debug("failed to discard unused body", "error", err)
	}
	if err := resp.Body.Close(); err != nil {
		c.logger.Error("failed to close response body", "error", err)
	}
}
