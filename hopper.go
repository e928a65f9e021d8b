// Package hopper exposes the client builder and package-level helpers
// backed by a shared default client.
package hopper

import (
	"context"
	"net/http"
	"sync"

	"github.com/adamwoolhether/hopper/client"
)

// NewClient instantiates a new *client.Client with the provided options.
// Without options the built-in request defaults and a clone of
// http.DefaultTransport are used.
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}

var defaultClient = sync.OnceValues(func() (*client.Client, error) {
	return client.Build()
})

// Get issues a GET request with the default client.
func Get(ctx context.Context, target string, opts ...client.RequestOption) (*client.Stream, error) {
	c, err := defaultClient()
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, target, opts...), nil
}

// Do runs a logical request to completion with the default client.
func Do(ctx context.Context, method, target string, opts ...client.RequestOption) (*client.Response, *client.Body, error) {
	c, err := defaultClient()
	if err != nil {
		return nil, nil, err
	}
	return c.Do(ctx, method, target, opts...)
}

// Fetch is Do with the GET method.
func Fetch(ctx context.Context, target string, opts ...client.RequestOption) (*client.Response, *client.Body, error) {
	return Do(ctx, http.MethodGet, target, opts...)
}
