// Package throttle provides an [http.RoundTripper] that rate-limits
// outbound HTTP requests per target host using the token bucket from
// [golang.org/x/time/rate].
//
// Wrap an existing transport with [NewRoundTripper]:
//
//	rt, err := throttle.NewRoundTripper(
//		10, // requests per second, per host
//		5,  // burst capacity
//		func() *slog.Logger { return slog.Default() },
//		http.DefaultTransport,
//	)
//
// When a host's bucket is empty, requests to it block until a token
// becomes available or the request context ends. Other hosts are
// unaffected.
package throttle
