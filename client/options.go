package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/hopper/client/auth"
	"github.com/adamwoolhether/hopper/client/stage"
	"github.com/adamwoolhether/hopper/client/throttle"
	"github.com/adamwoolhether/hopper/config"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error

type options struct {
	rt          http.RoundTripper
	defaults    *config.Defaults
	timeout     *time.Duration
	userAgent   string
	proxy       string
	strictParse *bool
	throttle    *throttleConfig
	logger      *slog.Logger
	tp          trace.TracerProvider
	stages      *stage.Registries
	negotiator  auth.Negotiator
}

type throttleConfig struct {
	rps   int
	burst int
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
// Transparent decompression must be disabled on it for the raw byte count
// and the decompression stages to see encoded bodies.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		c.rt = rt
		return nil
	}
}

// WithDefaults replaces the built-in request defaults, typically with
// the result of [config.Load].
func WithDefaults(d config.Defaults) Option {
	return func(c *options) error {
		c.defaults = &d
		return nil
	}
}

// WithTimeout sets how long each exchange waits for response headers.
// Zero disables the timer.
func WithTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.timeout = &d
		return nil
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(header string) Option {
	return func(c *options) error {
		if header == "" {
			return errors.New("user agent must not be empty")
		}
		c.userAgent = header
		return nil
	}
}

// WithProxy routes requests through the proxy at rawURL. Basic
// credentials are then sent as Proxy-Authorization.
func WithProxy(rawURL string) Option {
	return func(c *options) error {
		if _, err := url.Parse(rawURL); err != nil {
			return fmt.Errorf("parsing proxy url: %w", err)
		}
		c.proxy = rawURL
		return nil
	}
}

// WithStrictParse sets the client-wide parse failure policy.
func WithStrictParse(strict bool) Option {
	return func(c *options) error {
		c.strictParse = &strict
		return nil
	}
}

// WithThrottle enables per-host token-bucket rate limiting with the given
// requests per second and burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(c *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, throttle.ErrMustNotBeZero)
		}
		c.throttle = &throttleConfig{rps: rps, burst: burst}
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *options) error {
		c.logger = logger
		return nil
	}
}

// WithTracerProvider traces every logical request and instruments each
// exchange with otelhttp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *options) error {
		if tp == nil {
			return errors.New("tracer provider must not be nil")
		}
		c.tp = tp
		return nil
	}
}

// WithStages replaces the stage registries. Use [stage.Extend] to add
// entries on top of [stage.Defaults].
func WithStages(regs stage.Registries) Option {
	return func(c *options) error {
		c.stages = &regs
		return nil
	}
}

// WithNegotiator replaces the challenge negotiator used by AuthAuto and
// AuthDigest requests.
func WithNegotiator(n auth.Negotiator) Option {
	return func(c *options) error {
		if n == nil {
			return errors.New("negotiator must not be nil")
		}
		c.negotiator = n
		return nil
	}
}

// AuthMode selects how credentials are presented.
type AuthMode int

const (
	// AuthBasic sends Basic credentials with the first exchange.
	AuthBasic AuthMode = iota
	// AuthAuto answers whatever Basic or Digest challenge the server sends.
	AuthAuto
	// AuthDigest answers Digest challenges only.
	AuthDigest
)

type credentials struct {
	username string
	password string
	mode     AuthMode
}

type outputSpec struct {
	path string
	opts []OutputOption
}

// RequestOption is a functional option for a single logical request.
type RequestOption func(options *requestOpts) error

type requestOpts struct {
	follow      *int
	timeout     *time.Duration
	decode      *bool
	parse       *bool
	strictParse *bool
	compressed  *bool
	headers     http.Header
	cookies     []*http.Cookie
	contentType string
	body        encoder
	creds       *credentials
	output      *outputSpec
	callback    Callback
}

// WithFollow sets the redirect budget. Zero delivers redirects as-is.
func WithFollow(n int) RequestOption {
	return func(opts *requestOpts) error {
		if n < 0 {
			return errors.New("redirect budget must not be negative")
		}
		opts.follow = &n
		return nil
	}
}

// WithFollowRedirects follows up to [config.DefaultRedirectBudget]
// redirects.
func WithFollowRedirects() RequestOption {
	return WithFollow(config.DefaultRedirectBudget)
}

// WithRequestTimeout overrides the header timeout for one request.
func WithRequestTimeout(d time.Duration) RequestOption {
	return func(opts *requestOpts) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		opts.timeout = &d
		return nil
	}
}

// WithDecode toggles charset decoding of textual bodies.
func WithDecode(enabled bool) RequestOption {
	return func(opts *requestOpts) error {
		opts.decode = &enabled
		return nil
	}
}

// WithParse toggles parsing of registered media types.
func WithParse(enabled bool) RequestOption {
	return func(opts *requestOpts) error {
		opts.parse = &enabled
		return nil
	}
}

// WithRequestStrictParse overrides the parse failure policy for one
// request.
func WithRequestStrictParse(strict bool) RequestOption {
	return func(opts *requestOpts) error {
		opts.strictParse = &strict
		return nil
	}
}

// WithCompressed advertises gzip, deflate and br support.
func WithCompressed(enabled bool) RequestOption {
	return func(opts *requestOpts) error {
		opts.compressed = &enabled
		return nil
	}
}

// WithHeaders sets custom headers on the outgoing request. They take
// precedence over defaults; a later call wins per key.
func WithHeaders(headers map[string][]string) RequestOption {
	return func(opts *requestOpts) error {
		if opts.headers == nil {
			opts.headers = http.Header{}
		}
		for k, v := range headers {
			opts.headers[http.CanonicalHeaderKey(k)] = v
		}
		return nil
	}
}

// WithCookies attaches the given cookies to the outgoing request.
func WithCookies(cookies ...*http.Cookie) RequestOption {
	return func(opts *requestOpts) error {
		opts.cookies = append(opts.cookies, cookies...)
		return nil
	}
}

// WithContentType overrides the Content-Type implied by the body option.
func WithContentType(contentType string) RequestOption {
	return func(opts *requestOpts) error {
		if contentType == "" {
			return errors.New("cannot use empty content type")
		}
		opts.contentType = contentType
		return nil
	}
}

// WithAuth attaches credentials presented according to mode.
func WithAuth(username, password string, mode AuthMode) RequestOption {
	return func(opts *requestOpts) error {
		if mode < AuthBasic || mode > AuthDigest {
			return fmt.Errorf("unknown auth mode %d", mode)
		}
		opts.creds = &credentials{username: username, password: password, mode: mode}
		return nil
	}
}

// WithOutput mirrors the raw body of a 200 response into the file at
// path.
func WithOutput(path string, fileOpts ...OutputOption) RequestOption {
	return func(opts *requestOpts) error {
		if path == "" {
			return errors.New("output path must not be empty")
		}
		opts.output = &outputSpec{path: path, opts: fileOpts}
		return nil
	}
}

// WithCallback aggregates the body and delivers it to cb exactly once.
// The returned [Stream] can still be inspected but its items belong to
// the aggregator.
func WithCallback(cb Callback) RequestOption {
	return func(opts *requestOpts) error {
		if cb == nil {
			return errors.New("callback must not be nil")
		}
		opts.callback = cb
		return nil
	}
}
