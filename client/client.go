package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/hopper/client/auth"
	"github.com/adamwoolhether/hopper/client/pipeline"
	"github.com/adamwoolhether/hopper/client/stage"
	"github.com/adamwoolhether/hopper/client/throttle"
	"github.com/adamwoolhether/hopper/config"
)

const tracerName = "github.com/adamwoolhether/hopper/client"

// Client issues logical requests. Its defaults, registries and negotiator
// are fixed by Build, so a Client is safe for concurrent use.
type Client struct {
	rt         http.RoundTripper
	defaults   config.Defaults
	stages     stage.Registries
	negotiator auth.Negotiator
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Build creates a Client. Without options it uses [config.Default], the
// [stage.Defaults] registries, the [auth.Default] negotiator and a clone
// of http.DefaultTransport with transparent decompression disabled.
func Build(optFns ...Option) (*Client, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	c := Client{
		defaults:   config.Default(),
		stages:     stage.Defaults(),
		negotiator: auth.Default(),
		logger:     slog.Default(),
		tracer:     noop.NewTracerProvider().Tracer("no-op tracer"),
	}

	if opts.defaults != nil {
		c.defaults = *opts.defaults
	}
	if opts.timeout != nil {
		c.defaults.Timeout = *opts.timeout
	}
	if opts.userAgent != "" {
		c.defaults.UserAgent = opts.userAgent
	}
	if opts.proxy != "" {
		c.defaults.Proxy = opts.proxy
	}
	if opts.strictParse != nil {
		c.defaults.StrictParse = *opts.strictParse
	}
	if err := c.defaults.Validate(); err != nil {
		return nil, fmt.Errorf("validating defaults: %w", err)
	}

	if opts.logger != nil {
		c.logger = opts.logger
	}
	if opts.stages != nil {
		c.stages = *opts.stages
	}
	if opts.negotiator != nil {
		c.negotiator = opts.negotiator
	}

	transport := opts.rt
	if transport == nil {
		t, err := defaultTransport(c.defaults.Proxy)
		if err != nil {
			return nil, err
		}
		transport = t
	}

	if opts.throttle != nil {
		rt, err := throttle.NewRoundTripper(opts.throttle.rps, opts.throttle.burst, func() *slog.Logger { return c.logger }, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		transport = rt
	}

	if opts.tp != nil {
		transport = otelhttp.NewTransport(transport, otelhttp.WithTracerProvider(opts.tp))
		c.tracer = opts.tp.Tracer(tracerName)
	}
	c.rt = transport

	return &c, nil
}

func defaultTransport(proxy string) (*http.Transport, error) {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DisableCompression = true

	if proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("parsing proxy url: %w", err)
		}
		t.Proxy = http.ProxyURL(u)
	}

	return t, nil
}

// Defaults returns the request defaults the client was built with.
func (c *Client) Defaults() config.Defaults {
	return c.defaults
}

// Request starts a logical request and returns its Stream immediately.
// A target without a scheme is treated as http.
func (c *Client) Request(ctx context.Context, method, target string, optFns ...RequestOption) *Stream {
	var opts requestOpts
	var optErr error
	for _, opt := range optFns {
		if err := opt(&opts); err != nil && optErr == nil {
			optErr = fmt.Errorf("applying request option: %w", err)
		}
	}

	ctx, span := c.tracer.Start(ctx, "hopper.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", target),
		),
	)

	id := span.SpanContext().TraceID().String()
	if !span.SpanContext().TraceID().IsValid() {
		id = uuid.New().String()
	}

	s := newStream(id, c.logger, span, opts.callback != nil)
	if opts.callback != nil {
		go s.collect(opts.callback)
	}

	if optErr != nil {
		go s.fail(optErr)
		return s
	}

	rc, err := c.newRequestContext(method, target, &opts)
	if err != nil {
		go s.fail(err)
		return s
	}

	go c.run(ctx, rc, s)

	return s
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, target string, opts ...RequestOption) *Stream {
	return c.Request(ctx, http.MethodGet, target, opts...)
}

// Head issues a HEAD request.
func (c *Client) Head(ctx context.Context, target string, opts ...RequestOption) *Stream {
	return c.Request(ctx, http.MethodHead, target, opts...)
}

// Post issues a POST request.
func (c *Client) Post(ctx context.Context, target string, opts ...RequestOption) *Stream {
	return c.Request(ctx, http.MethodPost, target, opts...)
}

// Put issues a PUT request.
func (c *Client) Put(ctx context.Context, target string, opts ...RequestOption) *Stream {
	return c.Request(ctx, http.MethodPut, target, opts...)
}

// Patch issues a PATCH request.
func (c *Client) Patch(ctx context.Context, target string, opts ...RequestOption) *Stream {
	return c.Request(ctx, http.MethodPatch, target, opts...)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, target string, opts ...RequestOption) *Stream {
	return c.Request(ctx, http.MethodDelete, target, opts...)
}

// Do runs a logical request to completion and returns the aggregated body.
func (c *Client) Do(ctx context.Context, method, target string, opts ...RequestOption) (*Response, *Body, error) {
	type result struct {
		resp *Response
		body *Body
		err  error
	}
	ch := make(chan result, 1)

	opts = append(opts, WithCallback(func(resp *Response, body *Body, err error) {
		ch <- result{resp: resp, body: body, err: err}
	}))
	c.Request(ctx, method, target, opts...)

	r := <-ch
	return r.resp, r.body, r.err
}

// newRequestContext resolves options against the client defaults.
func (c *Client) newRequestContext(method, target string, opts *requestOpts) (*requestContext, error) {
	if method == "" {
		method = http.MethodGet
	}

	uri, err := parseTarget(target)
	if err != nil {
		return nil, err
	}

	d := c.defaults
	rc := requestContext{
		method:  strings.ToUpper(method),
		uri:     uri,
		header:  http.Header{},
		attempt: 1,
		budget:  pick(opts.follow, d.Follow),
		timeout: pick(opts.timeout, d.Timeout),
		output:  opts.output,
		pipe: pipeline.Config{
			Decode:      pick(opts.decode, d.Decode),
			Parse:       pick(opts.parse, d.Parse),
			StrictParse: pick(opts.strictParse, d.StrictParse),
			Logger:      c.logger,
		},
	}

	rc.header.Set("Accept", d.Accept)
	rc.header.Set("User-Agent", d.UserAgent)
	if pick(opts.compressed, d.Compressed) {
		rc.header.Set("Accept-Encoding", "gzip, deflate, br")
	}

	if opts.body != nil {
		b, contentType, err := opts.body()
		if err != nil {
			return nil, err
		}
		rc.body = b
		if contentType != "" {
			rc.header.Set("Content-Type", contentType)
		}
	}
	if opts.contentType != "" {
		rc.header.Set("Content-Type", opts.contentType)
	}

	if cr := opts.creds; cr != nil {
		switch cr.mode {
		case AuthBasic:
			key := "Authorization"
			if d.Proxy != "" {
				key = "Proxy-Authorization"
			}
			rc.header.Set(key, auth.Basic(cr.username, cr.password))
		case AuthAuto:
			rc.creds, rc.negotiator = cr, c.negotiator
		case AuthDigest:
			rc.creds, rc.negotiator = cr, auth.DigestOnly(c.negotiator)
		}
	}

	for k, v := range opts.headers {
		rc.header.Del(k)
		for _, element := range v {
			rc.header.Add(k, element)
		}
	}

	if len(opts.cookies) > 0 {
		carrier := http.Request{Header: rc.header}
		for _, cookie := range opts.cookies {
			carrier.AddCookie(cookie)
		}
	}

	return &rc, nil
}

func parseTarget(target string) (*url.URL, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, fmt.Errorf("parsing target: %w", ErrEmptyTarget)
	}
	if !strings.Contains(target, "://") {
		target = "http://" + target
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parsing target: %w", err)
	}

	return u, nil
}

func pick[T any](override *T, def T) T {
	if override != nil {
		return *override
	}
	return def
}
