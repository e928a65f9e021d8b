package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/hopper/client/auth"
	"github.com/adamwoolhether/hopper/client/pipeline"
)

// requestContext is the mutable state of one logical request. Only the
// orchestrator loop touches it, between exchanges.
type requestContext struct {
	method  string
	uri     *url.URL
	header  http.Header
	body    []byte
	attempt int
	budget  int
	timeout time.Duration

	creds      *credentials
	negotiator auth.Negotiator
	authorized bool

	output *outputSpec
	pipe   pipeline.Config
}

// decision is what the orchestrator does with a response.
type decision interface {
	isDecision()
}

type (
	proceed        struct{}
	redirect       struct{ location *url.URL }
	reauthenticate struct{ header string }
	fail           struct{ err error }
)

func (proceed) isDecision()        {}
func (redirect) isDecision()       {}
func (reauthenticate) isDecision() {}
func (fail) isDecision()           {}

// decide applies the redirect rule, then the challenge rule, to resp.
func decide(rc *requestContext, resp *http.Response) decision {
	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound:
		loc := resp.Header.Get("Location")
		if loc == "" {
			break
		}

		if rc.attempt <= rc.budget {
			target, err := rc.uri.Parse(loc)
			if err != nil {
				return fail{err: fmt.Errorf("resolving redirect location %q: %w", loc, err)}
			}
			return redirect{location: target}
		}

		if rc.budget > 0 {
			return fail{err: &MaxRedirectsError{Location: loc, Budget: rc.budget, Err: ErrMaxRedirects}}
		}

	case http.StatusUnauthorized:
		challenge := resp.Header.Get("WWW-Authenticate")
		if challenge == "" || rc.creds == nil || rc.authorized || rc.header.Get("Authorization") != "" {
			break
		}

		header, ok := rc.negotiator.Negotiate(challenge, rc.creds.username, rc.creds.password, rc.method, rc.uri.RequestURI())
		if ok {
			return reauthenticate{header: header}
		}
	}

	return proceed{}
}

// run drives the exchange loop for rc until a terminal response or a
// failure, then hands the response to s.
func (c *Client) run(ctx context.Context, rc *requestContext, s *Stream) {
	for {
		c.logger.Debug("request",
			"request_id", s.id,
			"method", rc.method,
			"url", rc.uri.String(),
			"attempt", rc.attempt,
		)

		resp, cancel, err := c.exchange(ctx, rc)
		if err != nil {
			c.logger.Warn("exchange failed", "request_id", s.id, "url", rc.uri.String(), "error", err)
			s.fail(err)
			return
		}

		switch d := decide(rc, resp).(type) {
		case redirect:
			c.discard(resp, cancel)
			c.logger.Debug("following redirect", "request_id", s.id, "status", resp.StatusCode, "location", d.location.String())
			s.span.AddEvent("redirect", trace.WithAttributes(
				attribute.Int("http.response.status_code", resp.StatusCode),
				attribute.String("location", d.location.String()),
			))

			if d.location.Host != rc.uri.Host {
				rc.header.Del("Authorization")
			}
			rc.attempt++
			rc.uri = d.location
			rc.method = http.MethodGet
			rc.body = nil
			rc.header.Del("Content-Type")

		case reauthenticate:
			c.discard(resp, cancel)
			c.logger.Debug("answering auth challenge", "request_id", s.id, "scheme", auth.Scheme(d.header))
			s.span.AddEvent("reauthenticate")

			rc.header.Set("Authorization", d.header)
			rc.authorized = true

		case fail:
			c.discard(resp, cancel)
			c.logger.Warn("request failed", "request_id", s.id, "error", d.err)
			s.fail(d.err)
			return

		case proceed:
			s.open(resp, rc, c.stages, cancel)
			return
		}
	}
}
