package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/hopper/client/download"
	"github.com/adamwoolhether/hopper/client/pipeline"
	"github.com/adamwoolhether/hopper/client/stage"
)

// Stream is the live output of a logical request. It is returned before
// any network activity; Ready closes once the terminal response headers
// arrive or the request fails.
//
// Items are pulled with Next (or Read for byte sinks) from one goroutine.
// A stream that is not drained to the end must be closed.
type Stream struct {
	id     string
	logger *slog.Logger
	span   trace.Span

	ready chan struct{}
	done  chan struct{}

	resp      *Response
	reqMethod string
	kind      stage.Kind
	parsed    bool
	src       stage.Source

	aggregated bool
	pending    []byte

	endOnce sync.Once
	endErr  error
	cleanup func(err error)
}

func newStream(id string, logger *slog.Logger, span trace.Span, aggregated bool) *Stream {
	return &Stream{
		id:         id,
		logger:     logger,
		span:       span,
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
		aggregated: aggregated,
	}
}

// ID identifies the logical request in logs and traces.
func (s *Stream) ID() string { return s.id }

// Ready is closed once the response is available or the request failed.
func (s *Stream) Ready() <-chan struct{} { return s.ready }

// Done is closed once the body has been fully consumed, the stream was
// closed, or the request failed.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Response blocks until Ready and returns the terminal response, or nil
// when the request failed.
func (s *Stream) Response() *Response {
	<-s.ready
	return s.resp
}

// Kind blocks until Ready and returns the payload kind of the sink.
func (s *Stream) Kind() stage.Kind {
	<-s.ready
	return s.kind
}

// Err returns the terminal error once Done is closed, nil otherwise.
func (s *Stream) Err() error {
	select {
	case <-s.done:
		if errors.Is(s.endErr, io.EOF) {
			return nil
		}
		return s.endErr
	default:
		return nil
	}
}

// Next returns the next sink item. It returns io.EOF after the last item.
func (s *Stream) Next() (stage.Chunk, error) {
	if s.aggregated {
		return stage.Chunk{}, ErrAggregated
	}
	return s.next()
}

// Read reads decoded bytes from a byte sink.
func (s *Stream) Read(p []byte) (int, error) {
	if s.aggregated {
		return 0, ErrAggregated
	}

	<-s.ready
	if s.resp != nil && s.kind == stage.KindObject {
		return 0, ErrObjectMode
	}

	for len(s.pending) == 0 {
		c, err := s.next()
		if err != nil {
			return 0, err
		}
		s.pending = c.Bytes
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]

	return n, nil
}

// Close ends the stream, discarding unread items. A pending output file
// is removed. Close blocks until the response is ready and is a no-op for
// streams consumed by a completion callback.
func (s *Stream) Close() error {
	if s.aggregated {
		return nil
	}

	<-s.ready
	s.end(ErrClosed)
	return nil
}

func (s *Stream) next() (stage.Chunk, error) {
	<-s.ready

	select {
	case <-s.done:
		return stage.Chunk{}, s.endErr
	default:
	}

	c, err := s.src.Next()
	if err == nil {
		return c, nil
	}

	if !errors.Is(err, io.EOF) {
		err = s.classify(err)
		s.logger.Error("reading response body", "request_id", s.id, "error", err)
	}
	s.end(err)

	return stage.Chunk{}, err
}

func (s *Stream) classify(err error) error {
	var se *pipeline.SourceError
	if errors.As(err, &se) {
		return &TransportError{Method: s.reqMethod, URL: s.resp.URL, Err: se.Err}
	}
	return err
}

// fail ends a stream that never reached a terminal response.
func (s *Stream) fail(err error) {
	s.end(err)
	close(s.ready)
}

// end runs the cleanup once and closes done.
func (s *Stream) end(err error) {
	s.endOnce.Do(func() {
		s.endErr = err
		if s.cleanup != nil {
			s.cleanup(err)
		}

		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, ErrClosed) {
			s.span.RecordError(err)
			s.span.SetStatus(codes.Error, err.Error())
		}
		if s.resp != nil {
			s.span.SetAttributes(
				attribute.Int("http.response.status_code", s.resp.StatusCode),
				attribute.Int64("hopper.raw_bytes", s.resp.Bytes),
			)
		}
		s.span.End()

		close(s.done)
	})
}

// open attaches the terminal response to the stream: it assembles the
// pipeline, wires the byte counter and output file, and marks it ready.
func (s *Stream) open(resp *http.Response, rc *requestContext, regs stage.Registries, cancel context.CancelFunc) {
	p := pipeline.Build(resp.Header, rc.pipe, regs)

	s.reqMethod = rc.method

	counter := &countingReader{r: resp.Body}
	var body io.Reader = counter

	s.resp = &Response{
		StatusCode:  resp.StatusCode,
		Status:      resp.Status,
		Header:      resp.Header,
		ContentType: p.ContentType(),
		URL:         rc.uri,
		Attempts:    rc.attempt,
		Stages:      p.Stages(),
	}

	var out *download.File
	if rc.output != nil && resp.StatusCode == http.StatusOK {
		size := resp.ContentLength
		if rc.method == http.MethodHead || resp.Body == http.NoBody {
			size = -1
		}
		f, err := download.Create(rc.output.path, size, s.logger, rc.output.opts...)
		if err != nil {
			s.logger.Error("opening output file", "request_id", s.id, "path", rc.output.path, "error", err)
			s.resp.OutputErr = err
		}
		if f != nil {
			out = f
			body = io.TeeReader(body, out)
		}
	}

	s.cleanup = func(err error) {
		// Stages may stop short of trailing bytes, and a failing stage
		// leaves the rest of the raw body unread. The output file still
		// receives every byte in both cases.
		drained := err == nil || errors.Is(err, io.EOF) || (out != nil && errors.Is(err, ErrStage))
		if drained {
			if _, derr := io.Copy(io.Discard, body); derr != nil {
				s.logger.Debug("draining response body", "request_id", s.id, "error", derr)
				drained = false
				if out != nil {
					s.resp.OutputErr = fmt.Errorf("reading response body: %w", derr)
				}
			}
		}
		s.resp.Bytes = counter.n

		if out != nil {
			if drained {
				if oerr := out.Commit(); oerr != nil {
					s.logger.Error("committing output file", "request_id", s.id, "path", rc.output.path, "error", oerr)
					s.resp.OutputErr = oerr
				}
			} else {
				out.Abort()
			}
		}

		if cerr := resp.Body.Close(); cerr != nil {
			s.logger.Error("failed to close response body", "request_id", s.id, "error", cerr)
		}
		cancel()
	}

	src, err := p.Open(body)
	if err != nil {
		s.kind = p.Kind()
		s.end(err)
		close(s.ready)
		return
	}

	s.kind = p.Kind()
	s.parsed = p.Parsed()
	s.src = src
	s.span.SetAttributes(attribute.StringSlice("hopper.stages", s.resp.Stages))

	close(s.ready)
}

// countingReader counts the bytes read through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
