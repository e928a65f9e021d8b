// Package pipeline assembles the ordered list of stages a response body is
// decoded through and runs it against the raw body.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/adamwoolhether/hopper/client/stage"
)

var (
	// ErrStage is the sentinel wrapped by [StageError].
	ErrStage = errors.New("pipeline stage failed")
	// ErrSource is the sentinel wrapped by [SourceError].
	ErrSource = errors.New("reading response body")
)

// StageError reports a failing decompression, parsing or decoding stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrStage, e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{ErrStage, e.Err}
}

// SourceError reports a failure reading the raw body below every stage.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%v: %v", ErrSource, e.Err)
}

func (e *SourceError) Unwrap() []error {
	return []error{ErrSource, e.Err}
}

// Config gates the optional stages.
type Config struct {
	Parse       bool
	Decode      bool
	StrictParse bool
	Logger      *slog.Logger
}

// Pipeline is an ordered list of stages and the payload kind of its output.
// Both are fixed by Build.
type Pipeline struct {
	stages      []stage.Stage
	kind        stage.Kind
	parsed      bool
	contentType ContentType
	strict      bool
	logger      *slog.Logger
}

// Build selects the stages for a response with the given headers:
// decompression when the Content-Encoding token is registered, then either
// parsing (when enabled and the media type is registered) or charset
// decoding (textual, non UTF-8 responses with decoding enabled).
func Build(header http.Header, cfg Config, regs stage.Registries) *Pipeline {
	p := Pipeline{
		kind:        stage.KindBytes,
		contentType: ParseContentType(header.Get("Content-Type")),
		strict:      cfg.StrictParse,
		logger:      cfg.Logger,
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	if enc := header.Get("Content-Encoding"); enc != "" && regs.Decompressors != nil {
		if ctor, ok := regs.Decompressors.Lookup(enc); ok {
			p.stages = append(p.stages, ctor())
		}
	}

	if cfg.Parse && regs.Parsers != nil && p.contentType.MediaType != "" {
		if ctor, ok := regs.Parsers.Lookup(p.contentType.MediaType); ok {
			p.stages = append(p.stages, ctor())
			p.parsed = true
			p.kind = stage.KindObject
		}
	}

	if !p.parsed && cfg.Decode && regs.Decoders != nil &&
		p.contentType.IsText() && p.contentType.Charset != "" && !p.contentType.IsUTF8() {
		if ctor, ok := regs.Decoders.Lookup(p.contentType.Charset); ok {
			p.stages = append(p.stages, ctor())
		}
	}

	return &p
}

// Kind reports the payload kind of the pipeline output.
func (p *Pipeline) Kind() stage.Kind { return p.kind }

// Parsed reports whether a parsing stage is part of the pipeline.
func (p *Pipeline) Parsed() bool { return p.parsed }

// ContentType returns the parsed Content-Type of the response.
func (p *Pipeline) ContentType() ContentType { return p.contentType }

// Stages returns the stage names in order.
func (p *Pipeline) Stages() []string {
	names := make([]string, 0, len(p.stages))
	for _, st := range p.stages {
		names = append(names, st.Name())
	}
	return names
}

// Open chains the stages over src and returns the output Source. Every
// error it yields is a [SourceError] or a [StageError].
func (p *Pipeline) Open(src io.Reader) (stage.Source, error) {
	var r io.Reader = &rawReader{r: src}

	if len(p.stages) == 0 {
		return &errSource{name: "raw", src: stage.NewReaderSource(r)}, nil
	}

	var out stage.Source
	for i, st := range p.stages {
		s, err := st.Apply(r)
		if err != nil {
			return nil, &StageError{Stage: st.Name(), Err: err}
		}
		if st.Kind() == stage.KindObject && !p.strict {
			s = &fallbackSource{src: s, logger: p.logger}
		}
		out = &errSource{name: st.Name(), src: s}

		if i < len(p.stages)-1 {
			r = stage.Reader(out)
		}
	}

	return out, nil
}

// rawReader tags failures of the underlying body.
type rawReader struct {
	r io.Reader
}

func (r *rawReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		err = &SourceError{Err: err}
	}
	return n, err
}

// errSource attributes errors to the stage that produced them.
type errSource struct {
	name string
	src  stage.Source
}

func (s *errSource) Next() (stage.Chunk, error) {
	c, err := s.src.Next()
	if err == nil || errors.Is(err, io.EOF) {
		return c, err
	}

	var (
		se  *StageError
		src *SourceError
	)
	if errors.As(err, &se) || errors.As(err, &src) {
		return c, err
	}

	return c, &StageError{Stage: s.name, Err: err}
}

// fallbackSource emits the raw body as bytes when a parser rejects it.
type fallbackSource struct {
	src    stage.Source
	logger *slog.Logger
}

func (s *fallbackSource) Next() (stage.Chunk, error) {
	c, err := s.src.Next()

	var pe *stage.ParseError
	if errors.As(err, &pe) {
		s.logger.Warn("parser rejected body, passing raw bytes through", "stage", pe.Stage, "error", pe.Err)
		return stage.Chunk{Kind: stage.KindBytes, Bytes: pe.Raw}, nil
	}

	return c, err
}
