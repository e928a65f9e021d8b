package stage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// chunkSize bounds a single byte chunk handed downstream.
const chunkSize = 32 << 10 // 32KB

// ErrObjectChunk is returned when an object chunk is read through a byte reader.
var ErrObjectChunk = errors.New("object chunk in byte stream")

// Kind is the payload kind a stage emits.
type Kind uint8

const (
	KindBytes Kind = iota
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindBytes:
		return "bytes"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Chunk is one item emitted by a stage. Bytes is set for KindBytes,
// Object for KindObject.
type Chunk struct {
	Kind   Kind
	Bytes  []byte
	Object any
}

// Source yields chunks until it returns io.EOF.
type Source interface {
	Next() (Chunk, error)
}

// Stage is a single transform step of a response pipeline.
type Stage interface {
	Name() string
	Kind() Kind
	Apply(src io.Reader) (Source, error)
}

// Constructor returns a fresh Stage. Stages hold per-response state, so a
// new one is built for every exchange.
type Constructor func() Stage

// ParseError is returned by object stages that could not decode the body.
// Raw holds the bytes the stage consumed.
type ParseError struct {
	Stage string
	Raw   []byte
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ReaderFunc wraps src with a streaming transform.
type ReaderFunc func(src io.Reader) (io.Reader, error)

// Bytes returns a byte stage named name. fn is not invoked until the first
// chunk is requested, and an io.EOF from fn yields an empty stream.
func Bytes(name string, fn ReaderFunc) Stage {
	return &byteStage{name: name, fn: fn}
}

type byteStage struct {
	name string
	fn   ReaderFunc
}

func (s *byteStage) Name() string { return s.name }
func (s *byteStage) Kind() Kind   { return KindBytes }

func (s *byteStage) Apply(src io.Reader) (Source, error) {
	return NewReaderSource(&lazyReader{src: src, fn: s.fn}), nil
}

// lazyReader defers fn until the first Read. Decompressors read headers at
// construction, which must not happen before the consumer pulls.
type lazyReader struct {
	src io.Reader
	fn  ReaderFunc
	r   io.Reader
	err error
}

func (l *lazyReader) Read(p []byte) (int, error) {
	if l.r == nil && l.err == nil {
		r, err := l.fn(l.src)
		switch {
		case errors.Is(err, io.EOF):
			l.err = io.EOF
		case err != nil:
			l.err = err
		default:
			l.r = r
		}
	}
	if l.err != nil {
		return 0, l.err
	}

	return l.r.Read(p)
}

// DecodeFunc decodes a complete body into a structured value.
type DecodeFunc func(raw []byte) (any, error)

// Object returns an object stage named name. An empty body produces no
// chunk at all.
func Object(name string, fn DecodeFunc) Stage {
	return &objectStage{name: name, fn: fn}
}

type objectStage struct {
	name string
	fn   DecodeFunc
}

func (s *objectStage) Name() string { return s.name }
func (s *objectStage) Kind() Kind   { return KindObject }

func (s *objectStage) Apply(src io.Reader) (Source, error) {
	return &objectSource{stage: s, src: src}, nil
}

type objectSource struct {
	stage *objectStage
	src   io.Reader
	done  bool
}

func (o *objectSource) Next() (Chunk, error) {
	if o.done {
		return Chunk{}, io.EOF
	}
	o.done = true

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(o.src); err != nil {
		return Chunk{}, err
	}
	if buf.Len() == 0 {
		return Chunk{}, io.EOF
	}

	v, err := o.stage.fn(buf.Bytes())
	if err != nil {
		return Chunk{}, &ParseError{Stage: o.stage.name, Raw: buf.Bytes(), Err: err}
	}

	return Chunk{Kind: KindObject, Object: v}, nil
}

// NewReaderSource returns a Source emitting r's bytes in chunks of at most 32KB.
func NewReaderSource(r io.Reader) Source {
	return &readerSource{r: r}
}

type readerSource struct {
	r   io.Reader
	buf []byte
	err error
}

func (s *readerSource) Next() (Chunk, error) {
	if s.err != nil {
		return Chunk{}, s.err
	}
	if s.buf == nil {
		s.buf = make([]byte, chunkSize)
	}

	for {
		n, err := s.r.Read(s.buf)
		if err != nil {
			s.err = err
		}
		if n > 0 {
			out := make([]byte, n)
			copy(out, s.buf[:n])
			return Chunk{Kind: KindBytes, Bytes: out}, nil
		}
		if err != nil {
			return Chunk{}, err
		}
	}
}

// Reader exposes a byte Source as an io.Reader so it can feed the next stage.
func Reader(src Source) io.Reader {
	return &sourceReader{src: src}
}

type sourceReader struct {
	src     Source
	pending []byte
}

func (r *sourceReader) Read(p []byte) (int, error) {
	for len(r.pending) == 0 {
		c, err := r.src.Next()
		if err != nil {
			return 0, err
		}
		if c.Kind != KindBytes {
			return 0, ErrObjectChunk
		}
		r.pending = c.Bytes
	}

	n := copy(p, r.pending)
	r.pending = r.pending[n:]

	return n, nil
}
