package client

import (
	"net/http"
	"net/url"

	"github.com/adamwoolhether/hopper/client/pipeline"
)

// maxDiscardSize caps how much of an intermediate redirect or challenge
// body is drained so the connection can be reused.
const maxDiscardSize = 4 << 10 // 4KB

// Callback receives the outcome of a logical request exactly once.
// On success err is nil; otherwise resp and body are nil.
type Callback func(resp *Response, body *Body, err error)

// Response describes the terminal response of a logical request. Bytes,
// Body and OutputErr are final once the owning stream is done.
type Response struct {
	StatusCode  int
	Status      string
	Header      http.Header
	ContentType pipeline.ContentType
	URL         *url.URL

	// Attempts counts exchanges that ended in a followed redirect, plus one.
	Attempts int

	// Bytes is the raw body length as received, before any stage.
	Bytes int64

	// Stages lists the pipeline stage names in order.
	Stages []string

	// Body is set only for requests made with WithCallback.
	Body *Body

	// OutputErr reports a failure writing the WithOutput file.
	OutputErr error
}

// BodyKind identifies the representation of an aggregated body.
type BodyKind int

const (
	BodyBytes BodyKind = iota
	BodyText
	BodyObject
)

func (k BodyKind) String() string {
	switch k {
	case BodyText:
		return "text"
	case BodyObject:
		return "object"
	default:
		return "bytes"
	}
}

// Body is a fully aggregated response body.
type Body struct {
	kind   BodyKind
	raw    []byte
	object any
}

// Kind reports how the body is represented.
func (b *Body) Kind() BodyKind { return b.kind }

// Bytes returns the concatenated bytes; nil for object bodies.
func (b *Body) Bytes() []byte { return b.raw }

// String returns the body as text; empty for object bodies.
func (b *Body) String() string { return string(b.raw) }

// Object returns the parsed value of an object body.
func (b *Body) Object() any { return b.object }
