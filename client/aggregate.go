package client

import (
	"bytes"
	"errors"
	"io"

	"github.com/adamwoolhether/hopper/client/stage"
)

// aggregate folds the sink items of one response into a Body. A lone
// object item becomes an object body; everything else is concatenated,
// as text when the response is textual or a parser was attempted.
func aggregate(items []stage.Chunk, textual bool) *Body {
	if len(items) == 1 && items[0].Kind == stage.KindObject {
		return &Body{kind: BodyObject, object: items[0].Object}
	}

	var buf bytes.Buffer
	for _, it := range items {
		buf.Write(it.Bytes)
	}

	kind := BodyBytes
	if textual {
		kind = BodyText
	}

	return &Body{kind: kind, raw: buf.Bytes()}
}

// collect drains the stream on behalf of cb and invokes it exactly once.
func (s *Stream) collect(cb Callback) {
	<-s.ready

	if s.resp == nil {
		cb(nil, nil, s.Err())
		return
	}

	var items []stage.Chunk
	for {
		c, err := s.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			cb(nil, nil, err)
			return
		}
		items = append(items, c)
	}

	body := aggregate(items, s.resp.ContentType.IsText() || s.parsed)
	s.resp.Body = body

	cb(s.resp, body, nil)
}
