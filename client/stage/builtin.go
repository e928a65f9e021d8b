package stage

import (
	"compress/gzip"
	"compress/zlib"
	"encoding/json"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"
)

// Gzip inflates gzip encoded bodies.
func Gzip() Stage {
	return Bytes("gzip", func(src io.Reader) (io.Reader, error) {
		return gzip.NewReader(src)
	})
}

// Deflate inflates zlib wrapped deflate bodies.
func Deflate() Stage {
	return Bytes("deflate", func(src io.Reader) (io.Reader, error) {
		return zlib.NewReader(src)
	})
}

// Brotli decodes br encoded bodies.
func Brotli() Stage {
	return Bytes("br", func(src io.Reader) (io.Reader, error) {
		return brotli.NewReader(src), nil
	})
}

// JSON parses the body into the generic encoding/json representation.
func JSON() Stage {
	return Object("json", func(raw []byte) (any, error) {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	})
}

// YAML parses the body into the generic yaml.v3 representation.
func YAML() Stage {
	return Object("yaml", func(raw []byte) (any, error) {
		var v any
		if err := yaml.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	})
}

// Charsets returns a Registry of decoders to UTF-8 for every charset label
// known to the IANA or WHATWG indexes.
func Charsets() Registry {
	return charsets{}
}

type charsets struct{}

func (charsets) Lookup(name string) (Constructor, bool) {
	enc := charsetEncoding(name)
	if enc == nil {
		return nil, false
	}

	label := strings.ToLower(strings.Trim(strings.TrimSpace(name), `"'`))
	return func() Stage {
		return Bytes("decode:"+label, func(src io.Reader) (io.Reader, error) {
			return transform.NewReader(src, enc.NewDecoder()), nil
		})
	}, true
}

func charsetEncoding(name string) encoding.Encoding {
	name = strings.Trim(strings.TrimSpace(name), `"'`)
	if name == "" {
		return nil
	}
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc
	}
	if enc, err := htmlindex.Get(name); err == nil {
		return enc
	}

	return nil
}
